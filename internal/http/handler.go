// Package http exposes the geocoding use case over a JSON HTTP API.
package http

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/swath-geocoding/internal/adapter/store"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/usecase"
)

// Handler handles HTTP requests for swath geocoding.
type Handler struct {
	geocodingUC *usecase.GeoCodingUseCase
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(geocodingUC *usecase.GeoCodingUseCase, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		geocodingUC: geocodingUC,
		logger:      logger,
	}
}

type pixelBody struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

type geoBody struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// ForwardBody is the body of POST /v1/products/:id/geo.
type ForwardBody struct {
	Pixels []pixelBody `json:"pixels" binding:"required,dive"`
}

// InverseBody is the body of POST /v1/products/:id/pixel.
type InverseBody struct {
	Positions []geoBody `json:"positions" binding:"required,dive"`
}

// ListProducts handles GET /v1/products.
func (h *Handler) ListProducts(c *gin.Context) {
	ids, err := h.geocodingUC.ListProducts()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": ids,
		"count":    len(ids),
	})
}

// GetProduct handles GET /v1/products/:id.
func (h *Handler) GetProduct(c *gin.Context) {
	info, err := h.geocodingUC.Info(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetSubset handles GET /v1/products/:id/subset.
func (h *Handler) GetSubset(c *gin.Context) {
	var bounds [4]int
	for k, name := range []string{"x", "y", "width", "height"} {
		v, err := strconv.Atoi(c.Query(name))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", name, err)})
			return
		}
		bounds[k] = v
	}
	stepX, err := strconv.Atoi(c.DefaultQuery("step_x", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid step_x: %v", err)})
		return
	}
	stepY, err := strconv.Atoi(c.DefaultQuery("step_y", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid step_y: %v", err)})
		return
	}

	info, err := h.geocodingUC.SubsetInfo(usecase.SubsetRequest{
		ProductID: c.Param("id"),
		Region:    image.Rect(bounds[0], bounds[1], bounds[0]+bounds[2], bounds[1]+bounds[3]),
		StepX:     stepX,
		StepY:     stepY,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetFootprint handles GET /v1/products/:id/footprint.
func (h *Handler) GetFootprint(c *gin.Context) {
	f, err := h.geocodingUC.Footprint(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// GetGeoPos handles GET /v1/products/:id/geo.
func (h *Handler) GetGeoPos(c *gin.Context) {
	x, err := parseFloatQuery(c, "x")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	y, err := parseFloatQuery(c, "y")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.forward(c, []domain.PixelPos{{X: x, Y: y}})
}

// PostGeoPos handles POST /v1/products/:id/geo.
func (h *Handler) PostGeoPos(c *gin.Context) {
	var body ForwardBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	pixels := make([]domain.PixelPos, len(body.Pixels))
	for i, p := range body.Pixels {
		pixels[i] = domain.PixelPos{X: *p.X, Y: *p.Y}
	}
	h.forward(c, pixels)
}

// GetPixelPos handles GET /v1/products/:id/pixel.
func (h *Handler) GetPixelPos(c *gin.Context) {
	lat, err := parseFloatQuery(c, "lat")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lon, err := parseFloatQuery(c, "lon")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inverse(c, []domain.GeoPos{{Lat: lat, Lon: lon}})
}

// PostPixelPos handles POST /v1/products/:id/pixel.
func (h *Handler) PostPixelPos(c *gin.Context) {
	var body InverseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	positions := make([]domain.GeoPos, len(body.Positions))
	for i, g := range body.Positions {
		positions[i] = domain.GeoPos{Lat: *g.Lat, Lon: *g.Lon}
	}
	h.inverse(c, positions)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) forward(c *gin.Context, pixels []domain.PixelPos) {
	resp, err := h.geocodingUC.Forward(usecase.PixelRequest{
		ProductID: c.Param("id"),
		Pixels:    pixels,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) inverse(c *gin.Context, positions []domain.GeoPos) {
	resp, err := h.geocodingUC.Inverse(usecase.GeoRequest{
		ProductID: c.Param("id"),
		Positions: positions,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondError maps use case errors to HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseFloatQuery(c *gin.Context, name string) (float64, error) {
	s := c.Query(name)
	if s == "" {
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return v, nil
}
