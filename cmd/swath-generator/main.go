// Command swath-generator writes synthetic swath products, latitude and
// longitude tie-point grids in NetCDF, for demos and integration tests.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
	"go.ngs.io/swath-geocoding/internal/adapter/store/swath"
)

// SwathShape generates the tie-point positions of a synthetic swath.
type SwathShape struct {
	Name        string
	Description string
	// Position returns latitude and longitude at fractional grid position
	// (u, v), both in [0, 1]. Longitudes may leave [-180, 180].
	Position func(u, v float64) (lat, lon float64)
}

var shapes = []SwathShape{
	{
		Name:        "plain",
		Description: "mid-latitude swath without antimeridian crossing",
		Position: func(u, v float64) (float64, float64) {
			lat := 10 + 10*v + 0.3*math.Sin(math.Pi*u)
			lon := 100 + 10*u + 0.5*v
			return lat, lon
		},
	},
	{
		Name:        "dateline",
		Description: "swath crossing the antimeridian",
		Position: func(u, v float64) (float64, float64) {
			lat := 50 + 15*v
			lon := 170 + 20*u + 2*v
			return lat, lon
		},
	},
	{
		Name:        "polar",
		Description: "swath circling the north pole slightly more than once",
		Position: func(u, v float64) (float64, float64) {
			lat := 72 + 12*v
			lon := -178 + 370*u
			return lat, lon
		},
	},
}

func main() {
	// Command line flags
	outDir := flag.String("out", "./data", "Output directory for NetCDF files")
	kind := flag.String("kind", "all", "Swath shape: plain, dateline, polar, or all")
	width := flag.Int("width", 64, "Tie points per row")
	height := flag.Int("height", 48, "Tie-point rows")
	subSampling := flag.Float64("sub-sampling", 16, "Pixels between adjacent tie points")
	flag.Parse()

	if *width < 2 || *height < 2 {
		log.Fatalf("Grid must be at least 2x2 tie points, got %dx%d", *width, *height)
	}
	if *subSampling <= 0 {
		log.Fatalf("Sub-sampling must be positive, got %g", *subSampling)
	}

	var selected []SwathShape
	for _, s := range shapes {
		if *kind == "all" || *kind == s.Name {
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		log.Fatalf("Unknown kind: %s (use plain, dateline, polar, or all)", *kind)
	}

	// Create output directory
	//nolint:gosec // G301: Output directory is shared with the server.
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	geom := interp.Geometry{
		Width:        *width,
		Height:       *height,
		OffsetX:      0.5,
		OffsetY:      0.5,
		SubSamplingX: *subSampling,
		SubSamplingY: *subSampling,
	}

	log.Printf("Generating %d swath product(s) in %s", len(selected), *outDir)
	log.Printf("Tie-point grid: %d × %d, sub-sampling %.0f px", *width, *height, *subSampling)

	for _, s := range selected {
		path := filepath.Join(*outDir, s.Name+"_swath.nc")
		product, err := generate(s, geom)
		if err != nil {
			log.Printf("Warning: Failed to generate %s: %v", s.Name, err)
			continue
		}
		if err := swath.Write(path, product); err != nil {
			log.Printf("Warning: Failed to write %s: %v", path, err)
			continue
		}
		g := product.Lat.Geometry()
		log.Printf("✓ Generated %s (%s, %d × %d pixels)", filepath.Base(path), s.Description, g.RasterWidth, g.RasterHeight)
	}

	log.Printf("\n=== Generation Complete ===")
	log.Printf("Serve with: DATA_DIR=%s server", *outDir)
}

// generate samples a shape on the tie-point grid, wrapping longitudes into
// [-180, 180].
func generate(s SwathShape, geom interp.Geometry) (*swath.Product, error) {
	lats := make([]float32, geom.Width*geom.Height)
	lons := make([]float32, geom.Width*geom.Height)
	for j := 0; j < geom.Height; j++ {
		v := float64(j) / float64(geom.Height-1)
		for i := 0; i < geom.Width; i++ {
			u := float64(i) / float64(geom.Width-1)
			lat, lon := s.Position(u, v)
			lats[j*geom.Width+i] = float32(lat)
			lons[j*geom.Width+i] = float32(wrapLon(lon))
		}
	}

	lat, err := interp.NewTiePointGrid("latitude", geom, lats, interp.DiscontNone)
	if err != nil {
		return nil, fmt.Errorf("latitude grid: %w", err)
	}
	lon, err := interp.NewTiePointGrid("longitude", geom, lons, interp.DiscontAt180)
	if err != nil {
		return nil, fmt.Errorf("longitude grid: %w", err)
	}
	return &swath.Product{Lat: lat, Lon: lon}, nil
}

func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func init() {
	flag.Usage = func() {
		names := make([]string, len(shapes))
		for i, s := range shapes {
			names[i] = s.Name
		}
		fmt.Fprintf(os.Stderr, "Usage: swath-generator [flags]\n\nShapes: %s\n\nFlags:\n", strings.Join(names, ", "))
		flag.PrintDefaults()
	}
}
