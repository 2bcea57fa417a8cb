// Command roundtrip loads a swath product, builds its geocoding and reports
// the pixel error of forward then inverse lookups over a grid of pixels.
package main

import (
	"flag"
	"io"
	"log"
	"log/slog"
	"math"
	"time"

	"go.ngs.io/swath-geocoding/internal/adapter/store/swath"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/geocoding"
)

// Stats summarizes round-trip errors in pixels.
type Stats struct {
	Samples int
	Invalid int
	Mean    float64
	Max     float64
	WorstX  float64
	WorstY  float64
	Over    int // Samples above the error budget.
}

func main() {
	in := flag.String("in", "", "Path to a swath NetCDF product")
	step := flag.Int("step", 4, "Pixel stride between sampled pixels")
	degreesPerTile := flag.Float64("degrees-per-tile", 10, "Target tile extent in degrees")
	maxError := flag.Float64("max-error", 0.5, "Accepted approximation error in pixels")
	verbose := flag.Bool("v", false, "Log tiling warnings")
	flag.Parse()

	if *in == "" {
		log.Fatalf("-in is required")
	}
	if *step < 1 {
		log.Fatalf("-step must be at least 1, got %d", *step)
	}

	product, err := swath.Load(*in)
	if err != nil {
		log.Fatalf("Failed to load product: %v", err)
	}

	cfg := geocoding.DefaultConfig()
	cfg.DegreesPerTile = *degreesPerTile
	cfg.MaxAbsError = *maxError
	if !*verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	start := time.Now()
	gc, err := geocoding.NewWithConfig(product.Lat, product.Lon, domain.WGS84, cfg)
	if err != nil {
		log.Fatalf("Failed to build geocoding: %v", err)
	}
	width, height := gc.RasterSize()
	b := gc.Bounds()

	log.Printf("Product: %s", *in)
	log.Printf("Raster: %d × %d pixels", width, height)
	log.Printf("Bounds: lat %.3f..%.3f, lon %.3f..%.3f (normalized: %v)", b.LatMin, b.LatMax, b.LonMin, b.LonMax, gc.Normalized())
	log.Printf("Tiles: %d, built in %s", len(gc.Approximations()), time.Since(start).Round(time.Millisecond))

	if !gc.CanGetPixelPos() {
		log.Fatalf("Inverse geocoding unavailable for this product")
	}

	stats := roundTrip(gc, width, height, *step, *maxError)

	log.Printf("\n=== Round Trip ===")
	log.Printf("Samples: %d (%d invalid)", stats.Samples, stats.Invalid)
	log.Printf("Mean error: %.4f px", stats.Mean)
	log.Printf("Max error: %.4f px at (%.1f, %.1f)", stats.Max, stats.WorstX, stats.WorstY)
	log.Printf("Above %.2f px: %d", *maxError, stats.Over)
}

// roundTrip converts pixel centers to geo positions and back.
func roundTrip(gc *geocoding.TiePointGeoCoding, width, height, step int, budget float64) Stats {
	var s Stats
	var sum float64
	for y := 0; y < height; y += step {
		for x := 0; x < width; x += step {
			p := domain.PixelPos{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			s.Samples++

			g := gc.GeoPos(p)
			back := gc.PixelPos(g)
			if !back.IsValid() {
				s.Invalid++
				continue
			}

			d := math.Hypot(back.X-p.X, back.Y-p.Y)
			sum += d
			if d > s.Max {
				s.Max, s.WorstX, s.WorstY = d, p.X, p.Y
			}
			if d > budget {
				s.Over++
			}
		}
	}
	if n := s.Samples - s.Invalid; n > 0 {
		s.Mean = sum / float64(n)
	}
	return s
}
