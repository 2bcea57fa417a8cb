package usecase

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"sort"
	"testing"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
	"go.ngs.io/swath-geocoding/internal/adapter/store"
	"go.ngs.io/swath-geocoding/internal/domain"
	"go.ngs.io/swath-geocoding/internal/geocoding"
)

// fakeSource serves prebuilt geocodings.
type fakeSource struct {
	products map[string]*geocoding.TiePointGeoCoding
}

func (f *fakeSource) ListProducts() ([]string, error) {
	ids := make([]string, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeSource) GeoCoding(id string) (*geocoding.TiePointGeoCoding, error) {
	gc, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrProductNotFound, id)
	}
	return gc, nil
}

func buildGeoCoding(t *testing.T, geom interp.Geometry, f func(i, j int) (float64, float64)) *geocoding.TiePointGeoCoding {
	t.Helper()
	lats := make([]float32, geom.Width*geom.Height)
	lons := make([]float32, geom.Width*geom.Height)
	for j := 0; j < geom.Height; j++ {
		for i := 0; i < geom.Width; i++ {
			la, lo := f(i, j)
			lats[j*geom.Width+i] = float32(la)
			lons[j*geom.Width+i] = float32(lo)
		}
	}
	lat, err := interp.NewTiePointGrid("latitude", geom, lats, interp.DiscontNone)
	if err != nil {
		t.Fatalf("NewTiePointGrid: %v", err)
	}
	lon, err := interp.NewTiePointGrid("longitude", geom, lons, interp.DiscontAt180)
	if err != nil {
		t.Fatalf("NewTiePointGrid: %v", err)
	}
	cfg := geocoding.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	gc, err := geocoding.NewWithConfig(lat, lon, domain.WGS84, cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	return gc
}

func newTestUseCase(t *testing.T) *GeoCodingUseCase {
	t.Helper()
	unit := interp.Geometry{OffsetX: 0.5, OffsetY: 0.5, SubSamplingX: 1, SubSamplingY: 1}

	plain := unit
	plain.Width, plain.Height = 100, 100
	dateline := unit
	dateline.Width, dateline.Height = 40, 30
	degenerate := unit
	degenerate.Width, degenerate.Height = 2, 2

	src := &fakeSource{products: map[string]*geocoding.TiePointGeoCoding{
		"plain": buildGeoCoding(t, plain, func(i, j int) (float64, float64) {
			return 10 + 10*float64(j)/99, 100 + 10*float64(i)/99
		}),
		"dateline": buildGeoCoding(t, dateline, func(i, j int) (float64, float64) {
			lon := 170 + 0.5*float64(i)
			if lon > 180 {
				lon -= 360
			}
			return 50 + 0.5*float64(j), lon
		}),
		"degenerate": buildGeoCoding(t, degenerate, func(i, j int) (float64, float64) {
			return 10 + 10*float64(j), 100 + 10*float64(j)
		}),
	}}
	return NewGeoCodingUseCase(src, 100)
}

func TestForward(t *testing.T) {
	uc := newTestUseCase(t)

	resp, err := uc.Forward(PixelRequest{
		ProductID: "plain",
		Pixels:    []domain.PixelPos{{X: 0.5, Y: 0.5}, {X: 500, Y: 10}},
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if resp.Datum != "WGS84" {
		t.Errorf("Datum = %q, want WGS84", resp.Datum)
	}
	if resp.InvalidCount != 1 {
		t.Errorf("InvalidCount = %d, want 1", resp.InvalidCount)
	}

	first := resp.Results[0]
	if !first.Valid || first.Lat == nil || first.Lon == nil {
		t.Fatalf("first result = %+v, want valid", first)
	}
	if math.Abs(*first.Lat-10) > 1e-4 || math.Abs(*first.Lon-100) > 1e-4 {
		t.Errorf("first result = (%v, %v), want (10, 100)", *first.Lat, *first.Lon)
	}

	second := resp.Results[1]
	if second.Valid || second.Lat != nil || second.Lon != nil {
		t.Errorf("out-of-raster result = %+v, want invalid with null coordinates", second)
	}
	if second.X != 500 || second.Y != 10 {
		t.Errorf("out-of-raster result does not echo its input: %+v", second)
	}
}

func TestInverse(t *testing.T) {
	uc := newTestUseCase(t)

	resp, err := uc.Inverse(GeoRequest{
		ProductID: "plain",
		Positions: []domain.GeoPos{{Lat: 15, Lon: 105}, {Lat: 50, Lon: 50}},
	})
	if err != nil {
		t.Fatalf("Inverse() error = %v", err)
	}
	if !resp.InverseAvailable {
		t.Errorf("InverseAvailable = false")
	}
	if resp.InvalidCount != 1 {
		t.Errorf("InvalidCount = %d, want 1", resp.InvalidCount)
	}

	first := resp.Results[0]
	if !first.Valid || first.X == nil || first.Y == nil {
		t.Fatalf("first result = %+v, want valid", first)
	}
	if math.Abs(*first.X-50) > 0.5 || math.Abs(*first.Y-50) > 0.5 {
		t.Errorf("first result = (%v, %v), want (50, 50)", *first.X, *first.Y)
	}
	if resp.Results[1].Valid || resp.Results[1].X != nil {
		t.Errorf("outside result = %+v, want invalid", resp.Results[1])
	}
}

func TestInverse_OutOfRangeIsInvalid(t *testing.T) {
	uc := newTestUseCase(t)

	resp, err := uc.Inverse(GeoRequest{
		ProductID: "plain",
		Positions: []domain.GeoPos{{Lat: 95, Lon: 105}, {Lat: 15, Lon: 200}, {Lat: 15, Lon: 105}},
	})
	if err != nil {
		t.Fatalf("Inverse() error = %v", err)
	}
	if resp.InvalidCount != 2 {
		t.Errorf("InvalidCount = %d, want 2", resp.InvalidCount)
	}
	for k, r := range resp.Results[:2] {
		if r.Valid || r.X != nil || r.Y != nil {
			t.Errorf("result %d = %+v, want invalid with null coordinates", k, r)
		}
	}
	if !resp.Results[2].Valid {
		t.Errorf("in-scene result = %+v, want valid", resp.Results[2])
	}
}

func TestInverse_Unavailable(t *testing.T) {
	uc := newTestUseCase(t)

	resp, err := uc.Inverse(GeoRequest{
		ProductID: "degenerate",
		Positions: []domain.GeoPos{{Lat: 15, Lon: 105}},
	})
	if err != nil {
		t.Fatalf("Inverse() error = %v", err)
	}
	if resp.InverseAvailable {
		t.Errorf("InverseAvailable = true for a degenerate product")
	}
	if resp.InvalidCount != 1 || resp.Results[0].Valid {
		t.Errorf("results = %+v, want all invalid", resp.Results)
	}
}

func TestRequestErrors(t *testing.T) {
	uc := newTestUseCase(t)
	many := make([]domain.PixelPos, 101)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"no pixels", func() error {
			_, err := uc.Forward(PixelRequest{ProductID: "plain"})
			return err
		}, ErrInvalidRequest},
		{"too many pixels", func() error {
			_, err := uc.Forward(PixelRequest{ProductID: "plain", Pixels: many})
			return err
		}, ErrInvalidRequest},
		{"NaN pixel", func() error {
			_, err := uc.Forward(PixelRequest{ProductID: "plain", Pixels: []domain.PixelPos{{X: math.NaN(), Y: 1}}})
			return err
		}, ErrInvalidRequest},
		{"infinite longitude", func() error {
			_, err := uc.Inverse(GeoRequest{ProductID: "plain", Positions: []domain.GeoPos{{Lat: 15, Lon: math.Inf(1)}}})
			return err
		}, ErrInvalidRequest},
		{"missing product id", func() error {
			_, err := uc.Inverse(GeoRequest{Positions: []domain.GeoPos{{Lat: 0, Lon: 0}}})
			return err
		}, ErrInvalidRequest},
		{"unknown product", func() error {
			_, err := uc.Forward(PixelRequest{ProductID: "nope", Pixels: []domain.PixelPos{{X: 1, Y: 1}}})
			return err
		}, store.ErrProductNotFound},
		{"unknown product info", func() error {
			_, err := uc.Info("nope")
			return err
		}, store.ErrProductNotFound},
		{"zero subset step", func() error {
			_, err := uc.SubsetInfo(SubsetRequest{ProductID: "plain", Region: image.Rect(0, 0, 10, 10)})
			return err
		}, ErrInvalidRequest},
		{"subset outside raster", func() error {
			_, err := uc.SubsetInfo(SubsetRequest{ProductID: "plain", Region: image.Rect(200, 200, 300, 300), StepX: 1, StepY: 1})
			return err
		}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	uc := newTestUseCase(t)

	info, err := uc.Info("plain")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.RasterWidth != 100 || info.RasterHeight != 100 {
		t.Errorf("raster = %dx%d, want 100x100", info.RasterWidth, info.RasterHeight)
	}
	if info.TiePoints.Width != 100 || info.TiePoints.SubSamplingX != 1 {
		t.Errorf("tie points = %+v", info.TiePoints)
	}
	if info.Bounds == nil || math.Abs(info.Bounds.LatMin-10) > 1e-4 || math.Abs(info.Bounds.LonMax-110) > 1e-4 {
		t.Errorf("bounds = %+v, want lat from 10 and lon up to 110", info.Bounds)
	}
	if info.Normalized {
		t.Errorf("Normalized = true for a grid without crossing")
	}
	if info.Tiles < 1 || !info.CanGetPixel || !info.CanGetGeoPos {
		t.Errorf("info = %+v, want both directions available", info)
	}

	dl, err := uc.Info("dateline")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if !dl.Normalized {
		t.Errorf("Normalized = false for a dateline crossing grid")
	}
	if dl.Bounds == nil || math.Abs(dl.Bounds.LonMax-189.5) > 1e-4 {
		t.Errorf("dateline bounds = %+v, want lon up to 189.5", dl.Bounds)
	}
}

func TestSubsetInfo(t *testing.T) {
	uc := newTestUseCase(t)

	info, err := uc.SubsetInfo(SubsetRequest{
		ProductID: "plain",
		Region:    image.Rect(20, 30, 60, 70),
		StepX:     2,
		StepY:     2,
	})
	if err != nil {
		t.Fatalf("SubsetInfo() error = %v", err)
	}
	if info.RasterWidth != 20 || info.RasterHeight != 20 {
		t.Errorf("subset raster = %dx%d, want 20x20", info.RasterWidth, info.RasterHeight)
	}
	if info.Bounds == nil || info.Bounds.LonMin < 100 || info.Bounds.LonMax > 110 {
		t.Errorf("subset bounds = %+v, want inside the product", info.Bounds)
	}
}

func TestFootprint(t *testing.T) {
	uc := newTestUseCase(t)

	f, err := uc.Footprint("plain")
	if err != nil {
		t.Fatalf("Footprint() error = %v", err)
	}
	if f.Geometry.GeoJSONType() != "Polygon" {
		t.Fatalf("geometry type = %s, want Polygon", f.Geometry.GeoJSONType())
	}
	if f.Properties["product_id"] != "plain" {
		t.Errorf("product_id property = %v", f.Properties["product_id"])
	}

	b := f.Geometry.Bound()
	if math.Abs(b.Min[0]-100) > 1e-4 || math.Abs(b.Max[0]-110) > 1e-4 ||
		math.Abs(b.Min[1]-10) > 1e-4 || math.Abs(b.Max[1]-20) > 1e-4 {
		t.Errorf("footprint bound = %v, want [100 10] to [110 20]", b)
	}
}

func TestFootprint_Dateline(t *testing.T) {
	uc := newTestUseCase(t)

	f, err := uc.Footprint("dateline")
	if err != nil {
		t.Fatalf("Footprint() error = %v", err)
	}
	b := f.Geometry.Bound()
	if math.Abs(b.Min[0]-170) > 1e-4 || math.Abs(b.Max[0]-189.5) > 1e-4 {
		t.Errorf("footprint lon range = [%v, %v], want [170, 189.5]", b.Min[0], b.Max[0])
	}
}

func TestBorderRing(t *testing.T) {
	uc := newTestUseCase(t)
	gc, _ := uc.products.GeoCoding("plain")

	ring := borderRing(gc)
	// 2*(w+h) - 4 border tie points plus the closing point.
	if want := 2*(100+100) - 4 + 1; len(ring) != want {
		t.Fatalf("ring length = %d, want %d", len(ring), want)
	}
	if !ring.Closed() {
		t.Errorf("ring is not closed")
	}
}
