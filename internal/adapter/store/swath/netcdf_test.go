package swath

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
	"go.ngs.io/swath-geocoding/internal/adapter/store"
	"go.ngs.io/swath-geocoding/internal/domain"
)

// testProduct builds a width x height product over lat [10, 20], lon [100, 110].
func testProduct(t *testing.T, width, height int, geom interp.Geometry) *Product {
	t.Helper()
	geom.Width, geom.Height = width, height
	lats := make([]float32, width*height)
	lons := make([]float32, width*height)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			lats[j*width+i] = float32(10 + 10*float64(j)/float64(height-1))
			lons[j*width+i] = float32(100 + 10*float64(i)/float64(width-1))
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
	return &Product{Lat: lat, Lon: lon}
}

// Helper to create a packed tie-point file: SHORT data with scale_factor,
// add_offset and _FillValue, geometry as global attributes.
func createPackedTestFile(t *testing.T, path string, lat, lon []int16, width, height int) {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	yDim, _ := f.AddDim("rows", uint64(height))
	xDim, _ := f.AddDim("cols", uint64(width))
	vlat, _ := f.AddVar("TP_latitude", netcdf.SHORT, []netcdf.Dim{yDim, xDim})
	vlon, _ := f.AddVar("TP_longitude", netcdf.SHORT, []netcdf.Dim{yDim, xDim})

	for _, v := range []netcdf.Var{vlat, vlon} {
		if err := v.Attr("scale_factor").WriteFloat64s([]float64{0.01}); err != nil {
			t.Fatalf("write scale_factor: %v", err)
		}
		if err := v.Attr("_FillValue").WriteInt16s([]int16{-32768}); err != nil {
			t.Fatalf("write _FillValue: %v", err)
		}
	}
	if err := vlon.Attr("add_offset").WriteFloat64s([]float64{100}); err != nil {
		t.Fatalf("write add_offset: %v", err)
	}
	if err := f.Attr(AttrSubSamplingX).WriteFloat64s([]float64{16}); err != nil {
		t.Fatalf("write sub_sampling_x: %v", err)
	}
	if err := f.Attr(AttrSubSamplingY).WriteInt32s([]int32{8}); err != nil {
		t.Fatalf("write sub_sampling_y: %v", err)
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteInt16s(lat); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteInt16s(lon); err != nil {
		t.Fatalf("write lon: %v", err)
	}
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	geom := interp.Geometry{OffsetX: 0.5, OffsetY: 1.5, SubSamplingX: 8, SubSamplingY: 4, RasterWidth: 70, RasterHeight: 40}
	want := testProduct(t, 9, 10, geom)

	path := filepath.Join(t.TempDir(), "scene.nc")
	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if g := got.Lat.Geometry(); g != want.Lat.Geometry() {
		t.Errorf("geometry = %+v, want %+v", g, want.Lat.Geometry())
	}
	if got.Lon.Discontinuity() != interp.DiscontAt180 {
		t.Errorf("longitude discontinuity = %v, want at180", got.Lon.Discontinuity())
	}
	for k, v := range want.Lat.Values() {
		if got.Lat.Values()[k] != v {
			t.Fatalf("latitude %d = %v, want %v", k, got.Lat.Values()[k], v)
		}
	}
	for k, v := range want.Lon.Values() {
		if got.Lon.Values()[k] != v {
			t.Fatalf("longitude %d = %v, want %v", k, got.Lon.Values()[k], v)
		}
	}
}

func TestLoad_PackedShortWithFillValue(t *testing.T) {
	// 3x2 grid; latitudes in centidegrees, longitudes as offsets from 100.
	lat := []int16{1000, 1000, 1000, 1100, 1100, -32768}
	lon := []int16{0, 50, 100, 0, 50, 100}
	path := filepath.Join(t.TempDir(), "packed.nc")
	createPackedTestFile(t, path, lat, lon, 3, 2)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	g := p.Lat.Geometry()
	if g.Width != 3 || g.Height != 2 {
		t.Errorf("grid = %dx%d, want 3x2", g.Width, g.Height)
	}
	if g.OffsetX != 0.5 || g.OffsetY != 0.5 || g.SubSamplingX != 16 || g.SubSamplingY != 8 {
		t.Errorf("geometry = %+v, want offsets 0.5 and sub-sampling 16x8", g)
	}
	if got := float64(p.Lat.At(0, 1)); math.Abs(got-11) > 1e-4 {
		t.Errorf("latitude (0, 1) = %v, want 11", got)
	}
	if got := float64(p.Lat.At(2, 1)); !math.IsNaN(got) {
		t.Errorf("fill value latitude = %v, want NaN", got)
	}
	if got := float64(p.Lon.At(2, 0)); math.Abs(got-101) > 1e-4 {
		t.Errorf("longitude (2, 0) = %v, want 101", got)
	}
}

func TestLoad_MissingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.nc")
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	dim, _ := f.AddDim("x", 2)
	if _, err := f.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{dim}); err != nil {
		t.Fatalf("add var: %v", err)
	}
	_ = f.EndDef()
	_ = f.Close()

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for a file without tie-point grids")
	}
}

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewStore(dir, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_ListAndGeoCoding(t *testing.T) {
	dir := t.TempDir()
	geom := interp.Geometry{OffsetX: 0.5, OffsetY: 0.5, SubSamplingX: 1, SubSamplingY: 1}
	for _, name := range []string{"b_scene.nc", "a_scene.nc", filepath.Join("nested", "c_scene.nc")} {
		path := filepath.Join(dir, name)
		//nolint:gosec // G301: Standard test directory permissions.
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := Write(path, testProduct(t, 20, 20, geom)); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a product"), 0o600); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	s := newTestStore(t, dir)
	ids, err := s.ListProducts()
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	want := []string{"a_scene", "b_scene", "c_scene"}
	if len(ids) != len(want) {
		t.Fatalf("ListProducts = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ListProducts[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	gc, err := s.GeoCoding("c_scene")
	if err != nil {
		t.Fatalf("GeoCoding: %v", err)
	}
	if !gc.CanGetPixelPos() {
		t.Errorf("CanGetPixelPos() = false")
	}
	if gc.Datum() != domain.WGS84 {
		t.Errorf("Datum() = %+v, want WGS84", gc.Datum())
	}

	again, err := s.GeoCoding("c_scene")
	if err != nil {
		t.Fatalf("GeoCoding: %v", err)
	}
	if again != gc {
		t.Errorf("second GeoCoding call rebuilt the engine")
	}
}

func TestStore_ProductNotFound(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	for _, id := range []string{"missing", "", "../etc/passwd"} {
		if _, err := s.GeoCoding(id); !errors.Is(err, store.ErrProductNotFound) {
			t.Errorf("GeoCoding(%q) error = %v, want ErrProductNotFound", id, err)
		}
	}
}

func TestStore_MissingDataDir(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "absent"))
	if _, err := s.ListProducts(); err == nil {
		t.Errorf("expected error for a missing data directory")
	}
}
