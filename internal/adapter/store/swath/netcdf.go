// Package swath loads swath products, latitude and longitude tie-point grids
// stored in NetCDF files, and serves their geocodings.
package swath

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/swath-geocoding/internal/adapter/interp"
)

// Attribute names describing the tie-point geometry. They are looked up on
// the grid variable first, then on the file.
const (
	AttrOffsetX      = "offset_x"
	AttrOffsetY      = "offset_y"
	AttrSubSamplingX = "sub_sampling_x"
	AttrSubSamplingY = "sub_sampling_y"
	AttrSceneWidth   = "scene_width"
	AttrSceneHeight  = "scene_height"
)

var (
	latNames = []string{"latitude", "lat", "tp_latitude", "TP_latitude", "tie_point_latitude"}
	lonNames = []string{"longitude", "lon", "tp_longitude", "TP_longitude", "tie_point_longitude"}
)

// Product is a swath product located by latitude and longitude tie points.
type Product struct {
	Lat *interp.TiePointGrid
	Lon *interp.TiePointGrid
}

// Load reads a product from a NetCDF file.
func Load(path string) (*Product, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	latVar, err := findVar(nc, latNames)
	if err != nil {
		return nil, fmt.Errorf("latitude variable not found (tried: %v)", latNames)
	}
	lonVar, err := findVar(nc, lonNames)
	if err != nil {
		return nil, fmt.Errorf("longitude variable not found (tried: %v)", lonNames)
	}

	lats, width, height, err := readTiePoints(latVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read latitudes: %w", err)
	}
	lons, lonWidth, lonHeight, err := readTiePoints(lonVar)
	if err != nil {
		return nil, fmt.Errorf("failed to read longitudes: %w", err)
	}
	if lonWidth != width || lonHeight != height {
		return nil, fmt.Errorf("latitude grid is %dx%d but longitude grid is %dx%d",
			width, height, lonWidth, lonHeight)
	}

	geom := interp.Geometry{
		Width:        width,
		Height:       height,
		OffsetX:      geometryAttr(nc, latVar, AttrOffsetX, 0.5),
		OffsetY:      geometryAttr(nc, latVar, AttrOffsetY, 0.5),
		SubSamplingX: geometryAttr(nc, latVar, AttrSubSamplingX, 1),
		SubSamplingY: geometryAttr(nc, latVar, AttrSubSamplingY, 1),
		RasterWidth:  int(geometryAttr(nc, latVar, AttrSceneWidth, 0)),
		RasterHeight: int(geometryAttr(nc, latVar, AttrSceneHeight, 0)),
	}

	lat, err := interp.NewTiePointGrid("latitude", geom, lats, interp.DiscontNone)
	if err != nil {
		return nil, err
	}
	lon, err := interp.NewTiePointGrid("longitude", geom, lons, lonDiscontinuity(lons))
	if err != nil {
		return nil, err
	}
	return &Product{Lat: lat, Lon: lon}, nil
}

// Write stores a product in a NetCDF file, replacing any existing file.
func Write(path string, p *Product) error {
	if p == nil || p.Lat == nil || p.Lon == nil {
		return fmt.Errorf("product has no tie-point grids")
	}
	geom := p.Lat.Geometry()
	if p.Lon.Geometry() != geom {
		return fmt.Errorf("latitude and longitude grids do not match")
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = ds.Close() }()

	yDim, err := ds.AddDim("tp_y", uint64(geom.Height))
	if err != nil {
		return err
	}
	xDim, err := ds.AddDim("tp_x", uint64(geom.Width))
	if err != nil {
		return err
	}

	latVar, err := ds.AddVar("latitude", netcdf.FLOAT, []netcdf.Dim{yDim, xDim})
	if err != nil {
		return err
	}
	lonVar, err := ds.AddVar("longitude", netcdf.FLOAT, []netcdf.Dim{yDim, xDim})
	if err != nil {
		return err
	}

	attrs := []struct {
		name  string
		value float64
	}{
		{AttrOffsetX, geom.OffsetX},
		{AttrOffsetY, geom.OffsetY},
		{AttrSubSamplingX, geom.SubSamplingX},
		{AttrSubSamplingY, geom.SubSamplingY},
	}
	for _, a := range attrs {
		if err := ds.Attr(a.name).WriteFloat64s([]float64{a.value}); err != nil {
			return fmt.Errorf("failed to write attribute %s: %w", a.name, err)
		}
	}
	if err := ds.Attr(AttrSceneWidth).WriteInt32s([]int32{int32(geom.RasterWidth)}); err != nil {
		return fmt.Errorf("failed to write attribute %s: %w", AttrSceneWidth, err)
	}
	if err := ds.Attr(AttrSceneHeight).WriteInt32s([]int32{int32(geom.RasterHeight)}); err != nil {
		return fmt.Errorf("failed to write attribute %s: %w", AttrSceneHeight, err)
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	if err := latVar.WriteFloat32s(p.Lat.Values()); err != nil {
		return fmt.Errorf("failed to write latitudes: %w", err)
	}
	if err := lonVar.WriteFloat32s(p.Lon.Values()); err != nil {
		return fmt.Errorf("failed to write longitudes: %w", err)
	}
	return nil
}

func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, nil
		}
	}
	return netcdf.Var{}, fmt.Errorf("none of %v found", names)
}

// readTiePoints reads a 2D [rows, cols] variable into row-major float32
// values. scale_factor and add_offset are applied and fill values become NaN.
func readTiePoints(v netcdf.Var) ([]float32, int, int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return nil, 0, 0, fmt.Errorf("expected 2D data, got %dD", len(dims))
	}
	rows, err := dims[0].Len()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get dim0 length: %w", err)
	}
	cols, err := dims[1].Len()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get dim1 length: %w", err)
	}

	total := int(rows * cols)
	flat := make([]float64, total)
	t, err := v.Type()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get var type: %w", err)
	}
	switch t {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64s(flat); err != nil {
			return nil, 0, 0, err
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32s(tmp); err != nil {
			return nil, 0, 0, err
		}
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32s(tmp); err != nil {
			return nil, 0, 0, err
		}
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16s(tmp); err != nil {
			return nil, 0, 0, err
		}
		for i, val := range tmp {
			flat[i] = float64(val)
		}
	default:
		return nil, 0, 0, fmt.Errorf("unsupported data type: %v", t)
	}

	// Fill values are compared before unpacking.
	fill, hasFill := attrFloat(v.Attr("_FillValue"))
	if !hasFill {
		fill, hasFill = attrFloat(v.Attr("missing_value"))
	}
	scale, ok := attrFloat(v.Attr("scale_factor"))
	if !ok || scale == 0 {
		scale = 1
	}
	offset, _ := attrFloat(v.Attr("add_offset"))

	values := make([]float32, total)
	for i, raw := range flat {
		if hasFill && raw == fill {
			values[i] = float32(math.NaN())
			continue
		}
		values[i] = float32(raw*scale + offset)
	}
	return values, int(cols), int(rows), nil
}

// geometryAttr reads a numeric geometry attribute from the variable or the
// file, falling back to def.
func geometryAttr(nc netcdf.Dataset, v netcdf.Var, name string, def float64) float64 {
	if val, ok := attrFloat(v.Attr(name)); ok {
		return val
	}
	if val, ok := attrFloat(nc.Attr(name)); ok {
		return val
	}
	return def
}

// attrFloat returns the first value of a numeric attribute.
func attrFloat(a netcdf.Attr) (float64, bool) {
	if n, err := a.Len(); err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, 1)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, 1)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, 1)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	bufs := make([]int16, 1)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

// lonDiscontinuity guesses the longitude convention of the values.
func lonDiscontinuity(lons []float32) interp.Discontinuity {
	for _, v := range lons {
		if v > 180 {
			return interp.DiscontAt360
		}
	}
	return interp.DiscontAt180
}
