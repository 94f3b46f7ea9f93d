// Package boundary reads GeoJSON boundary files and exposes feature
// properties as partial records so they join with census tables.
package boundary

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

const (
	PopupZip    = "popup_zip_code"
	PopupRegion = "popup_region_name"

	UnknownZip    = "Unknown ZIP Code"
	UnknownRegion = "Unknown Region"
)

var ErrNoZipField = errors.New("no ZIP property found in features")

// BayArea is the region bounding box as (minLon, minLat) to (maxLon, maxLat).
var BayArea = orb.Bound{Min: orb.Point{-123.1, 36.9}, Max: orb.Point{-121.5, 38.6}}

// ReadFile decodes a feature collection from path.
func ReadFile(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geojson: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a feature collection.
func Decode(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return fc, nil
}

// ResolveField returns the first candidate property that any feature carries
// with a non-empty value.
func ResolveField(fc *geojson.FeatureCollection, candidates []string) (string, error) {
	if fc == nil {
		return "", ErrNoZipField
	}
	for _, c := range candidates {
		for _, f := range fc.Features {
			if tabular.CellString(f.Properties[c]) != "" {
				return c, nil
			}
		}
	}
	return "", ErrNoZipField
}

// Partial keys each feature's properties by the value of field. With no
// fields listed every property except field is copied. Features without a
// value for field are dropped.
func Partial(fc *geojson.FeatureCollection, field string, fields []string) tabular.Partial {
	out := tabular.Partial{}
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		id := tabular.CellString(f.Properties[field])
		if id == "" {
			continue
		}
		rec, ok := out[id]
		if !ok {
			rec = tabular.Record{}
			out[id] = rec
		}
		if len(fields) == 0 {
			for k, v := range f.Properties {
				if k != field {
					rec[k] = v
				}
			}
			continue
		}
		for _, name := range fields {
			if v, ok := f.Properties[name]; ok {
				rec[name] = v
			}
		}
	}
	for id, rec := range out {
		if len(rec) == 0 {
			delete(out, id)
		}
	}
	return out
}

// FilterBBox returns the features whose geometry intersects b, with popup
// properties added. Features without geometry are dropped. The input
// is not modified.
func FilterBBox(fc *geojson.FeatureCollection, b orb.Bound) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !Intersects(f.Geometry, b) {
			continue
		}

		props := f.Properties.Clone()
		if props == nil {
			props = geojson.Properties{}
		}
		props[PopupZip] = valueOr(props, "GEOID", UnknownZip)
		props[PopupRegion] = valueOr(props, "NAMELSAD", UnknownRegion)

		kept := geojson.NewFeature(f.Geometry)
		kept.ID = f.ID
		kept.Properties = props
		out.Append(kept)
	}
	return out
}

func valueOr(props geojson.Properties, key string, fallback any) any {
	if v, ok := props[key]; ok {
		return v
	}
	return fallback
}
