package server

import (
	"github.com/UnknownOlympus/mapview/internal/mapview"
	"github.com/UnknownOlympus/mapview/internal/models"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// frameFeatures exports the marker and, when shown, the popup as GeoJSON points.
func frameFeatures(frame mapview.Frame) *geojson.FeatureCollection {
	features := []*geojson.Feature{{
		ID:       "marker",
		Geometry: point(frame.Marker.Position),
		Properties: map[string]any{
			"kind":      "marker",
			"draggable": frame.Marker.Draggable,
			"zoom":      frame.Zoom,
			"address":   frame.Address,
		},
	}}

	if frame.Popup != nil {
		features = append(features, &geojson.Feature{
			ID:         "popup",
			Geometry:   point(frame.Popup.Position),
			Properties: map[string]any{"kind": "popup", "text": frame.Popup.Text},
		})
	}

	return &geojson.FeatureCollection{Features: features}
}

// GeoJSON positions are [longitude, latitude].
func point(c models.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Longitude, c.Latitude})
}
