package mapview

import (
	"fmt"

	"github.com/UnknownOlympus/mapview/internal/models"
)

// DefaultZoom is the fixed zoom level the page renders at.
const DefaultZoom = 15

// ViewState is everything the page shows. PopupCoordinate is set together
// with Coordinate by every handler that moves the point.
type ViewState struct {
	Address         string             `json:"address"`
	Coordinate      models.Coordinates `json:"coordinate"`
	PopupVisible    bool               `json:"popupVisible"`
	PopupCoordinate models.Coordinates `json:"popupCoordinate"`
}

// Frame is the rendered projection of a ViewState.
type Frame struct {
	Address string             `json:"address"`
	Center  models.Coordinates `json:"center"`
	Zoom    int                `json:"zoom"`
	Marker  Marker             `json:"marker"`
	Popup   *Popup             `json:"popup,omitempty"`
}

type Marker struct {
	Position  models.Coordinates `json:"position"`
	Draggable bool               `json:"draggable"`
}

type Popup struct {
	Position models.Coordinates `json:"position"`
	Text     string             `json:"text"`
}

// Render builds the frame for s: the map centers on the coordinate, the marker
// sits on it, and the popup is present only while visible.
func (s ViewState) Render() Frame {
	frame := Frame{
		Address: s.Address,
		Center:  s.Coordinate,
		Zoom:    DefaultZoom,
		Marker:  Marker{Position: s.Coordinate, Draggable: true},
	}
	if s.PopupVisible {
		frame.Popup = &Popup{Position: s.PopupCoordinate, Text: PopupText(s.Coordinate)}
	}

	return frame
}

// PopupText is the label shown in the info popup.
func PopupText(c models.Coordinates) string {
	return fmt.Sprintf("Latitude: %s\nLongitude: %s", models.FormatDegrees(c.Latitude), models.FormatDegrees(c.Longitude))
}
