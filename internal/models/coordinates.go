package models

import "strconv"

// Coordinates represents a geographical point defined by its latitude and longitude.
type Coordinates struct {
	Latitude  float64 `json:"lat"` // Latitude of the geographical point.
	Longitude float64 `json:"lng"` // Longitude of the geographical point.
}

// String formats the point as "lat,lng" with the shortest exact decimal representation.
func (c Coordinates) String() string {
	return FormatDegrees(c.Latitude) + "," + FormatDegrees(c.Longitude)
}

// FormatDegrees renders a coordinate component without trailing zeros.
func FormatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
