package models

// LocationReport is the body POSTed to the collection endpoint.
// Coordinates are decimal degrees, passed through without rounding.
type LocationReport struct {
	SessionID string  `json:"sessionId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
