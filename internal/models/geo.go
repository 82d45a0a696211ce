package models

// GeoPoint is a GeoJSON point. Coordinates are always [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

const DefaultMaxDistanceMeters = 5000

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// PointFromLatLng converts a client [lat, lng] pair into a stored point.
func PointFromLatLng(pair []float64) GeoPoint {
	return NewGeoPoint(pair[1], pair[0])
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[1]
}

func validLatLng(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// validateLatLngPair checks a client supplied [lat, lng] pair.
func validateLatLngPair(pair []float64) string {
	if len(pair) == 0 {
		return "Coordinates are required"
	}
	if len(pair) != 2 {
		return "Coordinates must be a [lat, lng] pair"
	}
	if !validLatLng(pair[0], pair[1]) {
		return "Coordinates are out of range"
	}
	return ""
}

// Validate checks a GeoJSON point supplied as-is ([lng, lat]).
func (p GeoPoint) Validate() string {
	if p.Type != "Point" {
		return "Location type must be Point"
	}
	if len(p.Coordinates) != 2 {
		return "Location coordinates must be [lng, lat]"
	}
	if !validLatLng(p.Coordinates[1], p.Coordinates[0]) {
		return "Location coordinates are out of range"
	}
	return ""
}
