package services

import (
	"math"

	"github.com/ecosync/backend/internal/models"
)

// earthRadiusMeters matches the radius MongoDB uses for spherical queries.
const earthRadiusMeters = 6378100.0

// haversineDistance calculates distance between two points in metres
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func maxDistanceOrDefault(d float64) float64 {
	if d <= 0 {
		return models.DefaultMaxDistanceMeters
	}
	return d
}
