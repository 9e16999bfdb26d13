package service

import (
	"math"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

const earthRadiusMeters = 6371000

// HaversineMeters is the great-circle distance between two fixes. The
// tolerance gate compares against this exact formula.
func HaversineMeters(a, b domain.GeoFix) float64 {
	return haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
