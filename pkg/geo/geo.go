// Package geo holds pure geographic helpers used for ranking and estimates.
package geo

import "math"

const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the length of one degree of latitude on the sphere above.
const kmPerDegreeLat = EarthRadiusKm * math.Pi / 180.0

// HaversineKm returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// EstimatedMinutes is the city-speed ETA: two minutes per kilometre, rounded up.
func EstimatedMinutes(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm * 2))
}

// ValidCoordinates reports whether lat/lng are inside the WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// HasLocation is false for missing and for the 0,0 placeholder.
func HasLocation(lat, lng *float64) bool {
	if lat == nil || lng == nil {
		return false
	}
	return !(*lat == 0 && *lng == 0)
}

// BoundingBox is a coarse prefilter around a point. When the longitude span
// cannot be expressed as a single range (poles, antimeridian) LngBounded is false.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	LngBounded     bool
}

func BoundingBoxAround(lat, lng, radiusKm float64) BoundingBox {
	dLat := radiusKm / kmPerDegreeLat
	box := BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
	}

	cosLat := math.Cos(degreesToRadians(math.Max(math.Abs(lat-dLat), math.Abs(lat+dLat))))
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat < 1e-6 {
		return box
	}

	dLng := radiusKm / (kmPerDegreeLat * cosLat)
	if lng-dLng < -180 || lng+dLng > 180 {
		return box
	}

	box.MinLng = lng - dLng
	box.MaxLng = lng + dLng
	box.LngBounded = true
	return box
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
