package models

import "math"

const earthRadiusKm = 6371.0

// MaxSearchRadiusKm bounds nearby queries.
const MaxSearchRadiusKm = 500.0

// Location is where the goods can be picked up or dropped off.
type Location struct {
	Address string
	Lat     float64
	Lng     float64
}

// GeoPoint is a bare coordinate used as a search origin.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Point drops the address.
func (l Location) Point() GeoPoint {
	return GeoPoint{Lat: l.Lat, Lng: l.Lng}
}

// Valid reports whether the coordinate lies on the globe.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// DistanceKm is the haversine great-circle distance between p and q.
func (p GeoPoint) DistanceKm(q GeoPoint) float64 {
	lat1, lat2 := radians(p.Lat), radians(q.Lat)
	dLat := lat2 - lat1
	dLng := radians(q.Lng - p.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// GeoQuery restricts results to a radius around Origin.
type GeoQuery struct {
	Origin   GeoPoint
	RadiusKm float64
}

// RadiusRadians converts the radius into the angular distance used by
// spherical index queries.
func (g GeoQuery) RadiusRadians() float64 {
	return g.RadiusKm / earthRadiusKm
}

// Contains reports whether p lies within the query radius.
func (g GeoQuery) Contains(p GeoPoint) bool {
	return g.Origin.DistanceKm(p) <= g.RadiusKm
}
