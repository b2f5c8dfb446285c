package geo

import "math"

const earthRadiusKM = 6371.0

// Position is an immutable latitude/longitude pair in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Unknown returns the sentinel for an unresolved location.
func Unknown() Position {
	return Position{Latitude: math.NaN(), Longitude: math.NaN()}
}

// IsUnknown reports whether p is the unresolved-location sentinel.
func (p Position) IsUnknown() bool {
	return math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude)
}

// DistanceTo returns the great-circle distance to other in meters.
func (p Position) DistanceTo(other Position) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lon1 := p.Longitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	lon2 := other.Longitude * math.Pi / 180

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c * 1000
}

// Interpolate returns the point a fraction ratio along the straight segment
// from p to other (0 yields p, 1 yields other).
func (p Position) Interpolate(other Position, ratio float64) Position {
	return Position{
		Latitude:  p.Latitude + ratio*(other.Latitude-p.Latitude),
		Longitude: p.Longitude + ratio*(other.Longitude-p.Longitude),
	}
}
