package geo

import (
	"errors"
	"math"
)

// Conversion factors
const (
	KmhPerKnot    = 1.852   // km/h per knot
	FeetPerMeter  = 3.28084 // feet per meter
	MetersPerNM   = 1852.0  // meters per nautical mile
	EarthRadiusKm = 6371.0  // mean Earth radius in km
)

// ErrDegenerateGeometry is returned when two points coincide and a bearing
// (or a path decomposition) between them is undefined.
var ErrDegenerateGeometry = errors.New("degenerate geometry: coincident points")

// coincidentEpsilonDeg is the coordinate delta below which two points are
// treated as the same point for bearing purposes (~1 m at the equator).
const coincidentEpsilonDeg = 1e-8

// Point is an immutable WGS84-style lat/lon pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point has finite, in-range coordinates.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// coincident reports whether two points are close enough that the bearing
// between them is meaningless.
func coincident(a, b Point) bool {
	return math.Abs(a.Lat-b.Lat) < coincidentEpsilonDeg && math.Abs(a.Lon-b.Lon) < coincidentEpsilonDeg
}

// Sphere performs great-circle computations on a sphere of fixed radius.
// All distances are in kilometers, all angles in degrees.
type Sphere struct {
	RadiusKm float64
}

// NewSphere returns a Sphere with the given radius, falling back to the
// mean Earth radius when the value is not positive.
func NewSphere(radiusKm float64) Sphere {
	if radiusKm <= 0 {
		radiusKm = EarthRadiusKm
	}
	return Sphere{RadiusKm: radiusKm}
}

// Distance calculates the haversine great-circle distance in km between two points.
func (s Sphere) Distance(a, b Point) float64 {
	rad := math.Pi / 180.0

	lat1 := a.Lat * rad
	lat2 := b.Lat * rad
	dlat := (b.Lat - a.Lat) * rad
	dlon := (b.Lon - a.Lon) * rad

	h := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return s.RadiusKm * c
}

// InitialBearing calculates the initial great-circle bearing from a to b,
// normalized to [0,360). Returns ErrDegenerateGeometry when the points coincide.
func (s Sphere) InitialBearing(a, b Point) (float64, error) {
	if coincident(a, b) {
		return 0, ErrDegenerateGeometry
	}

	rad := math.Pi / 180.0
	lat1 := a.Lat * rad
	lat2 := b.Lat * rad
	dlon := (b.Lon - a.Lon) * rad

	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	bearing := math.Atan2(y, x) * 180.0 / math.Pi

	return NormalizeBearing(bearing), nil
}

// Destination calculates the point reached by travelling distanceKm from
// origin along the great circle leaving on the given initial bearing.
func (s Sphere) Destination(origin Point, bearingDeg, distanceKm float64) Point {
	rad := math.Pi / 180.0
	lat1 := origin.Lat * rad
	lon1 := origin.Lon * rad
	theta := bearingDeg * rad
	delta := distanceKm / s.RadiusKm // angular distance

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	// Wrap longitude back into [-180,180]
	lonDeg := math.Mod(lon2*180.0/math.Pi+540.0, 360.0) - 180.0

	return Point{Lat: lat2 * 180.0 / math.Pi, Lon: lonDeg}
}

// CrossTrackDistance calculates the signed perpendicular distance in km from
// point to the great-circle path leaving pathStart on pathBearing.
//
// Sign convention: positive means the path passes to the RIGHT of the point
// when looking along the bearing (the point lies left of the track);
// negative means the path passes to the point's left.
func (s Sphere) CrossTrackDistance(point, pathStart Point, pathBearingDeg float64) (float64, error) {
	if coincident(point, pathStart) {
		return 0, nil
	}

	bearingToPoint, err := s.InitialBearing(pathStart, point)
	if err != nil {
		return 0, err
	}

	rad := math.Pi / 180.0
	delta13 := s.Distance(pathStart, point) / s.RadiusKm

	sinXT := math.Sin(delta13) * math.Sin((pathBearingDeg-bearingToPoint)*rad)
	sinXT = math.Max(-1.0, math.Min(1.0, sinXT))

	return math.Asin(sinXT) * s.RadiusKm, nil
}

// AlongTrackDistance calculates the signed distance in km along the path from
// pathStart to the projection of point onto the path. Negative values mean the
// projection lies behind the path's start.
func (s Sphere) AlongTrackDistance(point, pathStart Point, pathBearingDeg float64) (float64, error) {
	if coincident(point, pathStart) {
		return 0, nil
	}

	bearingToPoint, err := s.InitialBearing(pathStart, point)
	if err != nil {
		return 0, err
	}

	rad := math.Pi / 180.0
	delta13 := s.Distance(pathStart, point) / s.RadiusKm

	sinXT := math.Sin(delta13) * math.Sin((pathBearingDeg-bearingToPoint)*rad)
	sinXT = math.Max(-1.0, math.Min(1.0, sinXT))
	deltaXT := math.Asin(sinXT)

	cosAT := math.Cos(delta13) / math.Cos(deltaXT)
	cosAT = math.Max(-1.0, math.Min(1.0, cosAT))
	deltaAT := math.Acos(cosAT)

	// The projection is behind the start when the point sits more than 90
	// degrees off the path bearing.
	if math.Abs(AngularDiff(bearingToPoint, pathBearingDeg)) > 90 {
		deltaAT = -deltaAT
	}

	return deltaAT * s.RadiusKm, nil
}

// NormalizeBearing wraps a bearing in degrees into [0,360).
func NormalizeBearing(deg float64) float64 {
	norm := math.Mod(deg, 360.0)
	if norm < 0 {
		norm += 360.0
	}
	return norm
}

// AngularDiff returns the shortest signed angular difference a-b in degrees,
// in the range [-180,180]. A turn from 358 to 2 is +4, not -356.
func AngularDiff(a, b float64) float64 {
	return math.Mod(a-b+540.0, 360.0) - 180.0
}

// compassPoints are the 8-wind rose labels, 45 degrees apart starting at north.
var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CompassPoint converts a bearing in degrees to its nearest 8-wind compass label.
func CompassPoint(bearingDeg float64) string {
	ix := int(math.Mod(NormalizeBearing(bearingDeg)+22.5, 360.0) / 45.0)
	return compassPoints[ix]
}

// KnotsToKmh converts a speed in knots to km/h.
func KnotsToKmh(knots float64) float64 {
	return knots * KmhPerKnot
}

// FeetToMeters converts feet to meters.
func FeetToMeters(feet float64) float64 {
	return feet / FeetPerMeter
}
