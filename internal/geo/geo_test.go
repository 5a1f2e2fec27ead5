package geo

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestDistance(t *testing.T) {
	s := NewSphere(EarthRadiusKm)

	tests := []struct {
		name      string
		a, b      Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Point{Lat: 43.6777, Lon: -79.6248},
			b:         Point{Lat: 43.6777, Lon: -79.6248},
			wantKm:    0,
			tolerance: 1e-9,
		},
		{
			name:      "one degree of latitude",
			a:         Point{Lat: 0, Lon: 0},
			b:         Point{Lat: 1, Lon: 0},
			wantKm:    111.2, // ~111 km per degree on the mean sphere
			tolerance: 0.3,
		},
		{
			name:      "one degree of longitude at equator",
			a:         Point{Lat: 0, Lon: 0},
			b:         Point{Lat: 0, Lon: 1},
			wantKm:    111.2,
			tolerance: 0.3,
		},
		{
			name:      "stockholm to gothenburg",
			a:         Point{Lat: 59.3293, Lon: 18.0686},
			b:         Point{Lat: 57.7089, Lon: 11.9746},
			wantKm:    397,
			tolerance: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Distance(tt.a, tt.b)
			if !almostEqual(got, tt.wantKm, tt.tolerance) {
				t.Errorf("Distance() = %v km, want %v km (±%v)", got, tt.wantKm, tt.tolerance)
			}

			// Symmetry must hold for any pair
			reverse := s.Distance(tt.b, tt.a)
			if !almostEqual(got, reverse, 1e-9) {
				t.Errorf("Distance() not symmetric: %v vs %v", got, reverse)
			}
		})
	}
}

func TestInitialBearing(t *testing.T) {
	s := NewSphere(EarthRadiusKm)

	tests := []struct {
		name      string
		a, b      Point
		want      float64
		tolerance float64
	}{
		{name: "due north", a: Point{Lat: 0, Lon: 0}, b: Point{Lat: 1, Lon: 0}, want: 0, tolerance: 0.01},
		{name: "due east", a: Point{Lat: 0, Lon: 0}, b: Point{Lat: 0, Lon: 1}, want: 90, tolerance: 0.01},
		{name: "due south", a: Point{Lat: 1, Lon: 0}, b: Point{Lat: 0, Lon: 0}, want: 180, tolerance: 0.01},
		{name: "due west", a: Point{Lat: 0, Lon: 1}, b: Point{Lat: 0, Lon: 0}, want: 270, tolerance: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.InitialBearing(tt.a, tt.b)
			if err != nil {
				t.Fatalf("InitialBearing() error = %v", err)
			}
			if !almostEqual(got, tt.want, tt.tolerance) {
				t.Errorf("InitialBearing() = %v, want %v", got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("InitialBearing() = %v, outside [0,360)", got)
			}

			// Reverse bearing differs by ~180 degrees at these short distances
			reverse, err := s.InitialBearing(tt.b, tt.a)
			if err != nil {
				t.Fatalf("InitialBearing() reverse error = %v", err)
			}
			diff := math.Abs(AngularDiff(reverse, got))
			if !almostEqual(diff, 180, 0.1) {
				t.Errorf("reverse bearing %v vs forward %v, separation %v, want ~180", reverse, got, diff)
			}
		})
	}
}

func TestInitialBearingDegenerate(t *testing.T) {
	s := NewSphere(EarthRadiusKm)

	p := Point{Lat: 43.6777, Lon: -79.6248}
	if _, err := s.InitialBearing(p, p); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("InitialBearing() on coincident points: error = %v, want ErrDegenerateGeometry", err)
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	s := NewSphere(EarthRadiusKm)
	origin := Point{Lat: 43.6777, Lon: -79.6248}

	for bearing := 0.0; bearing < 360.0; bearing += 15.0 {
		for _, distKm := range []float64{1, 50, 200, 1000} {
			dest := s.Destination(origin, bearing, distKm)
			if !dest.Valid() {
				t.Fatalf("Destination(%v, %v) produced invalid point %+v", bearing, distKm, dest)
			}
			back := s.Distance(origin, dest)
			if !almostEqual(back, distKm, distKm*1e-6+1e-6) {
				t.Errorf("round trip bearing=%v dist=%v: got %v km back", bearing, distKm, back)
			}
		}
	}
}

func TestCrossTrackDistanceSign(t *testing.T) {
	s := NewSphere(EarthRadiusKm)
	start := Point{Lat: 0, Lon: 0}

	tests := []struct {
		name    string
		point   Point
		bearing float64
		// positive = path passes to the right of the point
		wantSign float64
	}{
		{name: "point west of northbound track", point: Point{Lat: 0.5, Lon: -0.5}, bearing: 0, wantSign: 1},
		{name: "point east of northbound track", point: Point{Lat: 0.5, Lon: 0.5}, bearing: 0, wantSign: -1},
		{name: "point north of eastbound track", point: Point{Lat: 0.5, Lon: 0.5}, bearing: 90, wantSign: 1},
		{name: "point south of eastbound track", point: Point{Lat: -0.5, Lon: 0.5}, bearing: 90, wantSign: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CrossTrackDistance(tt.point, start, tt.bearing)
			if err != nil {
				t.Fatalf("CrossTrackDistance() error = %v", err)
			}
			if got*tt.wantSign <= 0 {
				t.Errorf("CrossTrackDistance() = %v, want sign %v", got, tt.wantSign)
			}
		})
	}
}

func TestCrossTrackOnPathIsZero(t *testing.T) {
	s := NewSphere(EarthRadiusKm)
	start := Point{Lat: 0, Lon: 0}

	// A point straight down an eastbound equatorial track has no cross-track offset
	got, err := s.CrossTrackDistance(Point{Lat: 0, Lon: 1}, start, 90)
	if err != nil {
		t.Fatalf("CrossTrackDistance() error = %v", err)
	}
	if !almostEqual(got, 0, 0.01) {
		t.Errorf("CrossTrackDistance() on-path = %v, want ~0", got)
	}
}

func TestAlongTrackDistance(t *testing.T) {
	s := NewSphere(EarthRadiusKm)
	start := Point{Lat: 0, Lon: 0}

	tests := []struct {
		name     string
		point    Point
		bearing  float64
		wantKm   float64
		positive bool
	}{
		{name: "projection ahead", point: Point{Lat: 0, Lon: 1}, bearing: 90, wantKm: 111.2, positive: true},
		{name: "projection behind", point: Point{Lat: 0, Lon: -1}, bearing: 90, wantKm: 111.2, positive: false},
		{name: "abeam point projects onto start", point: Point{Lat: 1, Lon: 0}, bearing: 90, wantKm: 0, positive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.AlongTrackDistance(tt.point, start, tt.bearing)
			if err != nil {
				t.Fatalf("AlongTrackDistance() error = %v", err)
			}
			if !almostEqual(math.Abs(got), tt.wantKm, 0.5) {
				t.Errorf("AlongTrackDistance() = %v, want magnitude ~%v", got, tt.wantKm)
			}
			if tt.positive && got < -0.001 {
				t.Errorf("AlongTrackDistance() = %v, want >= 0", got)
			}
			if !tt.positive && got > -0.001 && tt.wantKm > 0 {
				t.Errorf("AlongTrackDistance() = %v, want < 0", got)
			}
		})
	}
}

func TestTrackDecompositionPythagorean(t *testing.T) {
	s := NewSphere(EarthRadiusKm)
	start := Point{Lat: 43.0, Lon: -79.0}
	bearing := 235.0

	// Within the monitoring scale (tens of km) the spherical decomposition is
	// close to planar: d13^2 ~ xt^2 + at^2.
	points := []Point{
		{Lat: 43.2, Lon: -79.4},
		{Lat: 42.9, Lon: -79.3},
		{Lat: 43.05, Lon: -78.8},
	}

	for _, p := range points {
		xt, err := s.CrossTrackDistance(p, start, bearing)
		if err != nil {
			t.Fatalf("CrossTrackDistance() error = %v", err)
		}
		at, err := s.AlongTrackDistance(p, start, bearing)
		if err != nil {
			t.Fatalf("AlongTrackDistance() error = %v", err)
		}
		d13 := s.Distance(start, p)

		composed := math.Sqrt(xt*xt + at*at)
		if !almostEqual(composed, d13, d13*0.01) {
			t.Errorf("decomposition mismatch at %+v: sqrt(xt^2+at^2)=%v, d13=%v", p, composed, d13)
		}
	}
}

func TestNormalizeBearing(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0}, {360, 0}, {720, 0}, {-90, 270}, {450, 90}, {359.5, 359.5},
	}
	for _, tt := range tests {
		if got := NormalizeBearing(tt.in); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("NormalizeBearing(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAngularDiff(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{2, 358, 4},    // wrap through north
		{358, 2, -4},   // wrap the other way
		{90, 0, 90},    //
		{0, 180, -180}, // exact opposition normalizes to -180
		{270, 90, -180},
	}
	for _, tt := range tests {
		if got := AngularDiff(tt.a, tt.b); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("AngularDiff(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompassPoint(t *testing.T) {
	tests := []struct {
		bearing float64
		want    string
	}{
		{0, "N"}, {22.4, "N"}, {22.6, "NE"}, {45, "NE"}, {90, "E"},
		{135, "SE"}, {180, "S"}, {225, "SW"}, {270, "W"}, {315, "NW"}, {337.6, "N"}, {359.9, "N"},
	}
	for _, tt := range tests {
		if got := CompassPoint(tt.bearing); got != tt.want {
			t.Errorf("CompassPoint(%v) = %q, want %q", tt.bearing, got, tt.want)
		}
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"valid", Point{Lat: 43.7, Lon: -79.6}, true},
		{"lat too high", Point{Lat: 90.1, Lon: 0}, false},
		{"lon too low", Point{Lat: 0, Lon: -180.1}, false},
		{"nan lat", Point{Lat: math.NaN(), Lon: 0}, false},
		{"inf lon", Point{Lat: 0, Lon: math.Inf(1)}, false},
		{"poles ok", Point{Lat: -90, Lon: 180}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
