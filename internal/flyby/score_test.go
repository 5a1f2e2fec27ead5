package flyby

import (
	"math"
	"testing"
)

func TestProximityFactor(t *testing.T) {
	cfg := DefaultConfig() // flyby ring 10 km
	const radiusKm = 200.0

	tests := []struct {
		name       string
		distanceKm float64
		want       float64
	}{
		{"at observer", 0, 1.0},
		{"inside flyby ring", 5, 1.0},
		{"on flyby ring", 10, 1.0},
		{"midway", 105, 0.5},
		{"at monitor radius", 200, 0.0},
		{"beyond monitor radius", 300, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proximityFactor(cfg, tt.distanceKm, radiusKm)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("proximityFactor(%v) = %v, want %v", tt.distanceKm, got, tt.want)
			}
		})
	}
}

func TestProximityFactorMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	prev := math.Inf(1)
	for d := 0.0; d <= 250; d += 2.5 {
		got := proximityFactor(cfg, d, 200)
		if got > prev+1e-12 {
			t.Fatalf("proximity increased with distance at %v km: %v > %v", d, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("proximityFactor(%v) = %v, outside [0,1]", d, got)
		}
		prev = got
	}
}

func TestSpeedFactor(t *testing.T) {
	cfg := DefaultConfig() // band 200 / 700 / 950 / 1300 km/h

	tests := []struct {
		name     string
		speedKmh float64
		want     float64
	}{
		{"stationary", 0, 0},
		{"below minimum", 150, 0},
		{"at minimum", 200, 0},
		{"half ramp", 450, 0.5},
		{"at cruise low", 700, 1},
		{"mid cruise", 833, 1},
		{"at cruise high", 950, 1},
		{"implausibly fast midpoint", 1125, 0.5},
		{"at maximum", 1300, 0},
		{"beyond maximum", 2000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := speedFactor(cfg, tt.speedKmh)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("speedFactor(%v) = %v, want %v", tt.speedKmh, got, tt.want)
			}
		})
	}
}

func TestCombineScore(t *testing.T) {
	cfg := DefaultConfig() // weights 0.60 / 0.25 / 0.15

	tests := []struct {
		name    string
		p, h, s float64
		want    float64
	}{
		{"all max", 1, 1, 1, 1.0},
		{"all zero", 0, 0, 0, 0.0},
		{"proximity only", 1, 0, 0, 0.60},
		{"stability only", 0, 1, 0, 0.25},
		{"speed only", 0, 0, 1, 0.15},
		{"mixed", 0.5, 0.8, 1, 0.5*0.60 + 0.8*0.25 + 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := combineScore(cfg, tt.p, tt.h, tt.s)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("combineScore(%v, %v, %v) = %v, want %v", tt.p, tt.h, tt.s, got, tt.want)
			}
		})
	}
}

func TestCombineScoreSingleLowFactorDoesNotZero(t *testing.T) {
	cfg := DefaultConfig()

	// The weighted mean must not behave like an unweighted product: one low
	// factor reduces the score but cannot erase the others.
	got := combineScore(cfg, 1, 1, 0)
	if got <= 0.5 {
		t.Errorf("combineScore(1,1,0) = %v, want > 0.5 (weighted mean, not product)", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero earth radius", func(c *Config) { c.EarthRadiusKm = 0 }, true},
		{"negative flyby ring", func(c *Config) { c.FlybyRadiusKm = -5 }, true},
		{"zero max heading change", func(c *Config) { c.MaxAvgHeadingChangeDeg = 0 }, true},
		{"neutral stability above 1", func(c *Config) { c.NeutralStability = 1.5 }, true},
		{"inverted cruise band", func(c *Config) { c.CruiseLowKmh = 1000; c.CruiseHighKmh = 800 }, true},
		{"weights not summing to 1", func(c *Config) { c.ProximityWeight = 0.9 }, true},
		{"rebalanced weights", func(c *Config) { c.ProximityWeight = 0.5; c.StabilityWeight = 0.3; c.SpeedWeight = 0.2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
