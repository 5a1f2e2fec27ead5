package flyby

import "testing"

func TestFlybyInfo(t *testing.T) {
	tests := []struct {
		name string
		pred Prediction
		want string
	}{
		{
			name: "compass and bearing",
			pred: Prediction{ClosestDistanceKm: 3.4, ApproachCompass: "NE", ApproachBearingDeg: 42.3},
			want: "3 km NE (42)",
		},
		{
			name: "overhead rounds to zero",
			pred: Prediction{ClosestDistanceKm: 0.2, ApproachCompass: "N", ApproachBearingDeg: 0},
			want: "0 km N (0)",
		},
		{
			name: "degenerate geometry has no bearing",
			pred: Prediction{ClosestDistanceKm: 12, Degenerate: true},
			want: "12 km N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.FlybyInfo(); got != tt.want {
				t.Errorf("FlybyInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}
