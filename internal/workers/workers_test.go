package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "limit caps the count",
			multiplier: 100.0,
			limit:      3,
			minExpect:  1,
			maxExpect:  3,
		},
		{
			name:       "tiny multiplier still yields one worker",
			multiplier: 0.0001,
			minExpect:  1,
			maxExpect:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		limit int
		want  int
	}{
		{name: "override applies", env: "7", limit: 0, want: 7},
		{name: "override respects limit", env: "7", limit: 4, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.env)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		configured int
		want       int
	}{
		{name: "configured value wins without override", configured: 5, want: 5},
		{name: "override beats configuration", env: "2", configured: 5, want: 2},
		{name: "invalid override is ignored", env: "zero", configured: 5, want: 5},
		{name: "negative override is ignored", env: "-3", configured: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.env)
			if got := Resolve(tt.configured, 16); got != tt.want {
				t.Errorf("Resolve(%d) = %d, want %d", tt.configured, got, tt.want)
			}
		})
	}
}

func TestResolveFallsBackToMixed(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	got := Resolve(0, 2)
	if got < 1 || got > 2 {
		t.Errorf("Resolve(0, 2) = %d, want 1..2", got)
	}
}
