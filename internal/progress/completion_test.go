package progress

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitAndFinished_Threshold(t *testing.T) {
	r := Result{Total: 100}
	assert.Equal(t, 90.0, Limit(r, 90))

	r.Current = 89
	assert.False(t, Finished(r, 90))
	r.Current = 90
	assert.True(t, Finished(r, 90))
}

func TestFinished_MatchesFloorRule(t *testing.T) {
	for total := 1.0; total <= 60; total++ {
		for _, pct := range []float64{1, 33, 50, 70, 90, 99, 100} {
			limit := math.Floor(total * pct / 100)
			for current := 0.0; current <= total; current++ {
				want := limit < 1 || current >= limit
				got := Finished(Result{Current: current, Total: total}, pct)
				if got != want {
					t.Fatalf("Finished(%v/%v @%v%%) = %v, want %v", current, total, pct, got, want)
				}
			}
		}
	}
}

func TestFinished_LimitBelowOne(t *testing.T) {
	assert.True(t, Finished(Result{Current: 0, Total: 1}, 50))
	assert.True(t, Finished(Result{Current: 0, Total: 0}, 90))
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name string
		r    Result
		pct  float64
		want float64
	}{
		{"zero total", Result{Current: 5, Total: 0}, 90, 0},
		{"halfway", Result{Current: 45, Total: 100}, 90, 0.5},
		{"past limit", Result{Current: 99, Total: 100}, 90, 1},
		{"negative current", Result{Current: -3, Total: 100}, 90, 0},
		{"limit below one", Result{Current: 0, Total: 1}, 50, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentage(tt.r, tt.pct), 1e-9)
		})
	}
}

func TestPercentage_AlwaysInRange(t *testing.T) {
	for total := 0.0; total <= 40; total++ {
		for current := -2.0; current <= total+2; current++ {
			for _, pct := range []float64{0, 10, 90, 100} {
				p := Percentage(Result{Current: current, Total: total}, pct)
				if p < 0 || p > 1 || math.IsNaN(p) {
					t.Fatalf("Percentage(%v/%v @%v%%) = %v out of range", current, total, pct, p)
				}
			}
		}
	}
}
