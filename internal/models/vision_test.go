// ABOUTME: Tests for Vision and the 300% Rule score.
// ABOUTME: Validates clamping and the percent calculation.
package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestVisionScore(t *testing.T) {
	tests := []struct {
		name                         string
		clarity, belief, consistency int
		wantTotal                    int
		wantPercent                  float64
	}{
		{"all zero", 0, 0, 0, 0, 0},
		{"perfect", 100, 100, 100, 300, 100},
		{"mixed", 90, 60, 30, 180, 60},
		{"clamped", 150, -20, 50, 150, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVision(uuid.New(), "Vision")
			v.Clarity, v.Belief, v.Consistency = tt.clarity, tt.belief, tt.consistency
			s := v.Score()
			if s.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", s.Total, tt.wantTotal)
			}
			if s.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", s.Percent, tt.wantPercent)
			}
		})
	}
}

func TestWithScoresClamps(t *testing.T) {
	v := NewVision(uuid.New(), "Vision").WithScores(-5, 101, 42)
	if v.Clarity != 0 || v.Belief != 100 || v.Consistency != 42 {
		t.Errorf("got %d/%d/%d, want 0/100/42", v.Clarity, v.Belief, v.Consistency)
	}
}
