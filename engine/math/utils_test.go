package math

import "testing"

func TestClamp(t *testing.T) {
	tests := []struct {
		name            string
		v, low, high, w uint32
	}{
		{"inside", 800, 1, 4096, 800},
		{"below", 0, 1, 4096, 1},
		{"above", 8000, 1, 4096, 4096},
		{"degenerate range", 5, 7, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.low, tt.high); got != tt.w {
				t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tt.v, tt.low, tt.high, got, tt.w)
			}
		})
	}

	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("Clamp(1.5, 0, 1) = %f, want 1", got)
	}
}
