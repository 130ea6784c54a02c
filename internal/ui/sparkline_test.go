package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name  string
		rates []float64
		width int
		want  string
	}{
		{"zero width", []float64{1, 2, 3}, 0, ""},
		{"no history", nil, 4, "    "},
		{"single run", []float64{100}, 5, "    █"},
		{"flat", []float64{5, 5, 5, 5}, 4, "████"},
		{"rising", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 8, "▁▂▃▄▅▆▇█"},
		{"keeps latest", []float64{90, 10, 20, 30}, 3, "▁▄█"},
		{"failed runs", []float64{0, 4, 8}, 3, "▁▄█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sparkline(tt.rates, tt.width)
			assert.Equal(t, tt.want, got)
			assert.Len(t, []rune(got), tt.width)
		})
	}
}
