package ui

import (
	"slices"
	"strings"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the most recent width rates as block runes, scaled between
// the lowest and highest rate in that window. Runs missing from the window
// are drawn as spaces on the left so the line always spans width cells.
// A flat series draws at full height; non-positive rates draw at the floor.
func Sparkline(rates []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(rates) > width {
		rates = rates[len(rates)-width:]
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width-len(rates)))
	if len(rates) == 0 {
		return b.String()
	}

	lo, hi := slices.Min(rates), slices.Max(rates)
	top := len(sparkRunes) - 1
	for _, v := range rates {
		switch {
		case v <= 0:
			b.WriteRune(sparkRunes[0])
		case hi == lo:
			b.WriteRune(sparkRunes[top])
		default:
			b.WriteRune(sparkRunes[int((v-lo)*float64(top)/(hi-lo))])
		}
	}
	return b.String()
}
