package tui

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// PlotTrajectory renders every species' biomass series as one terminal chart.
// Nutrient pools beyond index s are skipped; names label the legend.
func PlotTrajectory(states [][]float64, s int, names []string) string {
	if len(states) < 2 {
		return "not enough samples to plot\n"
	}

	series := make([][]float64, s)
	for i := 0; i < s; i++ {
		series[i] = make([]float64, len(states))
		for k := range states {
			series[i][k] = states[k][i]
		}
	}

	chart := asciigraph.PlotMany(series,
		asciigraph.Height(14), asciigraph.Width(70),
		asciigraph.SeriesColors(speciesColors(s)...))

	var b strings.Builder
	b.WriteString(chart)
	b.WriteString("\n\n")
	for i := 0; i < s; i++ {
		final := series[i][len(series[i])-1]
		b.WriteString(fmt.Sprintf("  %-16s final biomass %.4f\n", names[i], final))
	}
	return b.String()
}

func speciesColors(s int) []asciigraph.AnsiColor {
	palette := []asciigraph.AnsiColor{
		asciigraph.Green, asciigraph.Red, asciigraph.Blue,
		asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta,
	}
	colors := make([]asciigraph.AnsiColor, s)
	for i := range colors {
		colors[i] = palette[i%len(palette)]
	}
	return colors
}
