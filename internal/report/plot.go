package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// PlotDepths renders one depth curve per lane across the sweep's
// ticks.
func PlotDepths(rows []TickRow) string {
	if len(rows) == 0 {
		return "no ticks recorded"
	}

	lanes := make([]string, 0, len(rows[0].Depths))
	for lane := range rows[0].Depths {
		lanes = append(lanes, lane)
	}
	sort.Strings(lanes)

	var sb strings.Builder
	for _, lane := range lanes {
		data := make([]float64, len(rows))
		for i := range rows {
			data[i] = rows[i].Depths[lane]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("contact depth: %s", lane)),
		)
		sb.WriteString(graph)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// PlotAgreement renders the running agreement ratio over the sweep.
func PlotAgreement(rows []TickRow) string {
	if len(rows) == 0 {
		return "no ticks recorded"
	}
	data := make([]float64, len(rows))
	agreed := 0
	for i := range rows {
		if rows[i].Agree {
			agreed++
		}
		data[i] = float64(agreed) / float64(i+1)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("running agreement ratio"),
	)
}
