package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

const (
	inspectorHeight = 10
	legendWidth     = 26
)

var tagColors = []lipgloss.Color{"39", "208", "42", "201", "196", "226", "51", "244"}

type tagCount struct {
	tag   string
	count int
}

func sortedCounts(counts map[string]int) []tagCount {
	out := make([]tagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, tagCount{tag: tag, count: n})
	}
	slices.SortFunc(out, func(a, b tagCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.tag, b.tag)
	})
	return out
}

// renderInspector draws dispatched message counts per tag as a bar chart
// with a legend.
func renderInspector(counts map[string]int, total uint64, width, height int) string {
	innerWidth := max(width-2, 1)
	contentLines := max(height-3, 1)

	header := fmt.Sprintf("Messages  total %d", total)
	title := titleStyle.Render(header)

	data := sortedCounts(counts)
	if len(data) == 0 {
		content := helpStyle.Render("No messages yet")
		return sectionStyle.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	chartWidth := max(innerWidth-legendWidth-2, 10)
	maxBars := max(chartWidth/2, 1)
	if len(data) > maxBars {
		data = data[:maxBars]
	}
	if len(data) > contentLines {
		// One legend line per bar.
		data = data[:contentLines]
	}

	bc := barchart.New(chartWidth, contentLines,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	var legendLines []string
	for i, tc := range data {
		color := tagColors[i%len(tagColors)]
		style := lipgloss.NewStyle().Foreground(color).Background(color)
		bc.Push(barchart.BarData{
			Label: "",
			Values: []barchart.BarValue{
				{Name: tc.tag, Value: float64(tc.count), Style: style},
			},
		})

		label := tc.tag
		if len(label) > legendWidth-8 {
			label = label[:legendWidth-9] + "…"
		}
		line := fmt.Sprintf("%-*s%6d", legendWidth-8, label, tc.count)
		legendLines = append(legendLines, lipgloss.NewStyle().Foreground(color).Render(line))
	}
	bc.Draw()

	chartLines := strings.Split(bc.View(), "\n")
	var combined []string
	for i := range contentLines {
		chartLine, legendLine := "", ""
		if i < len(chartLines) {
			chartLine = chartLines[i]
		}
		if i < len(legendLines) {
			legendLine = legendLines[i]
		}
		if w := lipgloss.Width(chartLine); w < chartWidth {
			chartLine += strings.Repeat(" ", chartWidth-w)
		}
		combined = append(combined, chartLine+"  "+legendLine)
	}

	content := strings.Join(combined, "\n")
	return sectionStyle.Width(innerWidth).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}
