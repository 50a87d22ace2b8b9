// Package components provides reusable console rendering components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui/styles"
)

// ChartColors defines colors for chart elements.
var (
	ChartTotalColor  = lipgloss.Color("#4285f4")
	ChartCommonColor = lipgloss.Color("#cc785c")
)

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption(caption),
	)
}

// RenderFlowChart plots total flow against common flow usage.
func RenderFlowChart(total, common []float64, width, height int, caption string) string {
	if len(total) == 0 && len(common) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	// Normalize lengths - pad shorter series with zeros
	n := max(len(total), len(common))
	totalData := make([]float64, n)
	commonData := make([]float64, n)
	copy(totalData, total)
	copy(commonData, common)

	return asciigraph.PlotMany([][]float64{totalData, commonData},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(
			asciigraph.Blue,
			asciigraph.Red,
		),
	)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	return sparkline(values, width, nil)
}

// RenderColoredSparkline creates a sparkline colored by consumption.
func RenderColoredSparkline(values []float64, width int) string {
	return sparkline(values, width, func(val, maxVal float64) lipgloss.Style {
		return styles.GetUsageStyle(val / maxVal * 100)
	})
}

func sparkline(values []float64, width int, style func(val, maxVal float64) lipgloss.Style) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	// Find max value
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Sample values to fit width
	var result strings.Builder
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := int((val / maxVal) * float64(len(sparkChars)-1))
		normalized = min(max(normalized, 0), len(sparkChars)-1)

		char := string(sparkChars[normalized])
		if style != nil {
			char = style(val, maxVal).Render(char)
		}
		result.WriteString(char)
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
