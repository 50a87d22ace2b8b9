package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

func TestRenderLineChart(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	s := RenderLineChart(data, 20, 5, "Test")
	if s == "" {
		t.Error("RenderLineChart returned empty")
	}
	if !strings.Contains(s, "Test") {
		t.Error("RenderLineChart missing caption")
	}

	if s := RenderLineChart(nil, 20, 5, "Empty"); !strings.Contains(s, "No data available") {
		t.Errorf("RenderLineChart(nil) = %q", s)
	}
}

func TestRenderFlowChart(t *testing.T) {
	s := RenderFlowChart([]float64{1, 2, 3}, []float64{3, 2}, 20, 5, "Flow")
	if s == "" {
		t.Error("RenderFlowChart returned empty")
	}
	if s := RenderFlowChart(nil, nil, 20, 5, "Flow"); !strings.Contains(s, "No data available") {
		t.Errorf("RenderFlowChart(nil, nil) = %q", s)
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"Rising", []float64{0, 7}, 10, "▁█"},
		{"Flat", []float64{0, 0, 0}, 10, "▁▁▁"},
		{"Sampled", []float64{0, 1, 2, 3, 4, 5, 6, 7}, 4, "▁▃▅▇"},
		{"Empty", nil, 10, ""},
		{"ZeroWidth", []float64{1}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderSparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("RenderSparkline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderColoredSparkline(t *testing.T) {
	data := []float64{1, 2, 3}
	s := RenderColoredSparkline(data, 10)
	if got := ansi.Strip(s); got != RenderSparkline(data, 10) {
		t.Errorf("stripped colored sparkline = %q, want %q", got, RenderSparkline(data, 10))
	}
}

func TestRenderLegend(t *testing.T) {
	items := []LegendItem{
		{Label: "A", Color: lipgloss.Color("#ffffff")},
		{Label: "B", Color: lipgloss.Color("#000000")},
	}
	s := ansi.Strip(RenderLegend(items))
	if s != "■ A  ■ B" {
		t.Errorf("RenderLegend() = %q", s)
	}
}

func TestUsageBar(t *testing.T) {
	bar := NewUsageBar("流量", 10)
	if bar.Label() != "流量" {
		t.Errorf("Label() = %q", bar.Label())
	}

	tests := []struct {
		percent float64
		want    string
	}{
		{50, "50.0%"},
		{-5, "0.0%"},
		{150, "100.0%"},
	}
	for _, tt := range tests {
		view := ansi.Strip(bar.ViewAs(tt.percent))
		if !strings.Contains(view, tt.want) {
			t.Errorf("ViewAs(%v) = %q, want containing %q", tt.percent, view, tt.want)
		}
		if !strings.HasPrefix(view, "流量") {
			t.Errorf("ViewAs(%v) = %q, want label prefix", tt.percent, view)
		}
	}

	view := ansi.Strip(bar.ViewQuantity(models.Quantity{Used: 9216, Total: 10240}))
	if !strings.Contains(view, "90.0%") {
		t.Errorf("ViewQuantity() = %q", view)
	}
}

func TestUsageBar_DefaultWidth(t *testing.T) {
	bar := NewUsageBar("", 0)
	view := ansi.Strip(bar.ViewAs(100))
	if !strings.Contains(view, strings.Repeat("█", defaultBarWidth)) {
		t.Errorf("ViewAs(100) = %q, want %d filled cells", view, defaultBarWidth)
	}
}
