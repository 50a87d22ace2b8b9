package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui/styles"
)

const defaultBarWidth = 20

// UsageBar renders a consumed-share gradient bar with label and percentage.
type UsageBar struct {
	progress progress.Model
	label    string
}

// NewUsageBar creates a usage bar of the given width.
func NewUsageBar(label string, width int) UsageBar {
	if width <= 0 {
		width = defaultBarWidth
	}
	p := progress.New(
		progress.WithScaledGradient("#51cf66", "#ff6b6b"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return UsageBar{progress: p, label: label}
}

// Label returns the bar label.
func (b UsageBar) Label() string {
	return b.label
}

// ViewAs renders the bar for a consumed percentage in [0,100].
func (b UsageBar) ViewAs(percent float64) string {
	percent = min(max(percent, 0), 100)
	bar := b.progress.ViewAs(percent / 100)
	pct := styles.GetUsageStyle(percent).Inherit(styles.ProgressPercentStyle).
		Render(fmt.Sprintf("%.1f%%", percent))

	if b.label == "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, bar, pct)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.ProgressLabelStyle.Render(b.label), bar, pct)
}

// ViewQuantity renders the bar for a used/total quantity.
func (b UsageBar) ViewQuantity(q models.Quantity) string {
	return b.ViewAs(q.Percent())
}
