// Package styles defines the visual styling for console output.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

// Color definitions for the console theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("39")  // Telecom blue
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// HelpStyle is used for hints and empty states.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	Padding(0, 1)

// TableCellStyle styles table cells.
var TableCellStyle = lipgloss.NewStyle().
	Padding(0, 1)

// ProgressLabelStyle styles usage bar labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(10)

// ProgressPercentStyle styles the percentage display.
var ProgressPercentStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Width(7).
	Align(lipgloss.Right)

// UsageLowStyle for usage below 50%.
var UsageLowStyle = lipgloss.NewStyle().
	Foreground(Success)

// UsageMediumStyle for usage between 50% and 80%.
var UsageMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

// UsageHighStyle for usage of 80% and above.
var UsageHighStyle = lipgloss.NewStyle().
	Foreground(Error).
	Bold(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// GetUsageStyle returns the style for a consumed percentage. The thresholds
// follow the report's flow advisories.
func GetUsageStyle(percentUsed float64) lipgloss.Style {
	switch {
	case percentUsed >= 80:
		return UsageHighStyle
	case percentUsed >= 50:
		return UsageMediumStyle
	default:
		return UsageLowStyle
	}
}

// GetStatusStyle returns the style for an account outcome.
func GetStatusStyle(status models.OutcomeStatus) lipgloss.Style {
	switch status {
	case models.OutcomeOK:
		return SuccessTextStyle
	case models.OutcomeThrottled, models.OutcomeInvalid:
		return WarningTextStyle
	default:
		return ErrorTextStyle
	}
}

// GetFailCountStyle returns the style for a login failure counter against
// its threshold.
func GetFailCountStyle(count, threshold int) lipgloss.Style {
	switch {
	case count >= threshold:
		return UsageHighStyle
	case count > 0:
		return WarningTextStyle
	default:
		return SuccessTextStyle
	}
}
