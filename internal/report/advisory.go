package report

import "github.com/vipxkw/ChinaTelecomMonitor/internal/models"

// Advisory metrics.
const (
	MetricFlow       = "flow"
	MetricCommonFlow = "common_flow"
	MetricBalance    = "balance"
)

// Advisory levels.
const (
	LevelCritical = "critical"
	LevelElevated = "elevated"
	LevelNormal   = "normal"
	LevelAmple    = "ample"
	LevelLow      = "low"
	LevelWatch    = "watch"
)

// Advisory is one usage status note.
type Advisory struct {
	Metric  string `json:"metric" yaml:"metric"`
	Level   string `json:"level" yaml:"level"`
	Message string `json:"message" yaml:"message"`
}

// Advisories evaluates the status thresholds of summary. Each metric is
// judged independently; the total-flow note is always present.
func Advisories(summary *models.UsageSummary) []Advisory {
	if summary == nil {
		return nil
	}

	var out []Advisory

	switch pct := summary.Flow.Percent(); {
	case pct >= 90:
		out = append(out, Advisory{MetricFlow, LevelCritical, "⚠️ 总流量即将用完，请注意控制使用"})
	case pct >= 80:
		out = append(out, Advisory{MetricFlow, LevelElevated, "🔶 总流量使用较多，建议适当控制"})
	case pct >= 50:
		out = append(out, Advisory{MetricFlow, LevelNormal, "🟡 总流量使用正常"})
	default:
		out = append(out, Advisory{MetricFlow, LevelAmple, "🟢 总流量充足"})
	}

	switch pct := summary.CommonFlow.Percent(); {
	case pct >= 90:
		out = append(out, Advisory{MetricCommonFlow, LevelCritical, "⚠️ 通用流量即将用完"})
	case pct >= 80:
		out = append(out, Advisory{MetricCommonFlow, LevelElevated, "🔶 通用流量使用较多"})
	}

	switch yuan := summary.BalanceYuan(); {
	case yuan < 10:
		out = append(out, Advisory{MetricBalance, LevelLow, "💸 余额不足，建议及时充值"})
	case yuan < 20:
		out = append(out, Advisory{MetricBalance, LevelWatch, "💰 余额较低，请关注"})
	}

	return out
}
