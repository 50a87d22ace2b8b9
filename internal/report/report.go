// Package report renders usage summaries as the text report sent to
// notifiers.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/flux"
)

// TimeLayout is the layout used for every timestamp in a report.
const TimeLayout = "2006-01-02 15:04:05"

const (
	barSegments = 10
	barFilled   = "█"
	barEmpty    = "░"
	maskFill    = "****"
)

// ProgressBar renders a 10-segment bar followed by the percentage. The
// percentage is clamped to [0, 100].
func ProgressBar(pct float64) string {
	if math.IsNaN(pct) {
		pct = 0
	}
	pct = math.Max(0, math.Min(100, pct))

	filled := int(math.Round(pct / 10))
	filled = max(0, min(barSegments, filled))

	return fmt.Sprintf("[%s%s] %.1f%%",
		strings.Repeat(barFilled, filled),
		strings.Repeat(barEmpty, barSegments-filled),
		pct)
}

// MaskPhone hides the middle four digits of an 11-digit phone number.
// Any other identifier is returned unchanged.
func MaskPhone(id string) string {
	if len(id) != 11 || !isDigits(id) {
		return id
	}
	return id[:3] + maskFill + id[7:]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Render builds the full report for summary. packageText is the provider's
// package listing; an empty string omits the package section.
func Render(summary *models.UsageSummary, packageText string) string {
	if summary == nil {
		return ""
	}

	ts := summary.CreatedAt.Format(TimeLayout)
	var b strings.Builder

	b.WriteString("📱 电信使用量查询结果\n\n")

	b.WriteString("👤 用户信息\n")
	fmt.Fprintf(&b, "├─ 手机号码：%s\n", MaskPhone(summary.Phone))
	fmt.Fprintf(&b, "└─ 查询时间：%s\n\n", ts)

	fmt.Fprintf(&b, "💰 账户余额：%.2f元\n\n", summary.BalanceYuan())

	v := summary.Voice
	b.WriteString("📞 语音通话\n")
	fmt.Fprintf(&b, "├─ 使用情况：%s\n", ProgressBar(v.Percent()))
	fmt.Fprintf(&b, "└─ 总量：%d分钟 | 已用：%d分钟 | 余量：%d分钟\n\n", v.Total, v.Used, v.Remaining)

	writeMBSection(&b, "📊 总流量统计", summary.Flow)
	writeMBSection(&b, "🌐 通用流量", summary.CommonFlow)

	s := summary.SpecialFlow
	b.WriteString("🎯 专用流量\n")
	fmt.Fprintf(&b, "├─ 使用情况：%s\n", ProgressBar(s.Percent()))
	fmt.Fprintf(&b, "└─ 总量：%d KB | 已用：%d KB | 余量：%d KB", s.Total, s.Used, s.Total-s.Used)

	if len(summary.FlowItems) > 0 {
		b.WriteString("\n\n📋 流量明细")
		for _, item := range summary.FlowItems {
			q := item.Quantity()
			fmt.Fprintf(&b, "\n└─ 📦 %s", item.Name)
			fmt.Fprintf(&b, "\n├─ 使用情况：%s", ProgressBar(q.Percent()))
			fmt.Fprintf(&b, "\n└─ 总量：%s MB | 已用：%s MB | 余量：%s MB",
				mb(q.Total), mb(q.Used), mb(q.Remaining))
		}
	}

	if packageText != "" {
		b.WriteString(renderPackages(flux.Parse(packageText)))
	}

	b.WriteString("\n\n📈 使用状态")
	for _, a := range Advisories(summary) {
		b.WriteString("\n")
		b.WriteString(a.Message)
	}

	fmt.Fprintf(&b, "\n\n📅 更新时间：%s", ts)
	return b.String()
}

func writeMBSection(b *strings.Builder, title string, q models.Quantity) {
	b.WriteString(title + "\n")
	fmt.Fprintf(b, "├─ 使用情况：%s\n", ProgressBar(q.Percent()))
	fmt.Fprintf(b, "└─ 总量：%s MB | 已用：%s MB | 余量：%s MB\n\n",
		mb(q.Total), mb(q.Used), mb(q.Total-q.Used))
}

func renderPackages(entries []models.PackageEntry) string {
	var b strings.Builder
	b.WriteString("\n\n📋 流量包明细")

	for _, e := range entries {
		fmt.Fprintf(&b, "\n└─ 📦 %s", e.Name)
		switch e.Kind {
		case models.PackageMetered:
			fmt.Fprintf(&b, "\n├─ 使用情况：%s", ProgressBar(e.Percent))
			fmt.Fprintf(&b, "\n└─ 总量：%s %s | 已用：%s %s | 余量：%.2f %s",
				num(e.TotalValue), e.TotalUnit, num(e.UsedValue), e.UsedUnit, e.Remaining, e.TotalUnit)
		case models.PackageUnlimited:
			fmt.Fprintf(&b, "\n├─ 使用情况：%s", e.Label)
			b.WriteString("\n└─ 类型：无限流量")
		}
	}
	return b.String()
}

// mb formats a KB figure in MB with at most two decimals.
func mb(kb int64) string {
	return num(flux.FormatSize(kb, "MB", 2))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
