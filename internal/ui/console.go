// Package ui renders batch results, session state and usage history for the
// terminal.
package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/report"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/flux"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/projection"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui/components"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/ui/styles"
)

const (
	barWidth     = 12
	reasonWidth  = 40
	chartWidth   = 60
	chartHeight  = 10
	timeLayout   = "2006-01-02 15:04"
	neverMessage = "-"
)

// Console writes styled output. With color disabled every ANSI sequence is
// stripped before writing.
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer, color bool) *Console {
	return &Console{out: out, color: color}
}

// Print writes s followed by a newline.
func (c *Console) Print(s string) error {
	if !c.color {
		s = ansi.Strip(s)
	}
	_, err := fmt.Fprintln(c.out, s)
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			return styles.TableCellStyle
		}).
		Headers(headers...)
}

// RenderOutcomes renders the per-account result table of a batch run.
func RenderOutcomes(outcomes []models.AccountOutcome) string {
	if len(outcomes) == 0 {
		return styles.HelpStyle.Render("No accounts processed")
	}

	flowBar := components.NewUsageBar("", barWidth)
	t := newTable("号码", "状态", "总流量", "通用流量", "余额", "耗时", "说明")

	processed := 0
	for _, o := range outcomes {
		flow, common, balance := neverMessage, neverMessage, neverMessage
		if o.Summary != nil {
			processed++
			flow = flowBar.ViewQuantity(o.Summary.Flow)
			common = flowBar.ViewQuantity(o.Summary.CommonFlow)
			balance = fmt.Sprintf("%.2f元", o.Summary.BalanceYuan())
		}
		t.Row(
			o.Phone,
			styles.GetStatusStyle(o.Status).Render(string(o.Status)),
			flow,
			common,
			balance,
			o.Elapsed.Round(time.Millisecond).String(),
			ansi.Truncate(o.Reason, reasonWidth, "…"),
		)
	}

	footer := fmt.Sprintf("processed %d, skipped %d", processed, len(outcomes)-processed)
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("电信套餐用量监控"),
		t.String(),
		styles.HelpStyle.Render(footer),
	)
}

// RenderSessions renders the stored session state of every account.
func RenderSessions(states []models.SessionState, threshold int) string {
	if len(states) == 0 {
		return styles.HelpStyle.Render("No session state stored")
	}

	t := newTable("号码", "会话", "登录失败", "上次登录", "更新时间")
	for _, s := range states {
		cached := styles.HelpStyle.Render("none")
		if s.HasSession() {
			cached = styles.SuccessTextStyle.Render("cached")
		}
		fails := fmt.Sprintf("%d/%d", s.FailCount, threshold)
		if s.FailCount >= threshold {
			fails += " throttled"
		}
		t.Row(
			report.MaskPhone(s.Phone),
			cached,
			styles.GetFailCountStyle(s.FailCount, threshold).Render(fails),
			formatTime(s.LastSuccessAt),
			formatTime(s.UpdatedAt),
		)
	}
	return t.String()
}

// RenderHistory renders a flow chart and a snapshot table for one account.
// history is ordered oldest first.
func RenderHistory(phone string, history []models.UsageSummary) string {
	title := styles.TitleStyle.Render("用量历史 " + report.MaskPhone(phone))
	if len(history) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render("No snapshots stored"))
	}

	total := make([]float64, len(history))
	common := make([]float64, len(history))
	balance := make([]float64, len(history))
	for i, h := range history {
		total[i] = flux.FormatSize(h.Flow.Used, "MB", 2)
		common[i] = flux.FormatSize(h.CommonFlow.Used, "MB", 2)
		balance[i] = h.BalanceYuan()
	}

	chart := components.RenderFlowChart(total, common, chartWidth, chartHeight, "已用流量 (MB)")
	legend := components.RenderLegend([]components.LegendItem{
		{Label: "总流量", Color: components.ChartTotalColor},
		{Label: "通用流量", Color: components.ChartCommonColor},
	})

	t := newTable("时间", "总流量已用", "总流量", "通用已用", "余额", "语音")
	for _, h := range history {
		t.Row(
			h.CreatedAt.Local().Format(timeLayout),
			mb(h.Flow.Used),
			mb(h.Flow.Total),
			mb(h.CommonFlow.Used),
			fmt.Sprintf("%.2f元", h.BalanceYuan()),
			fmt.Sprintf("%d/%d分钟", h.Voice.Used, h.Voice.Total),
		)
	}

	trend := styles.SubTitleStyle.Render("余额趋势 ") + components.RenderSparkline(balance, len(balance))
	return lipgloss.JoinVertical(lipgloss.Left, title, chart, legend, "", t.String(), trend)
}

// RenderRuns renders recent batch runs, newest first.
func RenderRuns(runs []models.BatchRun) string {
	if len(runs) == 0 {
		return styles.HelpStyle.Render("No batch runs recorded")
	}

	processed := make([]float64, 0, len(runs))
	t := newTable("运行", "开始", "耗时", "账号", "成功", "跳过")
	for _, r := range runs {
		t.Row(
			shortID(r.ID),
			formatTime(r.StartedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(r.Accounts),
			styles.SuccessTextStyle.Render(strconv.Itoa(r.Processed)),
			skippedStyle(r.Skipped).Render(strconv.Itoa(r.Skipped)),
		)
		processed = append(processed, float64(r.Processed))
	}

	// runs arrive newest first; the sparkline reads left to right.
	for i, j := 0, len(processed)-1; i < j; i, j = i+1, j-1 {
		processed[i], processed[j] = processed[j], processed[i]
	}
	trend := styles.SubTitleStyle.Render("成功账号 ") + components.RenderColoredSparkline(processed, len(processed))
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), trend)
}

// RenderProjection renders the data outlook of the current cycle. A nil
// projection renders nothing.
func RenderProjection(p *projection.Projection) string {
	if p == nil {
		return ""
	}

	status := projectionStyle(p.Status).Render(string(p.Status))
	lines := []string{
		styles.SubTitleStyle.Render("本月流量预测"),
		components.NewUsageBar("总流量", barWidth).ViewQuantity(p.Flow),
		fmt.Sprintf("状态: %s (置信度 %s, %d 个快照)", status, p.Confidence, p.DataPoints),
		fmt.Sprintf("日均用量: %s (本周期平均 %s)", mb(int64(p.EffectiveRate())), mb(int64(p.CycleRate))),
	}

	switch {
	case p.Status == projection.StatusUnknown:
		lines = append(lines, styles.HelpStyle.Render("无流量套餐信息"))
	case p.WillDepleteBefore:
		lines = append(lines, styles.ErrorTextStyle.Render("预计用尽: "+formatTime(p.DepleteAt)))
	default:
		lines = append(lines, styles.SuccessTextStyle.Render("本周期内不会用尽"))
	}
	lines = append(lines,
		"距重置: "+formatDuration(p.TimeUntilReset),
		styles.HelpStyle.Render(p.VsLastCycle),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func projectionStyle(s projection.Status) lipgloss.Style {
	switch s {
	case projection.StatusSafe:
		return styles.SuccessTextStyle
	case projection.StatusWarning:
		return styles.WarningTextStyle
	case projection.StatusCritical:
		return styles.ErrorTextStyle
	default:
		return styles.HelpStyle
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, int(d.Minutes())%60)
}

func skippedStyle(n int) lipgloss.Style {
	if n > 0 {
		return styles.WarningTextStyle
	}
	return styles.HelpStyle
}

func mb(kb int64) string {
	return strconv.FormatFloat(flux.FormatSize(kb, "MB", 2), 'f', -1, 64) + "MB"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return neverMessage
	}
	return t.Local().Format(timeLayout)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
