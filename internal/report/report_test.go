package report

import (
	"strings"
	"testing"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

var fixedTime = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func newTestSummary() *models.UsageSummary {
	return &models.UsageSummary{
		CreatedAt:  fixedTime,
		Phone:      "13800138000",
		Balance:    500,
		Voice:      models.Quantity{Used: 10, Total: 100, Remaining: 90},
		Flow:       models.Quantity{Used: 9216, Total: 10240, Remaining: 1024},
		CommonFlow: models.Quantity{Used: 4096, Total: 8192, Remaining: 4096},
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[░░░░░░░░░░] 0.0%"},
		{4.9, "[░░░░░░░░░░] 4.9%"},
		{5, "[█░░░░░░░░░] 5.0%"},
		{50, "[█████░░░░░] 50.0%"},
		{90, "[█████████░] 90.0%"},
		{95, "[██████████] 95.0%"},
		{100, "[██████████] 100.0%"},
		{150, "[██████████] 100.0%"},
		{-10, "[░░░░░░░░░░] 0.0%"},
	}

	for _, tt := range tests {
		if got := ProgressBar(tt.pct); got != tt.want {
			t.Errorf("ProgressBar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestProgressBarSegments(t *testing.T) {
	for pct := -20.0; pct <= 120; pct += 0.5 {
		bar := ProgressBar(pct)
		segments := strings.Count(bar, barFilled) + strings.Count(bar, barEmpty)
		if segments != barSegments {
			t.Fatalf("ProgressBar(%v) has %d segments", pct, segments)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"13800138000", "138****8000"},
		{"1380013800", "1380013800"},
		{"138001380001", "138001380001"},
		{"1380013800a", "1380013800a"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskPhone(tt.in); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdvisories(t *testing.T) {
	tests := []struct {
		name    string
		flow    models.Quantity
		common  models.Quantity
		balance int64
		want    []string
	}{
		{
			name:    "CriticalAndLowBalance",
			flow:    models.Quantity{Used: 90, Total: 100},
			common:  models.Quantity{Used: 10, Total: 100},
			balance: 500,
			want:    []string{MetricFlow + ":" + LevelCritical, MetricBalance + ":" + LevelLow},
		},
		{
			name:    "ElevatedBoth",
			flow:    models.Quantity{Used: 80, Total: 100},
			common:  models.Quantity{Used: 85, Total: 100},
			balance: 1500,
			want:    []string{MetricFlow + ":" + LevelElevated, MetricCommonFlow + ":" + LevelElevated, MetricBalance + ":" + LevelWatch},
		},
		{
			name:    "NormalNoNotes",
			flow:    models.Quantity{Used: 50, Total: 100},
			common:  models.Quantity{Used: 95, Total: 100},
			balance: 2000,
			want:    []string{MetricFlow + ":" + LevelNormal, MetricCommonFlow + ":" + LevelCritical},
		},
		{
			name:    "ZeroTotalIsAmple",
			balance: 10000,
			want:    []string{MetricFlow + ":" + LevelAmple},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &models.UsageSummary{Flow: tt.flow, CommonFlow: tt.common, Balance: tt.balance}
			var got []string
			for _, a := range Advisories(s) {
				got = append(got, a.Metric+":"+a.Level)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Advisories() = %v, want %v", got, tt.want)
			}
		})
	}

	if Advisories(nil) != nil {
		t.Error("nil summary should give no advisories")
	}
}

func TestRenderScenario(t *testing.T) {
	out := Render(newTestSummary(), "")

	wantLines := []string{
		"📱 电信使用量查询结果",
		"├─ 手机号码：138****8000",
		"└─ 查询时间：2025-06-01 20:00:00",
		"💰 账户余额：5.00元",
		"└─ 总量：100分钟 | 已用：10分钟 | 余量：90分钟",
		"├─ 使用情况：[█████████░] 90.0%",
		"└─ 总量：10 MB | 已用：9 MB | 余量：1 MB",
		"└─ 总量：8 MB | 已用：4 MB | 余量：4 MB",
		"├─ 使用情况：[░░░░░░░░░░] 0.0%",
		"└─ 总量：0 KB | 已用：0 KB | 余量：0 KB",
		"⚠️ 总流量即将用完，请注意控制使用",
		"💸 余额不足，建议及时充值",
		"📅 更新时间：2025-06-01 20:00:00",
	}
	for _, line := range wantLines {
		if !strings.Contains(out, line) {
			t.Errorf("report missing %q\n%s", line, out)
		}
	}

	if strings.Contains(out, "13800138000") {
		t.Error("report leaks the unmasked phone number")
	}
	if strings.Contains(out, "📋") {
		t.Error("report should have no breakdown sections")
	}
}

func TestRenderSectionOrder(t *testing.T) {
	s := newTestSummary()
	s.FlowItems = []models.FlowItem{{Name: "国内通用流量", Used: 1024, Total: 2048, Remaining: 1024}}
	out := Render(s, "🔹[基础包]已用512MB/共2GB")

	order := []string{"👤", "💰", "📞", "📊", "🌐", "🎯", "📋 流量明细", "📋 流量包明细", "📈", "📅"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		if idx < 0 {
			t.Fatalf("section %q missing", marker)
		}
		if idx < last {
			t.Errorf("section %q out of order", marker)
		}
		last = idx
	}

	if !strings.Contains(out, "└─ 总量：2 MB | 已用：1 MB | 余量：1 MB") {
		t.Errorf("flow item line missing\n%s", out)
	}
}

func TestRenderPackages(t *testing.T) {
	text := "\n🇨🇳国内通用流量\n" +
		"🔹[电信无忧卡201905-免费资源]已用52.92MB/共52.92MB\n" +
		"🔹[畅享包]已用3.2GB/无限\n"

	out := Render(newTestSummary(), text)

	for _, line := range []string{
		"└─ 📦 电信无忧卡201905-免费资源",
		"├─ 使用情况：[██████████] 100.0%",
		"└─ 总量：52.92 MB | 已用：52.92 MB | 余量：0.00 MB",
		"└─ 📦 畅享包",
		"├─ 使用情况：已用3.2GB/无限",
		"└─ 类型：无限流量",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("report missing %q\n%s", line, out)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	s := newTestSummary()
	if Render(s, "") != Render(s, "") {
		t.Error("Render should be deterministic for the same summary")
	}
	if Render(nil, "") != "" {
		t.Error("nil summary should render empty")
	}
}
