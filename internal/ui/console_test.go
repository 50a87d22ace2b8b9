package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/services/projection"
)

func TestConsole_Print(t *testing.T) {
	styled := "\x1b[1mbold\x1b[0m"

	var plain bytes.Buffer
	if err := NewConsole(&plain, false).Print(styled); err != nil {
		t.Fatal(err)
	}
	if plain.String() != "bold\n" {
		t.Errorf("no-color output = %q, want %q", plain.String(), "bold\n")
	}

	var colored bytes.Buffer
	if err := NewConsole(&colored, true).Print(styled); err != nil {
		t.Fatal(err)
	}
	if colored.String() != styled+"\n" {
		t.Errorf("color output = %q", colored.String())
	}
}

func TestRenderOutcomes(t *testing.T) {
	outcomes := []models.AccountOutcome{
		{
			Phone:  "138****0001",
			Status: models.OutcomeOK,
			Summary: &models.UsageSummary{
				Balance:    1234,
				Flow:       models.Quantity{Used: 9216, Total: 10240},
				CommonFlow: models.Quantity{Used: 4096, Total: 8192},
			},
			Elapsed: 1500 * time.Millisecond,
		},
		{
			Phone:  "138****0002",
			Status: models.OutcomeThrottled,
			Reason: "login throttled after 5 consecutive failures",
			Err:    errors.New("throttled"),
		},
	}

	out := ansi.Strip(RenderOutcomes(outcomes))
	for _, want := range []string{
		"138****0001", "138****0002", "ok", "throttled",
		"12.34元", "90.0%", "50.0%", "1.5s", "processed 1, skipped 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outcome table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderOutcomes_Empty(t *testing.T) {
	if out := ansi.Strip(RenderOutcomes(nil)); out != "No accounts processed" {
		t.Errorf("RenderOutcomes(nil) = %q", out)
	}
}

func TestRenderSessions(t *testing.T) {
	states := []models.SessionState{
		{Phone: "13800000001", Owner: "13800000001", LoginInfo: []byte(`{"token":"t"}`)},
		{Phone: "13800000002", FailCount: 5},
	}

	out := ansi.Strip(RenderSessions(states, 5))
	for _, want := range []string{"138****0001", "cached", "0/5", "138****0002", "none", "5/5 throttled"} {
		if !strings.Contains(out, want) {
			t.Errorf("session table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "13800000001") {
		t.Error("session table should mask phone numbers")
	}
}

func TestRenderHistory(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []models.UsageSummary{
		{CreatedAt: base, Flow: models.Quantity{Used: 1024, Total: 10240}, Balance: 500},
		{CreatedAt: base.Add(24 * time.Hour), Flow: models.Quantity{Used: 3072, Total: 10240}, Balance: 400},
	}

	out := ansi.Strip(RenderHistory("13800000001", history))
	for _, want := range []string{"138****0001", "已用流量 (MB)", "总流量", "1MB", "3MB", "10MB", "5.00元", "余额趋势"} {
		if !strings.Contains(out, want) {
			t.Errorf("history view missing %q:\n%s", want, out)
		}
	}

	empty := ansi.Strip(RenderHistory("13800000001", nil))
	if !strings.Contains(empty, "No snapshots stored") {
		t.Errorf("empty history = %q", empty)
	}
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	runs := []models.BatchRun{
		{ID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", StartedAt: start, FinishedAt: start.Add(3 * time.Second), Accounts: 3, Processed: 2, Skipped: 1},
	}

	out := ansi.Strip(RenderRuns(runs))
	for _, want := range []string{"1b4e28ba", "3s", "成功账号"} {
		if !strings.Contains(out, want) {
			t.Errorf("runs table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "883f") {
		t.Error("run id should be shortened")
	}

	if out := ansi.Strip(RenderRuns(nil)); out != "No batch runs recorded" {
		t.Errorf("RenderRuns(nil) = %q", out)
	}
}

func TestRenderProjection(t *testing.T) {
	if out := RenderProjection(nil); out != "" {
		t.Errorf("RenderProjection(nil) = %q", out)
	}

	tests := []struct {
		name string
		proj *projection.Projection
		want []string
	}{
		{
			name: "Depleting",
			proj: &projection.Projection{
				Status:            projection.StatusWarning,
				Confidence:        "medium",
				DataPoints:        4,
				Flow:              models.Quantity{Used: 2048, Total: 4096},
				RecentRate:        1024,
				CycleRate:         512,
				WillDepleteBefore: true,
				DepleteAt:         time.Date(2025, 6, 20, 8, 0, 0, 0, time.Local),
				TimeUntilReset:    50 * time.Hour,
				VsLastCycle:       "No prior data",
			},
			want: []string{"本月流量预测", "warning", "置信度 medium, 4 个快照", "日均用量: 1MB (本周期平均 0.5MB)", "预计用尽: 2025-06-20 08:00", "距重置: 2d 2h", "No prior data"},
		},
		{
			name: "Safe",
			proj: &projection.Projection{
				Status:         projection.StatusSafe,
				Confidence:     "high",
				TimeUntilReset: 90 * time.Minute,
			},
			want: []string{"safe", "本周期内不会用尽", "距重置: 1h 30m"},
		},
		{
			name: "Unknown",
			proj: &projection.Projection{Status: projection.StatusUnknown, Confidence: "low"},
			want: []string{"unknown", "无流量套餐信息"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ansi.Strip(RenderProjection(tt.proj))
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("projection view missing %q:\n%s", want, out)
				}
			}
		})
	}
}
