package usage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/report"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/telecom"
)

var fixedNow = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func newTestPayload() *telecom.ImportantData {
	return &telecom.ImportantData{
		BalanceInfo: &telecom.BalanceInfo{
			IndexBalanceDataInfo: &telecom.BalanceData{Balance: telecom.Num(5)},
		},
		VoiceInfo: &telecom.VoiceInfo{
			VoiceDataInfo: &telecom.VoiceData{Used: telecom.Num(10), Balance: telecom.Num(90), Total: telecom.Num(100)},
		},
		FlowInfo: &telecom.FlowInfo{
			TotalAmount: &telecom.FlowAmount{Used: telecom.Num(9216), Balance: telecom.Num(1024)},
			CommonFlow:  &telecom.FlowAmount{Used: telecom.Num(4096), Balance: telecom.Num(4096)},
		},
	}
}

func TestNormalize(t *testing.T) {
	data := newTestPayload()
	data.FlowInfo.FlowList = []telecom.FlowListItem{
		{Title: "国内通用流量", Used: telecom.Num(2048), Balance: telecom.Num(1024)},
	}

	got, err := Normalize("13800138000", data, fixedNow)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got.Phone != "13800138000" || !got.CreatedAt.Equal(fixedNow) {
		t.Errorf("identity = %s %v", got.Phone, got.CreatedAt)
	}
	if got.Balance != 500 {
		t.Errorf("Balance = %d, want 500", got.Balance)
	}
	if got.Voice.Used != 10 || got.Voice.Total != 100 || got.Voice.Remaining != 90 {
		t.Errorf("Voice = %+v", got.Voice)
	}
	if got.Flow.Total != 10240 || got.Flow.Used != 9216 {
		t.Errorf("Flow = %+v", got.Flow)
	}
	if p := got.Flow.Percent(); p != 90 {
		t.Errorf("Flow.Percent() = %v, want 90", p)
	}
	if got.CommonFlow.Total != 8192 {
		t.Errorf("CommonFlow = %+v", got.CommonFlow)
	}
	if got.SpecialFlow.Total != 0 || got.SpecialFlow.Percent() != 0 {
		t.Errorf("SpecialFlow = %+v, want zero", got.SpecialFlow)
	}
	if len(got.FlowItems) != 1 || got.FlowItems[0].Total != 3072 || got.FlowItems[0].Remaining != 1024 {
		t.Errorf("FlowItems = %+v", got.FlowItems)
	}
}

func TestNormalizeBalanceRounding(t *testing.T) {
	data := newTestPayload()
	data.BalanceInfo.IndexBalanceDataInfo.Balance = telecom.Num(12.34)

	got, err := Normalize("13800138000", data, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance != 1234 {
		t.Errorf("Balance = %d, want 1234", got.Balance)
	}
}

func TestNormalizeNegativeBalance(t *testing.T) {
	data := newTestPayload()
	data.BalanceInfo.IndexBalanceDataInfo.Balance = telecom.Num(-3.5)

	got, err := Normalize("13800138000", data, fixedNow)
	if err != nil {
		t.Fatalf("Normalize() error = %v, accounts in arrears must still be reported", err)
	}
	if got.Balance != -350 {
		t.Errorf("Balance = %d, want -350", got.Balance)
	}

	var low bool
	for _, a := range report.Advisories(got) {
		if a.Metric == report.MetricBalance && a.Level == report.LevelLow {
			low = true
		}
	}
	if !low {
		t.Error("negative balance should raise the low-balance advisory")
	}
	if text := report.Render(got, ""); !strings.Contains(text, "余额不足") {
		t.Errorf("report missing low-balance advisory:\n%s", text)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *telecom.ImportantData) *telecom.ImportantData
		field  string
	}{
		{"NilPayload", func(d *telecom.ImportantData) *telecom.ImportantData { return nil }, "payload"},
		{"NoBalance", func(d *telecom.ImportantData) *telecom.ImportantData { d.BalanceInfo = nil; return d }, "balance"},
		{"BalanceNotNumeric", func(d *telecom.ImportantData) *telecom.ImportantData {
			d.BalanceInfo.IndexBalanceDataInfo.Balance = &telecom.Number{}
			return d
		}, "balance"},
		{"NoVoice", func(d *telecom.ImportantData) *telecom.ImportantData { d.VoiceInfo = nil; return d }, "voice"},
		{"VoiceTotalMissing", func(d *telecom.ImportantData) *telecom.ImportantData {
			d.VoiceInfo.VoiceDataInfo.Total = nil
			return d
		}, "voice.total"},
		{"NoFlow", func(d *telecom.ImportantData) *telecom.ImportantData { d.FlowInfo = nil; return d }, "flow"},
		{"NoCommonFlow", func(d *telecom.ImportantData) *telecom.ImportantData { d.FlowInfo.CommonFlow = nil; return d }, "flow.common"},
		{"NegativeUsed", func(d *telecom.ImportantData) *telecom.ImportantData {
			d.FlowInfo.TotalAmount.Used = telecom.Num(-1)
			return d
		}, "flow.total.used"},
		{"BadFlowItem", func(d *telecom.ImportantData) *telecom.ImportantData {
			d.FlowInfo.FlowList = []telecom.FlowListItem{{Title: "x", Used: telecom.Num(1)}}
			return d
		}, "flow.list[0].balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize("13800138000", tt.mutate(newTestPayload()), fixedNow)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("error = %v, want ErrMalformedPayload", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should name %q", err, tt.field)
			}
		})
	}
}
