package projection

import (
	"math"
	"testing"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func snapshot(day int, month time.Month, used, total int64) models.UsageSummary {
	return models.UsageSummary{
		CreatedAt: time.Date(2026, month, day, 0, 0, 0, 0, time.UTC),
		Phone:     "13800138000",
		Flow:      models.Quantity{Used: used, Total: total, Remaining: total - used},
	}
}

func TestProjectEmpty(t *testing.T) {
	if p := Project(nil, testNow); p != nil {
		t.Errorf("Project(nil) = %+v, want nil", p)
	}
}

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		name         string
		history      []models.UsageSummary
		wantStatus   Status
		wantDaysLeft float64
		wantDeplete  bool
	}{
		{
			name: "Safe",
			history: []models.UsageSummary{
				snapshot(5, time.October, 1_000_000, 10_485_760),
				snapshot(15, time.October, 2_000_000, 10_485_760),
			},
			wantStatus:   StatusSafe,
			wantDaysLeft: 84.8576,
		},
		{
			name: "Warning",
			history: []models.UsageSummary{
				snapshot(14, time.October, 1_000_000, 3_000_000),
				snapshot(15, time.October, 2_000_000, 3_000_000),
			},
			wantStatus:   StatusWarning,
			wantDaysLeft: 1,
			wantDeplete:  true,
		},
		{
			name: "CriticalWithinADay",
			history: []models.UsageSummary{
				snapshot(14, time.October, 1_000_000, 2_500_000),
				snapshot(15, time.October, 2_000_000, 2_500_000),
			},
			wantStatus:   StatusCritical,
			wantDaysLeft: 0.5,
			wantDeplete:  true,
		},
		{
			name: "Exhausted",
			history: []models.UsageSummary{
				snapshot(15, time.October, 2_000_000, 2_000_000),
			},
			wantStatus:   StatusCritical,
			wantDaysLeft: 0,
			wantDeplete:  true,
		},
		{
			name: "NoPackage",
			history: []models.UsageSummary{
				snapshot(15, time.October, 2_000_000, 0),
			},
			wantStatus:   StatusUnknown,
			wantDaysLeft: math.Inf(1),
		},
		{
			name: "NoUsageYet",
			history: []models.UsageSummary{
				snapshot(1, time.October, 0, 1_000_000),
			},
			wantStatus:   StatusSafe,
			wantDaysLeft: math.Inf(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.history, testNow)
			if p == nil {
				t.Fatal("Project() = nil")
			}
			if p.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", p.Status, tt.wantStatus)
			}
			if math.IsInf(tt.wantDaysLeft, 1) {
				if !math.IsInf(p.DaysLeft, 1) {
					t.Errorf("DaysLeft = %v, want +Inf", p.DaysLeft)
				}
			} else if math.Abs(p.DaysLeft-tt.wantDaysLeft) > 0.001 {
				t.Errorf("DaysLeft = %v, want %v", p.DaysLeft, tt.wantDaysLeft)
			}
			if p.WillDepleteBefore != tt.wantDeplete {
				t.Errorf("WillDepleteBefore = %v, want %v", p.WillDepleteBefore, tt.wantDeplete)
			}
		})
	}
}

func TestProjectRates(t *testing.T) {
	p := Project([]models.UsageSummary{
		snapshot(5, time.October, 1_000_000, 10_485_760),
		snapshot(15, time.October, 2_000_000, 10_485_760),
	}, testNow)

	if want := 2_000_000.0 / 14; math.Abs(p.CycleRate-want) > 0.001 {
		t.Errorf("CycleRate = %v, want %v", p.CycleRate, want)
	}
	if p.RecentRate != 100_000 {
		t.Errorf("RecentRate = %v, want 100000", p.RecentRate)
	}
	if p.EffectiveRate() != p.RecentRate {
		t.Errorf("EffectiveRate = %v, want recent rate", p.EffectiveRate())
	}
	if p.DataPoints != 2 || p.Confidence != "low" {
		t.Errorf("DataPoints = %d, Confidence = %s", p.DataPoints, p.Confidence)
	}

	wantStart := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	if !p.CycleStart.Equal(wantStart) || !p.CycleEnd.Equal(wantEnd) {
		t.Errorf("cycle = %v..%v, want %v..%v", p.CycleStart, p.CycleEnd, wantStart, wantEnd)
	}
	if p.TimeUntilReset != wantEnd.Sub(testNow) {
		t.Errorf("TimeUntilReset = %v", p.TimeUntilReset)
	}
}

func TestProjectRecentRateIgnoresDecrease(t *testing.T) {
	p := Project([]models.UsageSummary{
		snapshot(10, time.October, 2_000_000, 10_000_000),
		snapshot(15, time.October, 1_500_000, 10_000_000),
	}, testNow)

	if p.RecentRate != 0 {
		t.Errorf("RecentRate = %v, want 0", p.RecentRate)
	}
	if p.EffectiveRate() != p.CycleRate {
		t.Errorf("EffectiveRate = %v, want cycle rate %v", p.EffectiveRate(), p.CycleRate)
	}
}

func TestProjectComparison(t *testing.T) {
	tests := []struct {
		name    string
		history []models.UsageSummary
		want    string
	}{
		{
			name: "Higher",
			history: []models.UsageSummary{
				snapshot(30, time.September, 2_900_000, 10_000_000),
				snapshot(11, time.October, 2_000_000, 10_000_000),
			},
			want: "100% higher than last month",
		},
		{
			name: "Similar",
			history: []models.UsageSummary{
				snapshot(30, time.September, 2_900_000, 10_000_000),
				snapshot(11, time.October, 1_050_000, 10_000_000),
			},
			want: "Similar to last month",
		},
		{
			name: "Lower",
			history: []models.UsageSummary{
				snapshot(30, time.September, 2_900_000, 10_000_000),
				snapshot(11, time.October, 500_000, 10_000_000),
			},
			want: "50% lower than last month",
		},
		{
			name: "OlderCycleIgnored",
			history: []models.UsageSummary{
				snapshot(20, time.August, 2_900_000, 10_000_000),
				snapshot(11, time.October, 500_000, 10_000_000),
			},
			want: "No prior data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.history, testNow)
			if p.VsLastCycle != tt.want {
				t.Errorf("VsLastCycle = %q, want %q", p.VsLastCycle, tt.want)
			}
			if p.DataPoints != 1 {
				t.Errorf("DataPoints = %d, want 1", p.DataPoints)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, "low"},
		{2, "low"},
		{3, "medium"},
		{6, "medium"},
		{7, "high"},
		{30, "high"},
	}
	for _, tt := range tests {
		if got := confidence(tt.points); got != tt.want {
			t.Errorf("confidence(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}
