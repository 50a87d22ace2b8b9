// Package projection estimates when an account runs out of data before its
// monthly package resets.
package projection

import (
	"fmt"
	"math"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

// Status is the outlook of the current cycle.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusSafe     Status = "safe"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

const (
	lowConfThreshold = 3
	medConfThreshold = 7
	hoursPerDay      = 24
)

// Projection is the data outlook of one account for the current cycle.
// Flow figures are in KB, rates in KB per day.
type Projection struct {
	CycleStart        time.Time
	CycleEnd          time.Time
	DepleteAt         time.Time
	Phone             string
	Status            Status
	Confidence        string
	VsLastCycle       string
	Flow              models.Quantity
	CycleRate         float64
	RecentRate        float64
	DaysLeft          float64
	TimeUntilReset    time.Duration
	DataPoints        int
	WillDepleteBefore bool
}

// EffectiveRate is the recent rate when one is known, else the cycle average.
func (p *Projection) EffectiveRate() float64 {
	if p.RecentRate > 0 {
		return p.RecentRate
	}
	return p.CycleRate
}

// cycleBounds returns the calendar month containing t.
func cycleBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// Project computes the outlook from history, ordered oldest first. Packages
// reset on the first day of each month in now's location, so the used figure
// of a snapshot is the consumption since its cycle started. It returns nil
// for an empty history.
func Project(history []models.UsageSummary, now time.Time) *Projection {
	if len(history) == 0 {
		return nil
	}

	latest := history[len(history)-1]
	taken := latest.CreatedAt.In(now.Location())
	start, end := cycleBounds(taken)

	proj := &Projection{
		Phone:          latest.Phone,
		Flow:           latest.Flow,
		CycleStart:     start,
		CycleEnd:       end,
		TimeUntilReset: max(end.Sub(now), 0),
		Status:         StatusUnknown,
		DaysLeft:       math.Inf(1),
	}

	var cycle []models.UsageSummary
	var lastOfPrevious *models.UsageSummary
	for i := range history {
		t := history[i].CreatedAt.In(now.Location())
		switch {
		case !t.Before(start):
			cycle = append(cycle, history[i])
		case !t.Before(start.AddDate(0, -1, 0)):
			lastOfPrevious = &history[i]
		}
	}
	proj.DataPoints = len(cycle)
	proj.Confidence = confidence(proj.DataPoints)

	proj.CycleRate = rateSinceCycleStart(latest, now.Location())
	proj.RecentRate = recentRate(cycle)
	if lastOfPrevious != nil {
		proj.VsLastCycle = formatComparison(proj.CycleRate, rateSinceCycleStart(*lastOfPrevious, now.Location()))
	} else {
		proj.VsLastCycle = formatComparison(proj.CycleRate, 0)
	}

	if latest.Flow.Total <= 0 {
		return proj
	}

	remaining := float64(max(latest.Flow.Total-latest.Flow.Used, 0))
	rate := proj.EffectiveRate()
	if remaining == 0 {
		proj.DaysLeft = 0
		proj.DepleteAt = taken
		proj.WillDepleteBefore = true
		proj.Status = StatusCritical
		return proj
	}
	if rate <= 0 {
		proj.Status = StatusSafe
		return proj
	}

	proj.DaysLeft = remaining / rate
	proj.DepleteAt = taken.Add(time.Duration(proj.DaysLeft * hoursPerDay * float64(time.Hour)))
	proj.WillDepleteBefore = proj.DepleteAt.Before(end)

	switch {
	case !proj.WillDepleteBefore:
		proj.Status = StatusSafe
	case proj.DaysLeft < 1:
		proj.Status = StatusCritical
	default:
		proj.Status = StatusWarning
	}
	return proj
}

// rateSinceCycleStart is the average daily use of the cycle s belongs to.
func rateSinceCycleStart(s models.UsageSummary, loc *time.Location) float64 {
	t := s.CreatedAt.In(loc)
	start, _ := cycleBounds(t)
	days := t.Sub(start).Hours() / hoursPerDay
	if days <= 0 {
		return 0
	}
	return float64(s.Flow.Used) / days
}

// recentRate is the daily use between the last two snapshots of the cycle.
func recentRate(cycle []models.UsageSummary) float64 {
	if len(cycle) < 2 {
		return 0
	}
	prev, last := cycle[len(cycle)-2], cycle[len(cycle)-1]
	days := last.CreatedAt.Sub(prev.CreatedAt).Hours() / hoursPerDay
	diff := last.Flow.Used - prev.Flow.Used
	if days <= 0 || diff <= 0 {
		return 0
	}
	return float64(diff) / days
}

func confidence(points int) string {
	switch {
	case points < lowConfThreshold:
		return "low"
	case points < medConfThreshold:
		return "medium"
	default:
		return "high"
	}
}

func formatComparison(current, reference float64) string {
	if reference <= 0 {
		return "No prior data"
	}
	diff := ((current - reference) / reference) * 100
	if math.Abs(diff) < 10 {
		return "Similar to last month"
	} else if diff > 0 {
		return fmt.Sprintf("%.0f%% higher than last month", diff)
	}
	return fmt.Sprintf("%.0f%% lower than last month", -diff)
}
