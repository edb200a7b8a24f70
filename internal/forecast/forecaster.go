package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/michalkw/traffic-status-service/internal/aggregate"
	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/traffic"
)

const (
	defaultLookback = 7 * 24 * time.Hour

	minTolerance = 5 * time.Minute
	maxTolerance = 15 * time.Minute

	// Tolerance for the weekday comparison view, which targets an exact
	// departure time rather than a bucket.
	weekdayTolerance = 15 * time.Minute
)

// ReportSource provides read-only access to stored reports.
type ReportSource interface {
	ReportsBetween(ctx context.Context, street traffic.Street, direction traffic.Direction, from, to time.Time) ([]db.TrafficReport, error)
}

// Forecaster projects future status buckets by matching each target slot's
// time-of-day against historical reports and reusing the aggregator's
// majority-vote rule per slot.
type Forecaster struct {
	source   ReportSource
	lookback time.Duration
}

// NewForecaster creates a forecaster with the default one-week lookback
func NewForecaster(source ReportSource) *Forecaster {
	return &Forecaster{source: source, lookback: defaultLookback}
}

// Entry is one forecast slot.
type Entry struct {
	Time   time.Time
	Status traffic.Status
}

// Forecast produces exactly count entries, strictly increasing, spaced
// interval apart, starting at start. Each slot draws its candidates from
// reports whose time-of-day falls within a tolerance of the slot's, taken
// from the most recent calendar day that has any; a slot with no candidates
// at any lookback depth is neutral.
func (f *Forecaster) Forecast(ctx context.Context, street traffic.Street, direction traffic.Direction, start time.Time, interval time.Duration, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, fmt.Errorf("forecast count must be positive, got %d", count)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("forecast interval must be positive, got %s", interval)
	}

	history, err := f.source.ReportsBetween(ctx, street, direction, start.Add(-f.lookback), start)
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast history: %w", err)
	}

	tolerance := clampTolerance(interval / 2)

	entries := make([]Entry, 0, count)
	slot := start
	for i := 0; i < count; i++ {
		entries = append(entries, Entry{
			Time:   slot,
			Status: statusForSlot(history, slot, tolerance),
		})
		slot = slot.Add(interval)
	}
	return entries, nil
}

// WeekdayStatuses is the degenerate one-day-interval forecast: for each of
// the seven days before ref it reports the majority status around ref's
// time-of-day on that specific day, letting callers compare a fixed
// departure time across the week. Entries are ordered oldest first.
func (f *Forecaster) WeekdayStatuses(ctx context.Context, street traffic.Street, direction traffic.Direction, ref time.Time) ([]Entry, error) {
	from := ref.AddDate(0, 0, -7).Add(-weekdayTolerance)
	history, err := f.source.ReportsBetween(ctx, street, direction, from, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekday history: %w", err)
	}

	entries := make([]Entry, 0, 7)
	for offset := 7; offset >= 1; offset-- {
		slot := ref.AddDate(0, 0, -offset)
		entries = append(entries, Entry{
			Time:   slot,
			Status: statusForDay(history, slot, weekdayTolerance),
		})
	}
	return entries, nil
}

// statusForSlot votes over the candidates matching the slot's time-of-day,
// preferring the most recent calendar day that has any.
func statusForSlot(history []db.TrafficReport, slot time.Time, tolerance time.Duration) traffic.Status {
	loc := slot.Location()
	byDay := make(map[string][]db.TrafficReport)
	var bestDay string
	for _, r := range history {
		if !withinClockTolerance(r.ReportedAt, slot, tolerance) {
			continue
		}
		day := dayOf(r.ReportedAt, loc)
		byDay[day] = append(byDay[day], r)
		if day > bestDay {
			bestDay = day
		}
	}
	if bestDay == "" {
		return traffic.StatusNeutral
	}
	return aggregate.MajorityStatus(byDay[bestDay])
}

// statusForDay votes over the candidates on the slot's own calendar day
// only; there is no fallback to earlier days.
func statusForDay(history []db.TrafficReport, slot time.Time, tolerance time.Duration) traffic.Status {
	loc := slot.Location()
	day := dayOf(slot, loc)
	var candidates []db.TrafficReport
	for _, r := range history {
		if dayOf(r.ReportedAt, loc) != day {
			continue
		}
		if !withinClockTolerance(r.ReportedAt, slot, tolerance) {
			continue
		}
		candidates = append(candidates, r)
	}
	return aggregate.MajorityStatus(candidates)
}

func clampTolerance(d time.Duration) time.Duration {
	if d < minTolerance {
		return minTolerance
	}
	if d > maxTolerance {
		return maxTolerance
	}
	return d
}
