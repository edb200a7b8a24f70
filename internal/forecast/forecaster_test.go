package forecast_test

import (
	"context"
	"testing"
	"time"

	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/forecast"
	"github.com/michalkw/traffic-status-service/internal/traffic"
)

// Monday 2025-06-02, 08:00 UTC.
var now = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	reports []db.TrafficReport
}

func (f *fakeSource) ReportsBetween(ctx context.Context, street traffic.Street, direction traffic.Direction, from, to time.Time) ([]db.TrafficReport, error) {
	var out []db.TrafficReport
	for _, r := range f.reports {
		if !r.ReportedAt.Before(from) && r.ReportedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func report(at time.Time, status traffic.Status) db.TrafficReport {
	return db.TrafficReport{
		Street:     "borowska",
		Direction:  traffic.DirectionToCenter,
		Status:     status,
		ReportedAt: at,
	}
}

func TestForecast_BucketCountAndSpacing(t *testing.T) {
	f := forecast.NewForecaster(&fakeSource{})

	entries, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 5*time.Minute, 12)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	if len(entries) != 12 {
		t.Fatalf("expected 12 entries, got %d", len(entries))
	}
	for i, e := range entries {
		expected := now.Add(time.Duration(i) * 5 * time.Minute)
		if !e.Time.Equal(expected) {
			t.Errorf("entry %d: expected time %v, got %v", i, expected, e.Time)
		}
		// No history at all: every bucket resolves to neutral.
		if e.Status != traffic.StatusNeutral {
			t.Errorf("entry %d: expected neutral, got %s", i, e.Status)
		}
		if i > 0 && !entries[i-1].Time.Before(e.Time) {
			t.Errorf("entry %d: timestamps must be strictly increasing", i)
		}
	}
}

func TestForecast_UsesMatchingTimeOfDay(t *testing.T) {
	// Yesterday at 08:05 three users reported stoi, one jedzie.
	yesterday := now.AddDate(0, 0, -1)
	source := &fakeSource{reports: []db.TrafficReport{
		report(yesterday.Add(5*time.Minute), traffic.StatusStopped),
		report(yesterday.Add(6*time.Minute), traffic.StatusStopped),
		report(yesterday.Add(7*time.Minute), traffic.StatusStopped),
		report(yesterday.Add(8*time.Minute), traffic.StatusFlowing),
		// Noise far outside the slot's time of day.
		report(yesterday.Add(6*time.Hour), traffic.StatusFlowing),
	}}
	f := forecast.NewForecaster(source)

	entries, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 20*time.Minute, 3)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}

	// First slot (08:00, tolerance 10m) covers yesterday 07:50-08:10.
	if entries[0].Status != traffic.StatusStopped {
		t.Errorf("slot 08:00: expected stoi from yesterday's reports, got %s", entries[0].Status)
	}
	// Slot 08:40 has no matching history.
	if entries[2].Status != traffic.StatusNeutral {
		t.Errorf("slot 08:40: expected neutral, got %s", entries[2].Status)
	}
}

func TestForecast_PrefersMostRecentDayWithData(t *testing.T) {
	source := &fakeSource{reports: []db.TrafficReport{
		// Two days ago the street was stopped at this hour.
		report(now.AddDate(0, 0, -2).Add(2*time.Minute), traffic.StatusStopped),
		report(now.AddDate(0, 0, -2).Add(3*time.Minute), traffic.StatusStopped),
		// Yesterday it was flowing; the fresher day must win even though the
		// older day has more reports.
		report(now.AddDate(0, 0, -1).Add(2*time.Minute), traffic.StatusFlowing),
	}}
	f := forecast.NewForecaster(source)

	entries, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 10*time.Minute, 1)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if entries[0].Status != traffic.StatusFlowing {
		t.Errorf("expected jedzie from the most recent day, got %s", entries[0].Status)
	}
}

func TestForecast_FallsBackToOlderDays(t *testing.T) {
	source := &fakeSource{reports: []db.TrafficReport{
		// Only a report from five days ago matches the slot.
		report(now.AddDate(0, 0, -5).Add(time.Minute), traffic.StatusCrawling),
	}}
	f := forecast.NewForecaster(source)

	entries, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 10*time.Minute, 1)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if entries[0].Status != traffic.StatusCrawling {
		t.Errorf("expected toczy_sie from deep lookback, got %s", entries[0].Status)
	}
}

func TestForecast_MidnightWraparound(t *testing.T) {
	midnight := time.Date(2025, 6, 2, 0, 2, 0, 0, time.UTC)
	source := &fakeSource{reports: []db.TrafficReport{
		// 23:58 the previous evening is 4 minutes before the 00:02 slot.
		report(time.Date(2025, 6, 1, 23, 58, 0, 0, time.UTC), traffic.StatusCrawling),
	}}
	f := forecast.NewForecaster(source)

	entries, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, midnight, 10*time.Minute, 1)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if entries[0].Status != traffic.StatusCrawling {
		t.Errorf("expected toczy_sie across the midnight boundary, got %s", entries[0].Status)
	}
}

func TestWeekdayStatuses_OneEntryPerDay(t *testing.T) {
	source := &fakeSource{reports: []db.TrafficReport{
		// Last Friday at the target time.
		report(now.AddDate(0, 0, -3).Add(2*time.Minute), traffic.StatusStopped),
		// Yesterday (Sunday) at the target time.
		report(now.AddDate(0, 0, -1).Add(-2*time.Minute), traffic.StatusFlowing),
	}}
	f := forecast.NewForecaster(source)

	entries, err := f.WeekdayStatuses(context.Background(), "borowska", traffic.DirectionToCenter, now)
	if err != nil {
		t.Fatalf("WeekdayStatuses failed: %v", err)
	}

	if len(entries) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(entries))
	}

	byWeekday := make(map[time.Weekday]traffic.Status)
	for i, e := range entries {
		if i > 0 && !entries[i-1].Time.Before(e.Time) {
			t.Errorf("entry %d: timestamps must be strictly increasing", i)
		}
		byWeekday[e.Time.Weekday()] = e.Status
	}

	if byWeekday[time.Friday] != traffic.StatusStopped {
		t.Errorf("Friday: expected stoi, got %s", byWeekday[time.Friday])
	}
	if byWeekday[time.Sunday] != traffic.StatusFlowing {
		t.Errorf("Sunday: expected jedzie, got %s", byWeekday[time.Sunday])
	}
	if byWeekday[time.Tuesday] != traffic.StatusNeutral {
		t.Errorf("Tuesday: expected neutral, got %s", byWeekday[time.Tuesday])
	}
}

func TestForecast_RejectsInvalidArguments(t *testing.T) {
	f := forecast.NewForecaster(&fakeSource{})

	if _, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 5*time.Minute, 0); err == nil {
		t.Error("expected error for zero count")
	}
	if _, err := f.Forecast(context.Background(), "borowska", traffic.DirectionToCenter, now, 0, 5); err == nil {
		t.Error("expected error for zero interval")
	}
}
