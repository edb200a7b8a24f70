package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/traffic"
)

// tieOrder fixes the deterministic tie-break: statuses are scanned from the
// most congested down, and a later status must strictly outnumber an earlier
// one to win. On an exact tie the more cautious state is reported.
var tieOrder = []traffic.Status{
	traffic.StatusStopped,
	traffic.StatusCrawling,
	traffic.StatusFlowing,
}

// MajorityStatus returns the plurality status of the given reports, or the
// neutral sentinel when there are none.
func MajorityStatus(reports []db.TrafficReport) traffic.Status {
	if len(reports) == 0 {
		return traffic.StatusNeutral
	}

	counts := make(map[traffic.Status]int, 3)
	for _, r := range reports {
		counts[r.Status]++
	}

	best := traffic.StatusNeutral
	bestCount := 0
	for _, status := range tieOrder {
		if counts[status] > bestCount {
			best = status
			bestCount = counts[status]
		}
	}
	return best
}

// ReportSource provides read-only access to stored reports.
type ReportSource interface {
	ReportsBetween(ctx context.Context, street traffic.Street, direction traffic.Direction, from, to time.Time) ([]db.TrafficReport, error)
}

// Aggregator computes majority-vote status summaries over report windows.
// It is a lock-free read path: it never mutates the store.
type Aggregator struct {
	source ReportSource
}

// NewAggregator creates a new aggregator
func NewAggregator(source ReportSource) *Aggregator {
	return &Aggregator{source: source}
}

// StatusInWindow returns the majority status for a street and direction over
// the half-open window [from, to).
func (a *Aggregator) StatusInWindow(ctx context.Context, street traffic.Street, direction traffic.Direction, from, to time.Time) (traffic.Status, error) {
	reports, err := a.source.ReportsBetween(ctx, street, direction, from, to)
	if err != nil {
		return traffic.StatusNeutral, fmt.Errorf("failed to load reports for window: %w", err)
	}
	return MajorityStatus(reports), nil
}

// Bucket is one slot of a historical timeline.
type Bucket struct {
	Start  time.Time
	Status traffic.Status
}

// Timeline builds count consecutive buckets of the given size starting at
// start, each holding the majority status of its own window. The whole range
// is fetched once and partitioned locally.
func (a *Aggregator) Timeline(ctx context.Context, street traffic.Street, direction traffic.Direction, start time.Time, bucket time.Duration, count int) ([]Bucket, error) {
	end := start.Add(bucket * time.Duration(count))
	reports, err := a.source.ReportsBetween(ctx, street, direction, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load reports for timeline: %w", err)
	}

	grouped := make([][]db.TrafficReport, count)
	for _, r := range reports {
		idx := int(r.ReportedAt.Sub(start) / bucket)
		if idx < 0 || idx >= count {
			continue
		}
		grouped[idx] = append(grouped[idx], r)
	}

	buckets := make([]Bucket, count)
	for i := range buckets {
		buckets[i] = Bucket{
			Start:  start.Add(bucket * time.Duration(i)),
			Status: MajorityStatus(grouped[i]),
		}
	}
	return buckets, nil
}
