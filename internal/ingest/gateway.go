package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/mq"
	"github.com/michalkw/traffic-status-service/internal/ratelimit"
	"github.com/michalkw/traffic-status-service/internal/traffic"
	"github.com/michalkw/traffic-status-service/internal/validator"
	"go.uber.org/zap"
)

// ErrRateLimited is returned by SubmitIncident when either the per-type or
// the global incident budget is exhausted. Report submissions never surface
// this error; their limiter state is hidden behind a uniform success.
var ErrRateLimited = errors.New("rate limit exceeded")

// ReportStore is the subset of the repository the gateway writes through.
type ReportStore interface {
	InsertTrafficReport(ctx context.Context, report *db.TrafficReport) error
	InsertIncidentReport(ctx context.Context, report *db.IncidentReport) error
	HasRecentDuplicate(ctx context.Context, fingerprint string, street traffic.Street, direction traffic.Direction, status traffic.Status, since time.Time) (bool, error)
}

// ActionLimiter decides whether a guarded action may proceed.
type ActionLimiter interface {
	Allow(ctx context.Context, identifier string, kind ratelimit.ActionKind) bool
}

// IncidentPublisher fans out a stored incident for notification delivery.
type IncidentPublisher interface {
	PublishIncidentEvent(ctx context.Context, event mq.IncidentEvent) error
}

// Gateway validates, deduplicates and rate-limits untrusted submissions
// before they become durable report rows.
type Gateway struct {
	store           ReportStore
	limiter         ActionLimiter
	validator       *validator.Validator
	publisher       IncidentPublisher
	duplicateWindow time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// NewGateway creates a new ingestion gateway
func NewGateway(
	store ReportStore,
	limiter ActionLimiter,
	v *validator.Validator,
	publisher IncidentPublisher,
	duplicateWindow time.Duration,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		store:           store,
		limiter:         limiter,
		validator:       v,
		publisher:       publisher,
		duplicateWindow: duplicateWindow,
		logger:          logger,
		now:             time.Now,
	}
}

// ReportRequest is a raw status submission. AutoSubmit marks probe-derived
// reports, which carry a speed estimate and are exempt from the per-user
// submission limit (the probe legitimately covers every street each cycle).
type ReportRequest struct {
	Street      string
	Status      string
	Direction   string
	Fingerprint string
	SpeedKmh    *float64
	AutoSubmit  bool
}

// IncidentRequest is a raw incident submission.
type IncidentRequest struct {
	Street       string
	IncidentType string
	Direction    string
	Fingerprint  string
}

// Outcome describes what happened to a submission. Stored is false when the
// row was absorbed by duplicate suppression or rate limiting; callers of the
// report path must not expose that distinction to the client.
type Outcome struct {
	Stored     bool
	Suppressed bool
	Limited    bool
}

// SubmitReport runs a status submission through validation, duplicate
// suppression and rate limiting, then appends it to the report store.
// A validation failure or storage failure returns an error; a suppressed or
// limited submission returns a non-stored Outcome with err == nil, which the
// transport layer renders as the same success response as a stored one.
func (g *Gateway) SubmitReport(ctx context.Context, req ReportRequest) (*Outcome, error) {
	report, err := g.validator.ValidateReport(validator.ReportInput{
		Street:      req.Street,
		Status:      req.Status,
		Direction:   req.Direction,
		Fingerprint: req.Fingerprint,
		SpeedKmh:    req.SpeedKmh,
	})
	if err != nil {
		return nil, err
	}

	now := g.now()

	// Duplicate suppression absorbs client retry storms: an identical report
	// inside the window is acknowledged without a second row and without
	// touching the submitter's rate limit budget.
	dup, err := g.store.HasRecentDuplicate(ctx, report.Fingerprint, report.Street, report.Direction, report.Status, now.Add(-g.duplicateWindow))
	if err != nil {
		g.logger.Warn("duplicate check failed, treating as no duplicate", zap.Error(err))
	} else if dup {
		g.logger.Debug("duplicate report suppressed",
			zap.String("street", string(report.Street)),
			zap.String("direction", string(report.Direction)))
		return &Outcome{Suppressed: true}, nil
	}

	if !req.AutoSubmit {
		key := ratelimit.SubmitKey(report.Fingerprint, string(report.Street), string(report.Direction))
		if !g.limiter.Allow(ctx, key, ratelimit.ActionReportSubmit) {
			return &Outcome{Limited: true}, nil
		}
	}

	row := &db.TrafficReport{
		Street:      report.Street,
		Direction:   report.Direction,
		Status:      report.Status,
		Fingerprint: report.Fingerprint,
		SpeedKmh:    report.SpeedKmh,
		ReportedAt:  now,
	}
	if err := g.store.InsertTrafficReport(ctx, row); err != nil {
		// The durable write fails closed, unlike the limiter.
		return nil, fmt.Errorf("failed to store traffic report: %w", err)
	}

	g.logger.Info("traffic report stored",
		zap.String("report_id", row.ID.String()),
		zap.String("street", string(report.Street)),
		zap.String("direction", string(report.Direction)),
		zap.String("status", string(report.Status)),
		zap.Bool("auto_submit", req.AutoSubmit))

	return &Outcome{Stored: true}, nil
}

// SubmitIncident validates and rate-limits an incident submission, appends
// it to the store and triggers the notification fan-out. Unlike report
// submissions, an exhausted budget surfaces as ErrRateLimited.
func (g *Gateway) SubmitIncident(ctx context.Context, req IncidentRequest) (*Outcome, error) {
	incident, err := g.validator.ValidateIncident(validator.IncidentInput{
		Street:       req.Street,
		IncidentType: req.IncidentType,
		Direction:    req.Direction,
		Fingerprint:  req.Fingerprint,
	})
	if err != nil {
		return nil, err
	}

	typeKey := ratelimit.IncidentKey(incident.Fingerprint, string(incident.Street), string(incident.IncidentType))
	if !g.limiter.Allow(ctx, typeKey, ratelimit.ActionIncidentSubmit) {
		return nil, ErrRateLimited
	}
	if !g.limiter.Allow(ctx, incident.Fingerprint, ratelimit.ActionIncidentSubmitGlobal) {
		return nil, ErrRateLimited
	}

	now := g.now()
	row := &db.IncidentReport{
		Street:       incident.Street,
		Direction:    incident.Direction,
		IncidentType: incident.IncidentType,
		Fingerprint:  incident.Fingerprint,
		ReportedAt:   now,
	}
	if err := g.store.InsertIncidentReport(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store incident report: %w", err)
	}

	g.logger.Info("incident report stored",
		zap.String("report_id", row.ID.String()),
		zap.String("street", string(incident.Street)),
		zap.String("incident_type", string(incident.IncidentType)))

	// Notification fan-out is best effort; a publish failure must not fail
	// or roll back the incident write.
	event := mq.IncidentEvent{
		ReportID:     row.ID.String(),
		Street:       string(incident.Street),
		Direction:    string(incident.Direction),
		IncidentType: string(incident.IncidentType),
		ReportedAt:   now.Format(time.RFC3339),
	}
	if err := g.publisher.PublishIncidentEvent(ctx, event); err != nil {
		g.logger.Error("failed to publish incident event",
			zap.Error(err),
			zap.String("report_id", row.ID.String()))
	}

	return &Outcome{Stored: true}, nil
}
