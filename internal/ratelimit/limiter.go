package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Limiter resolves action kinds to their configured rules and consults the
// store. A store failure fails open: an unreachable limiter backend must not
// block legitimate traffic, so the attempt is allowed and logged.
type Limiter struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter over the given store
func NewLimiter(store Store, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Allow reports whether the action may proceed, recording the attempt when
// it is admitted.
func (l *Limiter) Allow(ctx context.Context, identifier string, kind ActionKind) bool {
	rule, ok := RuleFor(kind)
	if !ok {
		l.logger.Error("unknown rate limit action kind, allowing",
			zap.String("action_kind", string(kind)))
		return true
	}

	allowed, err := l.store.Take(ctx, identifier, kind, rule, l.now())
	if err != nil {
		// Fail open: liveness over strictness when the store is unreachable.
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.Error(err),
			zap.String("identifier", identifier),
			zap.String("action_kind", string(kind)))
		return true
	}

	if !allowed {
		l.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.String("action_kind", string(kind)),
			zap.Int("threshold", rule.Threshold),
			zap.Duration("window", rule.Window))
	}

	return allowed
}

// SubmitKey builds the report-submit identifier: one slot per fingerprint,
// street and direction, independent of the reported status.
func SubmitKey(fingerprint, street, direction string) string {
	return fmt.Sprintf("%s_%s_%s", fingerprint, street, direction)
}

// IncidentKey builds the per-type incident-submit identifier.
func IncidentKey(fingerprint, street, incidentType string) string {
	return fmt.Sprintf("%s_%s_%s", fingerprint, street, incidentType)
}

// IPKey builds the identifier for IP-gated endpoints.
func IPKey(addr string) string {
	return "ip_" + addr
}
