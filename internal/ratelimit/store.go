package ratelimit

import (
	"context"
	"time"
)

// Store decides admission and records the attempt in one atomic step.
// Two concurrent Take calls for the same (identifier, kind) must never both
// be admitted when only one slot remains in the window.
type Store interface {
	// Take admits the action if fewer than rule.Threshold actions were
	// accepted for (identifier, kind) with last_action_at >= now-rule.Window.
	// Rejected attempts are not recorded, so hammering a closed window does
	// not keep it open.
	Take(ctx context.Context, identifier string, kind ActionKind, rule Rule, now time.Time) (bool, error)
}
