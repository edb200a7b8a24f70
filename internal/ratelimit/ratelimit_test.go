package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/michalkw/traffic-status-service/internal/ratelimit"
	"go.uber.org/zap"
)

var base = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func take(t *testing.T, store ratelimit.Store, id string, kind ratelimit.ActionKind, rule ratelimit.Rule, now time.Time) bool {
	t.Helper()
	allowed, err := store.Take(context.Background(), id, kind, rule, now)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	return allowed
}

func TestTake_RejectsAboveThreshold(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	rule := ratelimit.Rule{Threshold: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if !take(t, store, "fp1", ratelimit.ActionDataProxyCall, rule, base) {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	if take(t, store, "fp1", ratelimit.ActionDataProxyCall, rule, base.Add(time.Second)) {
		t.Error("call above threshold should be rejected")
	}
}

func TestTake_WindowExpiryReadmits(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	rule := ratelimit.Rule{Threshold: 1, Window: 5 * time.Minute}

	if !take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base) {
		t.Fatal("first call should be allowed")
	}
	if take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base.Add(3*time.Minute)) {
		t.Error("call inside window should be rejected")
	}
	if !take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base.Add(6*time.Minute)) {
		t.Error("call after window elapsed should be allowed")
	}
}

func TestTake_RejectedAttemptsDoNotExtendWindow(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	rule := ratelimit.Rule{Threshold: 1, Window: 5 * time.Minute}

	if !take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base) {
		t.Fatal("first call should be allowed")
	}

	// Hammering a closed window must not keep it open.
	for i := 1; i <= 4; i++ {
		if take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base.Add(time.Duration(i)*time.Minute)) {
			t.Fatalf("call at +%dm should be rejected", i)
		}
	}

	if !take(t, store, "fp1", ratelimit.ActionReportSubmit, rule, base.Add(5*time.Minute+time.Second)) {
		t.Error("call after the original window should be allowed despite rejected attempts")
	}
}

func TestTake_IdentifiersAreIndependent(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	rule := ratelimit.Rule{Threshold: 1, Window: 5 * time.Minute}

	if !take(t, store, "fp1_borowska_to_center", ratelimit.ActionReportSubmit, rule, base) {
		t.Fatal("first identifier should be allowed")
	}
	if !take(t, store, "fp1_borowska_from_center", ratelimit.ActionReportSubmit, rule, base) {
		t.Error("different identifier should have its own budget")
	}
}

func TestTake_KindsAreIndependent(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	rule := ratelimit.Rule{Threshold: 1, Window: 5 * time.Minute}

	if !take(t, store, "fp1", ratelimit.ActionIncidentSubmit, rule, base) {
		t.Fatal("first kind should be allowed")
	}
	if !take(t, store, "fp1", ratelimit.ActionIncidentSubmitGlobal, rule, base) {
		t.Error("same identifier under a different kind should have its own budget")
	}
}

type failingStore struct{}

func (failingStore) Take(ctx context.Context, identifier string, kind ratelimit.ActionKind, rule ratelimit.Rule, now time.Time) (bool, error) {
	return false, errors.New("store unreachable")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := ratelimit.NewLimiter(failingStore{}, zap.NewNop())

	if !limiter.Allow(context.Background(), "fp1", ratelimit.ActionReportSubmit) {
		t.Error("limiter should fail open when the store is unreachable")
	}
}

func TestLimiter_EnforcesConfiguredRule(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), zap.NewNop())
	ctx := context.Background()

	// incident-submit-global allows 2 per 5 minutes.
	if !limiter.Allow(ctx, "fp1", ratelimit.ActionIncidentSubmitGlobal) {
		t.Fatal("first incident should be allowed")
	}
	if !limiter.Allow(ctx, "fp1", ratelimit.ActionIncidentSubmitGlobal) {
		t.Fatal("second incident should be allowed")
	}
	if limiter.Allow(ctx, "fp1", ratelimit.ActionIncidentSubmitGlobal) {
		t.Error("third incident inside the window should be rejected")
	}
}

func TestRuleFor_KnownKinds(t *testing.T) {
	rule, ok := ratelimit.RuleFor(ratelimit.ActionPaymentSession)
	if !ok {
		t.Fatal("payment_session rule should exist")
	}
	if rule.Threshold != 3 || rule.Window != time.Hour {
		t.Errorf("unexpected payment_session rule: %+v", rule)
	}

	if _, ok := ratelimit.RuleFor(ratelimit.ActionKind("bogus")); ok {
		t.Error("unknown kind should have no rule")
	}
}

func TestKeys(t *testing.T) {
	if got := ratelimit.SubmitKey("fp", "borowska", "to_center"); got != "fp_borowska_to_center" {
		t.Errorf("unexpected submit key: %s", got)
	}
	if got := ratelimit.IncidentKey("fp", "borowska", "accident"); got != "fp_borowska_accident" {
		t.Errorf("unexpected incident key: %s", got)
	}
	if got := ratelimit.IPKey("10.0.0.1"); got != "ip_10.0.0.1" {
		t.Errorf("unexpected ip key: %s", got)
	}
}
