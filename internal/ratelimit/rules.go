package ratelimit

import "time"

// ActionKind names a guarded operation. Each kind carries its own threshold
// and window; identifiers are scoped per kind (fingerprint composites for
// submission kinds, ip_<addr> for the IP-gated endpoints).
type ActionKind string

const (
	ActionReportSubmit         ActionKind = "report_submit"
	ActionIncidentSubmit       ActionKind = "incident_submit"
	ActionIncidentSubmitGlobal ActionKind = "incident_submit_global"
	ActionDataProxyCall        ActionKind = "data_proxy_call"
	ActionNotificationTrigger  ActionKind = "notification_trigger"
	ActionPaymentSession       ActionKind = "payment_session"
	ActionPageVisit            ActionKind = "page_visit"
)

// Rule is the admission policy for one action kind: at most Threshold
// accepted actions per identifier inside any Window.
type Rule struct {
	Threshold int
	Window    time.Duration
}

var rules = map[ActionKind]Rule{
	ActionReportSubmit:         {Threshold: 1, Window: 5 * time.Minute},
	ActionIncidentSubmit:       {Threshold: 1, Window: 5 * time.Minute},
	ActionIncidentSubmitGlobal: {Threshold: 2, Window: 5 * time.Minute},
	ActionDataProxyCall:        {Threshold: 10, Window: time.Minute},
	ActionNotificationTrigger:  {Threshold: 5, Window: time.Minute},
	ActionPaymentSession:       {Threshold: 3, Window: time.Hour},
	ActionPageVisit:            {Threshold: 1, Window: time.Hour},
}

// RuleFor returns the configured rule for an action kind.
func RuleFor(kind ActionKind) (Rule, bool) {
	rule, ok := rules[kind]
	return rule, ok
}
