package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/michalkw/traffic-status-service/internal/traffic"
)

// TrafficReport is one crowd-submitted status observation. Rows are
// append-only; nothing updates or deletes them in normal operation.
type TrafficReport struct {
	ID          uuid.UUID
	Street      traffic.Street
	Direction   traffic.Direction
	Status      traffic.Status
	Fingerprint string
	SpeedKmh    *float64
	ReportedAt  time.Time
}

// IncidentReport is one crowd-submitted incident observation. Append-only.
type IncidentReport struct {
	ID           uuid.UUID
	Street       traffic.Street
	Direction    traffic.Direction
	IncidentType traffic.IncidentType
	Fingerprint  string
	ReportedAt   time.Time
}

// RateLimitRecord is one (identifier, action_kind) counter row. Rows become
// irrelevant once their window expires but are never required to be deleted.
type RateLimitRecord struct {
	Identifier   string
	ActionKind   string
	WindowStart  time.Time
	LastActionAt time.Time
	Count        int
}
