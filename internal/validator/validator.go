package validator

import (
	"fmt"

	"github.com/michalkw/traffic-status-service/internal/traffic"
)

const (
	minFingerprintLength = 1
	maxFingerprintLength = 100
)

// ValidationError reports a malformed field on a submission. It is a client
// error, distinct from rate limiting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Validator checks submissions against the closed enums and the configured
// street list
type Validator struct {
	streets traffic.StreetSet
}

// NewValidator creates a validator for the configured streets
func NewValidator(streets []string) *Validator {
	return &Validator{streets: traffic.NewStreetSet(streets)}
}

// ReportInput is a raw, untrusted status submission
type ReportInput struct {
	Street      string
	Status      string
	Direction   string
	Fingerprint string
	SpeedKmh    *float64
}

// Report is a validated status submission
type Report struct {
	Street      traffic.Street
	Status      traffic.Status
	Direction   traffic.Direction
	Fingerprint string
	SpeedKmh    *float64
}

// IncidentInput is a raw, untrusted incident submission
type IncidentInput struct {
	Street       string
	IncidentType string
	Direction    string
	Fingerprint  string
}

// Incident is a validated incident submission
type Incident struct {
	Street       traffic.Street
	IncidentType traffic.IncidentType
	Direction    traffic.Direction
	Fingerprint  string
}

// ValidateReport validates a status submission
func (v *Validator) ValidateReport(in ReportInput) (*Report, error) {
	street, err := v.validateStreet(in.Street)
	if err != nil {
		return nil, err
	}

	status, ok := traffic.ParseStatus(in.Status)
	if !ok {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}

	direction, err := v.validateDirection(in.Direction)
	if err != nil {
		return nil, err
	}

	if err := v.validateFingerprint(in.Fingerprint); err != nil {
		return nil, err
	}

	return &Report{
		Street:      street,
		Status:      status,
		Direction:   direction,
		Fingerprint: in.Fingerprint,
		SpeedKmh:    in.SpeedKmh,
	}, nil
}

// ValidateIncident validates an incident submission
func (v *Validator) ValidateIncident(in IncidentInput) (*Incident, error) {
	street, err := v.validateStreet(in.Street)
	if err != nil {
		return nil, err
	}

	incidentType, ok := traffic.ParseIncidentType(in.IncidentType)
	if !ok {
		return nil, &ValidationError{Field: "incidentType", Message: fmt.Sprintf("unknown incident type %q", in.IncidentType)}
	}

	direction, err := v.validateDirection(in.Direction)
	if err != nil {
		return nil, err
	}

	if err := v.validateFingerprint(in.Fingerprint); err != nil {
		return nil, err
	}

	return &Incident{
		Street:       street,
		IncidentType: incidentType,
		Direction:    direction,
		Fingerprint:  in.Fingerprint,
	}, nil
}

// ValidateQuery validates the street and direction of a read query
func (v *Validator) ValidateQuery(streetStr, directionStr string) (traffic.Street, traffic.Direction, error) {
	street, err := v.validateStreet(streetStr)
	if err != nil {
		return "", "", err
	}
	direction, err := v.validateDirection(directionStr)
	if err != nil {
		return "", "", err
	}
	return street, direction, nil
}

func (v *Validator) validateStreet(s string) (traffic.Street, error) {
	street := traffic.Street(s)
	if !v.streets.Contains(street) {
		return "", &ValidationError{Field: "street", Message: fmt.Sprintf("unknown street %q", s)}
	}
	return street, nil
}

func (v *Validator) validateDirection(s string) (traffic.Direction, error) {
	direction, ok := traffic.ParseDirection(s)
	if !ok {
		return "", &ValidationError{Field: "direction", Message: fmt.Sprintf("unknown direction %q", s)}
	}
	return direction, nil
}

func (v *Validator) validateFingerprint(fp string) error {
	if len(fp) < minFingerprintLength || len(fp) > maxFingerprintLength {
		return &ValidationError{
			Field:   "userFingerprint",
			Message: fmt.Sprintf("length must be between %d and %d characters", minFingerprintLength, maxFingerprintLength),
		}
	}
	return nil
}
