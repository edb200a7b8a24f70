package validator_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/michalkw/traffic-status-service/internal/traffic"
	"github.com/michalkw/traffic-status-service/internal/validator"
)

func newValidator() *validator.Validator {
	return validator.NewValidator(traffic.DefaultStreets)
}

func TestValidateReport_Valid(t *testing.T) {
	v := newValidator()

	report, err := v.ValidateReport(validator.ReportInput{
		Street:      "borowska",
		Status:      "toczy_sie",
		Direction:   "from_center",
		Fingerprint: "fp-1",
	})
	if err != nil {
		t.Fatalf("ValidateReport failed: %v", err)
	}
	if report.Street != "borowska" || report.Status != traffic.StatusCrawling || report.Direction != traffic.DirectionFromCenter {
		t.Errorf("unexpected validated report: %+v", report)
	}
}

func TestValidateReport_FieldErrors(t *testing.T) {
	v := newValidator()

	cases := []struct {
		name  string
		in    validator.ReportInput
		field string
	}{
		{"unknown street", validator.ReportInput{Street: "nope", Status: "stoi", Direction: "to_center", Fingerprint: "fp"}, "street"},
		{"unknown status", validator.ReportInput{Street: "borowska", Status: "parked", Direction: "to_center", Fingerprint: "fp"}, "status"},
		{"neutral is not submittable", validator.ReportInput{Street: "borowska", Status: "neutral", Direction: "to_center", Fingerprint: "fp"}, "status"},
		{"unknown direction", validator.ReportInput{Street: "borowska", Status: "stoi", Direction: "up", Fingerprint: "fp"}, "direction"},
		{"empty fingerprint", validator.ReportInput{Street: "borowska", Status: "stoi", Direction: "to_center", Fingerprint: ""}, "userFingerprint"},
		{"oversized fingerprint", validator.ReportInput{Street: "borowska", Status: "stoi", Direction: "to_center", Fingerprint: strings.Repeat("x", 101)}, "userFingerprint"},
	}

	for _, tc := range cases {
		_, err := v.ValidateReport(tc.in)
		var validationErr *validator.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if validationErr.Field != tc.field {
			t.Errorf("%s: expected field %q, got %q", tc.name, tc.field, validationErr.Field)
		}
	}
}

func TestValidateReport_FingerprintBounds(t *testing.T) {
	v := newValidator()

	for _, fp := range []string{"a", strings.Repeat("x", 100)} {
		_, err := v.ValidateReport(validator.ReportInput{
			Street: "borowska", Status: "stoi", Direction: "to_center", Fingerprint: fp,
		})
		if err != nil {
			t.Errorf("fingerprint of length %d should be valid: %v", len(fp), err)
		}
	}
}

func TestValidateIncident_Valid(t *testing.T) {
	v := newValidator()

	for _, incidentType := range []string{"accident", "collision", "roadworks", "breakdown", "police_check", "obstruction", "closed_road"} {
		incident, err := v.ValidateIncident(validator.IncidentInput{
			Street:       "legnicka",
			IncidentType: incidentType,
			Direction:    "to_center",
			Fingerprint:  "fp-1",
		})
		if err != nil {
			t.Errorf("incident type %q should be valid: %v", incidentType, err)
			continue
		}
		if string(incident.IncidentType) != incidentType {
			t.Errorf("expected type %q, got %q", incidentType, incident.IncidentType)
		}
	}
}

func TestValidateIncident_UnknownType(t *testing.T) {
	v := newValidator()

	_, err := v.ValidateIncident(validator.IncidentInput{
		Street:       "legnicka",
		IncidentType: "traffic_jam",
		Direction:    "to_center",
		Fingerprint:  "fp-1",
	})
	var validationErr *validator.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Field != "incidentType" {
		t.Errorf("expected field incidentType, got %q", validationErr.Field)
	}
}

func TestValidateQuery(t *testing.T) {
	v := newValidator()

	street, direction, err := v.ValidateQuery("borowska", "to_center")
	if err != nil {
		t.Fatalf("ValidateQuery failed: %v", err)
	}
	if street != "borowska" || direction != traffic.DirectionToCenter {
		t.Errorf("unexpected query values: %s %s", street, direction)
	}

	if _, _, err := v.ValidateQuery("", "to_center"); err == nil {
		t.Error("empty street should fail validation")
	}
}
