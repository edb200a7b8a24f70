package traffic

// Street identifies one of the monitored road corridors. The set of valid
// streets is configured at startup; see DefaultStreets for the default list.
type Street string

// Direction of travel relative to the city centre.
type Direction string

const (
	DirectionToCenter   Direction = "to_center"
	DirectionFromCenter Direction = "from_center"
)

// Status is a crowd-reported congestion state. StatusNeutral is a sentinel
// meaning "no data" and is never accepted from clients.
type Status string

const (
	StatusStopped  Status = "stoi"
	StatusCrawling Status = "toczy_sie"
	StatusFlowing  Status = "jedzie"
	StatusNeutral  Status = "neutral"
)

// IncidentType classifies an incident report.
type IncidentType string

const (
	IncidentAccident    IncidentType = "accident"
	IncidentCollision   IncidentType = "collision"
	IncidentRoadworks   IncidentType = "roadworks"
	IncidentBreakdown   IncidentType = "breakdown"
	IncidentPoliceCheck IncidentType = "police_check"
	IncidentObstruction IncidentType = "obstruction"
	IncidentClosedRoad  IncidentType = "closed_road"
)

// DefaultStreets is the default monitored street list.
var DefaultStreets = []string{
	"borowska",
	"buforowa",
	"grabiszynska",
	"hallera",
	"karkonoska",
	"krakowska",
	"legnicka",
	"lotnicza",
	"opolska",
	"zmigrodzka",
}

// ParseDirection converts a client-supplied string into a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionToCenter, DirectionFromCenter:
		return Direction(s), true
	}
	return "", false
}

// ParseStatus converts a client-supplied string into a reportable Status.
// The neutral sentinel is not a valid submission value.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusStopped, StatusCrawling, StatusFlowing:
		return Status(s), true
	}
	return "", false
}

// ParseIncidentType converts a client-supplied string into an IncidentType.
func ParseIncidentType(s string) (IncidentType, bool) {
	switch IncidentType(s) {
	case IncidentAccident, IncidentCollision, IncidentRoadworks,
		IncidentBreakdown, IncidentPoliceCheck, IncidentObstruction,
		IncidentClosedRoad:
		return IncidentType(s), true
	}
	return "", false
}

// StreetSet is the configured set of valid streets.
type StreetSet map[Street]struct{}

// NewStreetSet builds a StreetSet from configured street names.
func NewStreetSet(names []string) StreetSet {
	set := make(StreetSet, len(names))
	for _, name := range names {
		set[Street(name)] = struct{}{}
	}
	return set
}

// Contains reports whether the street is part of the configured list.
func (s StreetSet) Contains(street Street) bool {
	_, ok := s[street]
	return ok
}
