package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TimeFormat is the ISO-8601 layout used for event timestamps.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// EventType tags the kind of telemetry event.
type EventType string

const (
	EventRequestSeen      EventType = "REQUEST_SEEN"
	EventSanitizedRequest EventType = "SANITIZED_REQUEST"
	EventRestoredResponse EventType = "RESTORED_RESPONSE"
)

// Replacement records one detected secret occurrence and the token
// that replaced it.
type Replacement struct {
	Type     string `json:"type"`
	Original string `json:"original"`
	Token    string `json:"token"`
}

// Event is the telemetry payload shipped for each exchange-related
// occurrence. Fields not relevant to EventType are left zero and omitted.
type Event struct {
	EventID           string         `json:"event_id,omitempty"`
	EventType         EventType      `json:"event_type"`
	Timestamp         string         `json:"timestamp"`
	Provider          string         `json:"provider,omitempty"`
	Domain            string         `json:"domain,omitempty"`
	Method            string         `json:"method,omitempty"`
	Path              string         `json:"path,omitempty"`
	RequestSize       int            `json:"request_size,omitempty"`
	TotalReplacements int            `json:"total_replacements,omitempty"`
	TypesDetected     map[string]int `json:"types_detected,omitempty"`
	RiskScore         int            `json:"risk_score,omitempty"`
	Replacements      []Replacement  `json:"replacements,omitempty"`
}

// MarshalJSON keeps request_size, total_replacements and risk_score on
// SANITIZED_REQUEST events even when they are zero. Other event types
// omit them.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	if e.EventType != EventSanitizedRequest {
		return json.Marshal(plain(e))
	}
	return json.Marshal(struct {
		plain
		RequestSize       int `json:"request_size"`
		TotalReplacements int `json:"total_replacements"`
		RiskScore         int `json:"risk_score"`
	}{plain(e), e.RequestSize, e.TotalReplacements, e.RiskScore})
}

// Exchange describes the request an event is about.
type Exchange struct {
	Domain   string
	Provider string
	Method   string
	Path     string
	Size     int
}

// Now returns the current UTC time formatted as an event timestamp.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// NewRequestSeen builds a REQUEST_SEEN event.
func NewRequestSeen(domain, provider string) Event {
	return Event{
		EventType: EventRequestSeen,
		Timestamp: Now(),
		Domain:    domain,
		Provider:  provider,
	}
}

// NewSanitizedRequest builds a SANITIZED_REQUEST event. TotalReplacements
// is derived from the replacement list.
func NewSanitizedRequest(ex Exchange, types map[string]int, risk int, reps []Replacement) Event {
	return Event{
		EventID:           uuid.NewString(),
		EventType:         EventSanitizedRequest,
		Timestamp:         Now(),
		Provider:          ex.Provider,
		Domain:            ex.Domain,
		Method:            ex.Method,
		Path:              ex.Path,
		RequestSize:       ex.Size,
		TotalReplacements: len(reps),
		TypesDetected:     types,
		RiskScore:         risk,
		Replacements:      reps,
	}
}

// NewRestoredResponse builds a RESTORED_RESPONSE event.
func NewRestoredResponse(domain, provider string) Event {
	return Event{
		EventID:   uuid.NewString(),
		EventType: EventRestoredResponse,
		Timestamp: Now(),
		Domain:    domain,
		Provider:  provider,
	}
}

// Redacted returns a copy of the event with replacement originals removed.
// Used wherever an event is written somewhere longer-lived than the wire.
func (e Event) Redacted() Event {
	if len(e.Replacements) == 0 {
		return e
	}
	reps := make([]Replacement, len(e.Replacements))
	for i, r := range e.Replacements {
		reps[i] = Replacement{Type: r.Type, Token: r.Token}
	}
	e.Replacements = reps
	return e
}
