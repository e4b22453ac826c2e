package audit

import (
	"sort"

	"github.com/ppiankov/promptarmor/internal/model"
)

// TypeCount is one label/count pair of an entry. Stored as a sorted
// slice so json.Marshal output is stable and hashes reproduce.
type TypeCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Entry is one line in the hash-chained JSONL audit log. It carries the
// shape of an event and never an original secret value.
type Entry struct {
	Timestamp         string      `json:"ts"`
	EventID           string      `json:"event_id,omitempty"`
	EventType         string      `json:"event_type"`
	Provider          string      `json:"provider,omitempty"`
	Domain            string      `json:"domain,omitempty"`
	Path              string      `json:"path,omitempty"`
	TotalReplacements int         `json:"total_replacements"`
	Types             []TypeCount `json:"types,omitempty"`
	Tokens            []string    `json:"tokens,omitempty"`
	RiskScore         int         `json:"risk_score"`
	PrevHash          string      `json:"prev_hash"`
}

// FromEvent builds an audit entry from a telemetry event. Replacement
// originals are dropped; only the tokens that stood in for them are kept.
func FromEvent(ev model.Event) Entry {
	e := Entry{
		Timestamp:         ev.Timestamp,
		EventID:           ev.EventID,
		EventType:         string(ev.EventType),
		Provider:          ev.Provider,
		Domain:            ev.Domain,
		Path:              ev.Path,
		TotalReplacements: ev.TotalReplacements,
		RiskScore:         ev.RiskScore,
	}
	for label, n := range ev.TypesDetected {
		e.Types = append(e.Types, TypeCount{Label: label, Count: n})
	}
	sort.Slice(e.Types, func(i, j int) bool { return e.Types[i].Label < e.Types[j].Label })
	for _, r := range ev.Replacements {
		e.Tokens = append(e.Tokens, r.Token)
	}
	return e
}
