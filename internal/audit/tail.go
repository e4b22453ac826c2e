package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TailFilter narrows the entries returned by Tail.
type TailFilter struct {
	EventType string // empty matches all
	Provider  string // empty matches all
	Limit     int    // 0 returns every match
}

func (f TailFilter) match(e Entry) bool {
	if f.EventType != "" && !strings.EqualFold(f.EventType, e.EventType) {
		return false
	}
	if f.Provider != "" && f.Provider != e.Provider {
		return false
	}
	return true
}

// Tail returns the last matching entries of the log in file order.
// Malformed lines are skipped.
func Tail(path string, filter TailFilter) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := newScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !filter.match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return out, nil
}

// FormatEntries renders entries as a fixed-width text table.
func FormatEntries(entries []Entry) string {
	if len(entries) == 0 {
		return "No entries found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-18s %-12s %-5s %-5s %s\n", "TIME", "EVENT", "PROVIDER", "REPL", "RISK", "TYPES")
	for _, e := range entries {
		types := make([]string, 0, len(e.Types))
		for _, tc := range e.Types {
			types = append(types, fmt.Sprintf("%s=%d", tc.Label, tc.Count))
		}
		fmt.Fprintf(&b, "%-24s %-18s %-12s %-5d %-5d %s\n",
			e.Timestamp, e.EventType, truncate(e.Provider, 12),
			e.TotalReplacements, e.RiskScore, strings.Join(types, ","))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
