package analytics

import (
	"math"
	"sync"
	"time"

	"github.com/ppiankov/promptarmor/internal/model"
)

// dateLayout keys daily_counts.
const dateLayout = "2006-01-02"

// timestampLayouts are tried in order when bucketing an event by day.
var timestampLayouts = []string{
	time.RFC3339Nano,
	model.TimeFormat,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	dateLayout,
}

// Aggregator keeps running counters over ingested telemetry events.
// Safe for concurrent use.
type Aggregator struct {
	mu             sync.Mutex
	totalRequests  int
	totalSanitized int
	totalRestored  int
	riskTotal      int
	typeCounts     map[string]int
	providerCounts map[string]int
	dailyCounts    map[string]int
}

// NewAggregator creates an Aggregator with zeroed counters.
func NewAggregator() *Aggregator {
	return &Aggregator{
		typeCounts:     make(map[string]int),
		providerCounts: make(map[string]int),
		dailyCounts:    make(map[string]int),
	}
}

// Apply folds one event into the counters. Unknown event types are
// ignored and reported as not applied.
func (a *Aggregator) Apply(ev model.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.EventType {
	case model.EventRequestSeen:
		a.totalRequests++

	case model.EventSanitizedRequest:
		a.totalSanitized++
		if day, ok := parseDay(ev.Timestamp); ok {
			a.dailyCounts[day]++
		}
		for label, n := range ev.TypesDetected {
			a.typeCounts[label] += n
		}
		if ev.Provider != "" {
			a.providerCounts[ev.Provider]++
		}
		a.riskTotal += ev.RiskScore

	case model.EventRestoredResponse:
		a.totalRestored++

	default:
		return false
	}
	return true
}

// Snapshot returns a copy of the current counters with derived rates.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return model.Snapshot{
		Summary: model.Summary{
			TotalRequests:    a.totalRequests,
			TotalSanitized:   a.totalSanitized,
			TotalRestored:    a.totalRestored,
			RiskTotal:        a.riskTotal,
			ProtectionRate:   ProtectionRate(a.totalSanitized, a.totalRequests),
			AverageRiskScore: AverageRisk(a.riskTotal, a.totalSanitized),
		},
		DailyCounts:          copyCounts(a.dailyCounts),
		TypeDistribution:     copyCounts(a.typeCounts),
		ProviderDistribution: copyCounts(a.providerCounts),
	}
}

// ProtectionRate is 100 × sanitized / requests, 0 when there were no
// requests, clamped to [0, 100] and rounded to two decimals.
func ProtectionRate(sanitized, requests int) float64 {
	if requests <= 0 {
		return 0
	}
	rate := 100 * float64(sanitized) / float64(requests)
	return round2(math.Max(0, math.Min(100, rate)))
}

// AverageRisk is riskTotal / sanitized, 0 when nothing was sanitized,
// rounded to two decimals.
func AverageRisk(riskTotal, sanitized int) float64 {
	if sanitized <= 0 {
		return 0
	}
	return round2(float64(riskTotal) / float64(sanitized))
}

func parseDay(ts string) (string, bool) {
	if ts == "" {
		return "", false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
