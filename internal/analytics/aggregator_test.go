package analytics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/promptarmor/internal/model"
)

func sanitized(ts, provider string, types map[string]int, risk int) model.Event {
	return model.Event{
		EventID:       "e-1",
		EventType:     model.EventSanitizedRequest,
		Timestamp:     ts,
		Provider:      provider,
		Domain:        "api.openai.com",
		TypesDetected: types,
		RiskScore:     risk,
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap := NewAggregator().Snapshot()

	assert.Equal(t, model.Summary{}, snap.Summary)
	assert.Empty(t, snap.DailyCounts)
	assert.Empty(t, snap.TypeDistribution)
	assert.Empty(t, snap.ProviderDistribution)
	assert.NotNil(t, snap.DailyCounts, "maps must serialize as {} not null")
}

func TestApplyCounters(t *testing.T) {
	a := NewAggregator()

	for i := 0; i < 4; i++ {
		require.True(t, a.Apply(model.Event{EventType: model.EventRequestSeen}))
	}
	require.True(t, a.Apply(sanitized("2026-10-19T08:30:00.000Z", "openai",
		map[string]int{"CREDIT_CARD": 2, "EMAIL": 1}, 22)))
	require.True(t, a.Apply(model.Event{EventType: model.EventRestoredResponse}))

	snap := a.Snapshot()
	assert.Equal(t, 4, snap.Summary.TotalRequests)
	assert.Equal(t, 1, snap.Summary.TotalSanitized)
	assert.Equal(t, 1, snap.Summary.TotalRestored)
	assert.Equal(t, 22, snap.Summary.RiskTotal)
	assert.Equal(t, 25.0, snap.Summary.ProtectionRate)
	assert.Equal(t, 22.0, snap.Summary.AverageRiskScore)
	assert.Equal(t, map[string]int{"CREDIT_CARD": 2, "EMAIL": 1}, snap.TypeDistribution)
	assert.Equal(t, map[string]int{"openai": 1}, snap.ProviderDistribution)
	assert.Equal(t, map[string]int{"2026-10-19": 1}, snap.DailyCounts)
}

func TestApplyUnparseableTimestampSkipsDailyOnly(t *testing.T) {
	a := NewAggregator()

	require.True(t, a.Apply(sanitized("not-a-time", "anthropic", map[string]int{"EMAIL": 1}, 2)))

	snap := a.Snapshot()
	assert.Empty(t, snap.DailyCounts)
	assert.Equal(t, 1, snap.Summary.TotalSanitized)
	assert.Equal(t, map[string]int{"EMAIL": 1}, snap.TypeDistribution)
	assert.Equal(t, map[string]int{"anthropic": 1}, snap.ProviderDistribution)
	assert.Equal(t, 2, snap.Summary.RiskTotal)
}

func TestApplyMissingProvider(t *testing.T) {
	a := NewAggregator()
	a.Apply(sanitized("2026-10-19T08:30:00Z", "", map[string]int{"EMAIL": 1}, 2))
	assert.Empty(t, a.Snapshot().ProviderDistribution)
}

func TestApplyUnknownEventIgnored(t *testing.T) {
	a := NewAggregator()
	assert.False(t, a.Apply(model.Event{EventType: "SOMETHING_ELSE"}))
	assert.Equal(t, model.Summary{}, a.Snapshot().Summary)
}

func TestParseDayLayouts(t *testing.T) {
	cases := map[string]string{
		"2026-10-19T08:30:00Z":       "2026-10-19",
		"2026-10-19T08:30:00.123Z":   "2026-10-19",
		"2026-10-19T08:30:00+05:30":  "2026-10-19",
		"2026-10-19T08:30:00.123456": "2026-10-19",
		"2026-10-19":                 "2026-10-19",
		"2026-10-19 08:30:00":        "2026-10-19",
	}
	for ts, want := range cases {
		got, ok := parseDay(ts)
		assert.True(t, ok, ts)
		assert.Equal(t, want, got, ts)
	}

	_, ok := parseDay("")
	assert.False(t, ok)
	_, ok = parseDay("yesterday")
	assert.False(t, ok)
}

func TestProtectionRate(t *testing.T) {
	assert.Equal(t, 0.0, ProtectionRate(0, 0))
	assert.Equal(t, 25.0, ProtectionRate(1, 4))
	assert.Equal(t, 33.33, ProtectionRate(1, 3))
	assert.Equal(t, 100.0, ProtectionRate(5, 2), "clamped when sanitized outnumbers requests")
}

func TestAverageRisk(t *testing.T) {
	assert.Equal(t, 0.0, AverageRisk(10, 0))
	assert.Equal(t, 7.5, AverageRisk(15, 2))
}

func TestSnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Apply(sanitized("2026-10-19T08:30:00Z", "openai", map[string]int{"EMAIL": 1}, 2))

	snap := a.Snapshot()
	snap.TypeDistribution["EMAIL"] = 99

	assert.Equal(t, 1, a.Snapshot().TypeDistribution["EMAIL"])
}

func TestApplyConcurrent(t *testing.T) {
	a := NewAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Apply(model.Event{EventType: model.EventRequestSeen})
		}()
		go func() {
			defer wg.Done()
			a.Apply(sanitized("2026-10-19T08:30:00Z", "openai", map[string]int{"EMAIL": 1}, 2))
		}()
	}
	wg.Wait()

	snap := a.Snapshot()
	assert.Equal(t, 100, snap.Summary.TotalRequests)
	assert.Equal(t, 100, snap.Summary.TotalSanitized)
	assert.Equal(t, 200, snap.Summary.RiskTotal)
	assert.Equal(t, 100, snap.TypeDistribution["EMAIL"])
	assert.Equal(t, 100, snap.DailyCounts["2026-10-19"])
}
