package redact

import (
	"regexp"
	"testing"
)

func TestScoreAdditive(t *testing.T) {
	reg := NewRegistry(
		Pattern{Label: "CREDIT_CARD", Regex: regexp.MustCompile(`x`), Weight: 10},
		Pattern{Label: "EMAIL", Regex: regexp.MustCompile(`y`), Weight: 2},
	)

	got := Score(map[string]int{"CREDIT_CARD": 2, "EMAIL": 1}, reg)
	if got != 22 {
		t.Errorf("Score = %d, want 22", got)
	}
}

func TestScoreUnknownLabel(t *testing.T) {
	reg := DefaultRegistry()
	if got := Score(map[string]int{"NOT_A_LABEL": 5}, reg); got != 0 {
		t.Errorf("unknown label should contribute 0, got %d", got)
	}
}

func TestScoreEmpty(t *testing.T) {
	if got := Score(nil, DefaultRegistry()); got != 0 {
		t.Errorf("Score(nil) = %d, want 0", got)
	}
}

func TestScoreMatchesSanitizeCounts(t *testing.T) {
	reg := DefaultRegistry()
	res := Sanitize("card 4111111111111111 and mail x@y.io", reg, NewVault())

	if got := Score(res.Counts, reg); got != 12 {
		t.Errorf("Score = %d, want 12 (counts=%v)", got, res.Counts)
	}
}
