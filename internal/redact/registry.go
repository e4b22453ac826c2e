package redact

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is one entry of the registry: a label, its detector and the
// risk weight each detection contributes.
type Pattern struct {
	Label  string
	Regex  *regexp.Regexp
	Weight int
}

// PatternDef is the config form of a Pattern.
type PatternDef struct {
	Name   string `yaml:"name"`
	Regex  string `yaml:"regex"`
	Weight int    `yaml:"weight"`
}

// Registry is an ordered, immutable set of patterns. Scan order is
// registry order.
type Registry struct {
	patterns []Pattern
	weights  map[string]int
}

var labelRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Built-in pattern labels.
const (
	LabelJWT        = "JWT"
	LabelAPIKey     = "API_KEY"
	LabelEmail      = "EMAIL"
	LabelCreditCard = "CREDIT_CARD"
	LabelSSN        = "SSN"
	LabelPANCard    = "PAN_CARD"
	LabelPhone      = "PHONE"
)

// DefaultPatternDefs is the built-in registry. Order matters: long
// structured secrets go first so their digits are tokenized before the
// numeric patterns run.
var DefaultPatternDefs = []PatternDef{
	{Name: LabelJWT, Regex: `eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`, Weight: 9},
	{Name: LabelAPIKey, Regex: `\b(?:sk-ant-[A-Za-z0-9_-]{20,}|sk-[A-Za-z0-9]{20,}|AKIA[0-9A-Z]{16}|gh[pousr]_[A-Za-z0-9_]{36,}|xox[bporas]-[A-Za-z0-9-]{10,})`, Weight: 10},
	{Name: LabelEmail, Regex: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Weight: 2},
	{Name: LabelCreditCard, Regex: `\b(?:\d[ -]*?){13,19}\b`, Weight: 10},
	{Name: LabelSSN, Regex: `\b\d{3}-\d{2}-\d{4}\b`, Weight: 8},
	{Name: LabelPANCard, Regex: `\b[A-Z]{5}[0-9]{4}[A-Z]\b`, Weight: 8},
	{Name: LabelPhone, Regex: `\b\d{10}\b`, Weight: 3},
}

// NewRegistry builds a registry from already compiled patterns.
// A label appearing twice keeps the weight of its first occurrence.
func NewRegistry(patterns ...Pattern) *Registry {
	r := &Registry{
		patterns: append([]Pattern(nil), patterns...),
		weights:  make(map[string]int, len(patterns)),
	}
	for _, p := range patterns {
		if _, ok := r.weights[p.Label]; !ok {
			r.weights[p.Label] = p.Weight
		}
	}
	return r
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	reg, err := CompileRegistry(DefaultPatternDefs, nil)
	if err != nil {
		panic(err)
	}
	return reg
}

// CompileRegistry validates and compiles pattern definitions. If defs is
// empty the built-in definitions are used. Extra definitions are appended
// after the base set.
func CompileRegistry(defs, extra []PatternDef) (*Registry, error) {
	if len(defs) == 0 {
		defs = DefaultPatternDefs
	}

	all := make([]PatternDef, 0, len(defs)+len(extra))
	all = append(all, defs...)
	all = append(all, extra...)

	patterns := make([]Pattern, 0, len(all))
	for i, def := range all {
		if def.Name == "" {
			return nil, fmt.Errorf("patterns[%d]: name is required", i)
		}
		if def.Regex == "" {
			return nil, fmt.Errorf("patterns[%d] %q: regex is required", i, def.Name)
		}
		label := strings.ToUpper(def.Name)
		if !labelRe.MatchString(label) {
			return nil, fmt.Errorf("patterns[%d] %q: label must match %s", i, def.Name, labelRe)
		}
		if def.Weight < 0 {
			return nil, fmt.Errorf("patterns[%d] %q: weight must not be negative", i, def.Name)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("patterns[%d] %q: invalid regex: %w", i, def.Name, err)
		}
		patterns = append(patterns, Pattern{Label: label, Regex: re, Weight: def.Weight})
	}

	return NewRegistry(patterns...), nil
}

// Patterns returns the patterns in scan order.
func (r *Registry) Patterns() []Pattern {
	return r.patterns
}

// Weight returns the risk weight for label, or 0 for unknown labels.
func (r *Registry) Weight(label string) int {
	return r.weights[label]
}
