package promptarmor

// Result describes one sanitized text. Original secret values are never
// part of a Result.
type Result struct {
	Text         string
	Replacements int
	Types        map[string]int
	Tokens       []string
	RiskScore    int
}

// Changed reports whether anything was replaced.
func (r Result) Changed() bool {
	return r.Replacements > 0
}

// Pattern is an additional detector. Name becomes the upper-case label
// used in placeholders.
type Pattern struct {
	Name   string
	Regex  string
	Weight int
}
