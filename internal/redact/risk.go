package redact

// Score returns the weighted risk of a set of per-label detection counts:
// the sum of weight(label) × count. Labels unknown to reg contribute 0.
func Score(counts map[string]int, reg *Registry) int {
	total := 0
	for label, n := range counts {
		total += reg.Weight(label) * n
	}
	return total
}
