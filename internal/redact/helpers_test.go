package redact

// labelsOf returns the labels of r in scan order without duplicates.
func labelsOf(r *Registry) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range r.Patterns() {
		if !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}
	return labels
}

// only returns a registry restricted to labels, keeping registry order.
func only(r *Registry, labels ...string) *Registry {
	keep := make(map[string]bool, len(labels))
	for _, l := range labels {
		keep[l] = true
	}
	var patterns []Pattern
	for _, p := range r.Patterns() {
		if keep[p.Label] {
			patterns = append(patterns, p)
		}
	}
	return NewRegistry(patterns...)
}
