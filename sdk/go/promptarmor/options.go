package promptarmor

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath   string
	targets      []string
	patterns     []Pattern
	telemetryURL string
}

// WithConfig loads targets, patterns and telemetry settings from a
// promptarmor config YAML file.
func WithConfig(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithTargets replaces the host substrings treated as AI services.
func WithTargets(targets ...string) Option {
	return func(c *clientConfig) { c.targets = targets }
}

// WithPatterns adds detectors that run after the built-in ones.
func WithPatterns(patterns ...Pattern) Option {
	return func(c *clientConfig) { c.patterns = append(c.patterns, patterns...) }
}

// WithTelemetryURL posts exchange events from Transport to a dashboard.
func WithTelemetryURL(url string) Option {
	return func(c *clientConfig) { c.telemetryURL = url }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	legend bool
}

// WrapWithLegend prepends the placeholder legend to every sanitized
// prompt that contains placeholders.
func WrapWithLegend() WrapOption {
	return func(w *wrapConfig) { w.legend = true }
}
