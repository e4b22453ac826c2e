package telemetry

import "time"

const (
	// DefaultTimeout bounds a single telemetry send.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultMaxInFlight caps concurrent sends before events are dropped.
	DefaultMaxInFlight = 64
)

// Config defines the telemetry sink.
type Config struct {
	URL         string            `yaml:"url"           json:"url"`
	Timeout     time.Duration     `yaml:"timeout"       json:"timeout"`
	MaxInFlight int               `yaml:"max_in_flight" json:"max_in_flight"`
	Headers     map[string]string `yaml:"headers"       json:"headers"`
}
