package promptarmor

import (
	"fmt"
	"sort"

	"github.com/ppiankov/promptarmor/internal/armor"
	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

// Client redacts and restores text for one process. Safe for concurrent
// use.
type Client struct {
	engine *armor.Engine
}

// New creates a Client with the given options. Without options it uses
// the built-in targets and patterns and sends no telemetry.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	base, _, err := config.Load(cfg.configPath)
	if err != nil {
		return nil, fmt.Errorf("promptarmor: failed to load config: %w", err)
	}
	if cfg.configPath == "" {
		base.Telemetry.URL = ""
	}
	if cfg.targets != nil {
		base.Targets = cfg.targets
	}
	for _, p := range cfg.patterns {
		base.ExtraPatterns = append(base.ExtraPatterns, redact.PatternDef{
			Name:   p.Name,
			Regex:  p.Regex,
			Weight: p.Weight,
		})
	}
	if cfg.telemetryURL != "" {
		base.Telemetry.URL = cfg.telemetryURL
	}

	reg, err := base.Registry()
	if err != nil {
		return nil, fmt.Errorf("promptarmor: invalid pattern: %w", err)
	}

	return &Client{
		engine: armor.New(base.Filter(), reg, redact.NewVault(), telemetry.New(base.Telemetry)),
	}, nil
}

// Sanitize replaces every detected secret in text with its placeholder.
func (c *Client) Sanitize(text string) Result {
	reg := c.engine.Registry()
	res := redact.Sanitize(text, reg, c.engine.Vault())

	out := Result{
		Text:         res.Text,
		Replacements: len(res.Replacements),
		Types:        res.Counts,
		RiskScore:    redact.Score(res.Counts, reg),
	}
	seen := make(map[string]bool, len(res.Replacements))
	for _, r := range res.Replacements {
		if !seen[r.Token] {
			seen[r.Token] = true
			out.Tokens = append(out.Tokens, r.Token)
		}
	}
	sort.Strings(out.Tokens)
	return out
}

// Restore puts the original values back for every placeholder this
// Client minted. Unknown placeholders are left as they are.
func (c *Client) Restore(text string) string {
	out, _ := redact.Restore(text, c.engine.Vault())
	return out
}

// Legend returns the placeholder list without values, for prepending to
// a prompt. Empty when nothing has been redacted yet.
func (c *Client) Legend() string {
	return c.engine.Vault().Legend()
}

// VaultSize returns the number of distinct secrets held.
func (c *Client) VaultSize() int {
	return c.engine.Vault().Len()
}
