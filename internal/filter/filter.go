package filter

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// ProviderRule names the AI provider for hosts containing Match.
type ProviderRule struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// DefaultTargets are the host substrings treated as hosted AI chat services.
var DefaultTargets = []string{
	"openai.com",
	"chatgpt.com",
	"anthropic.com",
	"claude.ai",
	"gemini.google.com",
	"generativelanguage.googleapis.com",
	"mistral.ai",
	"perplexity.ai",
	"deepseek.com",
	"groq.com",
}

// DefaultProviders maps target hosts to provider names. First match wins.
var DefaultProviders = []ProviderRule{
	{Match: "openai.com", Name: "openai"},
	{Match: "chatgpt.com", Name: "openai"},
	{Match: "anthropic.com", Name: "anthropic"},
	{Match: "claude.ai", Name: "anthropic"},
	{Match: "gemini.google.com", Name: "google"},
	{Match: "generativelanguage.googleapis.com", Name: "google"},
	{Match: "mistral.ai", Name: "mistral"},
	{Match: "perplexity.ai", Name: "perplexity"},
	{Match: "deepseek.com", Name: "deepseek"},
	{Match: "groq.com", Name: "groq"},
}

// Filter decides whether an exchange is in scope.
type Filter struct {
	targets   []string
	providers []ProviderRule
}

// New creates a Filter. Empty target entries are ignored.
func New(targets []string, providers []ProviderRule) *Filter {
	f := &Filter{}
	for _, t := range targets {
		if t != "" {
			f.targets = append(f.targets, t)
		}
	}
	for _, p := range providers {
		if p.Match != "" && p.Name != "" {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

// NewDefault creates a Filter with the built-in targets and providers.
func NewDefault() *Filter {
	return New(DefaultTargets, DefaultProviders)
}

// IsTarget reports whether host contains any configured target substring.
// Matching is case-sensitive.
func (f *Filter) IsTarget(host string) bool {
	if host == "" {
		return false
	}
	for _, t := range f.targets {
		if strings.Contains(host, t) {
			return true
		}
	}
	return false
}

// Provider returns the provider name for host, falling back to the host
// itself when no rule matches.
func (f *Filter) Provider(host string) string {
	for _, p := range f.providers {
		if strings.Contains(host, p.Match) {
			return p.Name
		}
	}
	return host
}

// Targets returns the configured target substrings.
func (f *Filter) Targets() []string {
	return f.targets
}

// IsEligibleBody reports whether a request body should be scanned: only
// POST requests whose body decoded as text.
func IsEligibleBody(method string, hasText bool) bool {
	return method == http.MethodPost && hasText
}

// IsText reports whether body is non-empty valid UTF-8.
func IsText(body []byte) bool {
	return len(body) > 0 && utf8.Valid(body)
}
