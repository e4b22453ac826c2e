package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Record is one vault entry.
type Record struct {
	Token   string `json:"token"`
	Secret  string `json:"-"`
	Label   string `json:"label"`
	Ordinal int    `json:"ordinal"`
}

// Vault is a bidirectional secret/token store shared by every exchange in
// the process. Entries are created lazily and never removed. Safe for
// concurrent use.
type Vault struct {
	mu       sync.RWMutex
	tokens   map[string]Record // "{{LABEL_N}}" → record
	secrets  map[string]string // secret → "{{LABEL_N}}"
	counters map[string]int    // last ordinal minted per label
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{
		tokens:   make(map[string]Record),
		secrets:  make(map[string]string),
		counters: make(map[string]int),
	}
}

// GetOrCreate returns the token for secret, minting "{{label_N}}" with the
// next ordinal for label if the secret has never been seen. Reuse is by
// exact secret value across all labels, so a secret first minted under
// another label keeps that label's token.
func (v *Vault) GetOrCreate(secret, label string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if tok, ok := v.secrets[secret]; ok {
		return tok
	}
	v.counters[label]++
	n := v.counters[label]
	tok := FormatToken(label, n)
	v.tokens[tok] = Record{Token: tok, Secret: secret, Label: label, Ordinal: n}
	v.secrets[secret] = tok
	return tok
}

// Resolve returns the secret for a token.
func (v *Vault) Resolve(token string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.tokens[token]
	return rec.Secret, ok
}

// Len returns the number of records.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.tokens)
}

// Records returns a copy of all records sorted by label, then ordinal.
func (v *Vault) Records() []Record {
	v.mu.RLock()
	recs := make([]Record, 0, len(v.tokens))
	for _, r := range v.tokens {
		recs = append(recs, r)
	}
	v.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Label != recs[j].Label {
			return recs[i].Label < recs[j].Label
		}
		return recs[i].Ordinal < recs[j].Ordinal
	})
	return recs
}

// Secrets returns all secret values, longest first.
func (v *Vault) Secrets() []string {
	v.mu.RLock()
	vals := make([]string, 0, len(v.secrets))
	for s := range v.secrets {
		vals = append(vals, s)
	}
	v.mu.RUnlock()

	sort.Slice(vals, func(i, j int) bool {
		return len(vals[i]) > len(vals[j])
	})
	return vals
}

// Legend returns a human-readable token list suitable for prepending to a
// prompt. Secret values are never included.
func (v *Vault) Legend() string {
	recs := v.Records()
	if len(recs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Sensitive values in this conversation are replaced with placeholders like {{EMAIL_1}}.\n")
	b.WriteString("Repeat placeholders exactly as written. Do not guess the real values.\n\n")
	b.WriteString("Placeholders:\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "  %s = [%s]\n", r.Token, strings.ToLower(r.Label))
	}
	return b.String()
}

// tokenRe matches the placeholder shape minted by FormatToken.
var tokenRe = regexp.MustCompile(`\{\{[A-Z][A-Z0-9_]*_[0-9]+\}\}`)

// FormatToken renders the placeholder for label and ordinal n.
func FormatToken(label string, n int) string {
	return "{{" + label + "_" + strconv.Itoa(n) + "}}"
}
