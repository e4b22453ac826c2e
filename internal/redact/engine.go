package redact

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/promptarmor/internal/model"
)

// Result is the outcome of sanitizing one text buffer.
type Result struct {
	Text         string
	Replacements []model.Replacement
	Counts       map[string]int
}

// Changed reports whether anything was replaced. When false, callers must
// leave the original content untouched.
func (r Result) Changed() bool {
	return len(r.Replacements) > 0
}

// Sanitize runs every pattern of reg over text in registry order, replacing
// each detected secret with its vault token. Pattern k+1 scans the output
// of pattern k, so a token minted earlier is never re-detected.
// Each match replaces every literal occurrence of the secret in the
// buffer, and produces one Replacement.
func Sanitize(text string, reg *Registry, v *Vault) Result {
	res := Result{Text: text, Counts: map[string]int{}}
	if text == "" {
		return res
	}

	buf := text
	for _, p := range reg.Patterns() {
		matches := p.Regex.FindAllString(buf, -1)
		for _, secret := range matches {
			if secret == "" {
				continue
			}
			tok := v.GetOrCreate(secret, p.Label)
			buf = strings.ReplaceAll(buf, secret, tok)
			res.Replacements = append(res.Replacements, model.Replacement{
				Type:     p.Label,
				Original: secret,
				Token:    tok,
			})
			res.Counts[p.Label]++
		}
	}

	res.Text = buf
	return res
}

// Restore replaces every vault token found in text with its secret.
// Placeholder-shaped text that the vault does not know is left alone.
func Restore(text string, v *Vault) (string, bool) {
	if !strings.Contains(text, "{{") {
		return text, false
	}
	restored := false
	out := tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		if secret, ok := v.Resolve(tok); ok {
			restored = true
			return secret
		}
		return tok
	})
	if !restored {
		return text, false
	}
	return out, true
}

// RestoreFrame applies Restore to a single stream frame. Frames are
// independent: a token split across two frames is restored in neither.
// Frames that are not valid UTF-8 are returned unmodified.
func RestoreFrame(frame []byte, v *Vault) ([]byte, bool) {
	if len(frame) == 0 || !utf8.Valid(frame) {
		return frame, false
	}
	out, ok := Restore(string(frame), v)
	if !ok {
		return frame, false
	}
	return []byte(out), true
}

// CheckLeaks returns the vault secrets that still appear literally in
// text. An empty slice means the text is clean.
func CheckLeaks(text string, v *Vault) []string {
	var leaks []string
	for _, s := range v.Secrets() {
		if strings.Contains(text, s) {
			leaks = append(leaks, s)
		}
	}
	return leaks
}
