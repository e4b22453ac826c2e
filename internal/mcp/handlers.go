package mcp

import (
	"context"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/promptarmor/internal/model"
	"github.com/ppiankov/promptarmor/internal/redact"
)

// --- Input/Output types ---

// SanitizeInput defines parameters for the armor_sanitize tool.
type SanitizeInput struct {
	Text string `json:"text" jsonschema:"text to sanitize"`
}

// SanitizeOutput is the sanitized text and what was found. It carries
// tokens and counts only.
type SanitizeOutput struct {
	Text              string         `json:"text"`
	TotalReplacements int            `json:"total_replacements"`
	TypesDetected     map[string]int `json:"types_detected"`
	Tokens            []string       `json:"tokens,omitempty"`
	RiskScore         int            `json:"risk_score"`
}

// RestoreInput defines parameters for the armor_restore tool.
type RestoreInput struct {
	Text string `json:"text" jsonschema:"text containing {{LABEL_N}} placeholders"`
}

// RestoreOutput is the restored text.
type RestoreOutput struct {
	Text     string `json:"text"`
	Restored bool   `json:"restored"`
}

// LegendInput is empty; the tool takes no parameters.
type LegendInput struct{}

// TokenInfo describes one minted placeholder.
type TokenInfo struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// LegendOutput lists minted placeholders without their values.
type LegendOutput struct {
	Tokens    []TokenInfo `json:"tokens"`
	Legend    string      `json:"legend"`
	VaultSize int         `json:"vault_size"`
}

// --- Handlers ---

func (s *Server) handleSanitize(ctx context.Context, req *mcpsdk.CallToolRequest, input SanitizeInput) (*mcpsdk.CallToolResult, SanitizeOutput, error) {
	s.emitter.Emit(model.NewRequestSeen(Domain, Domain))

	res := redact.Sanitize(input.Text, s.registry, s.vault)
	out := SanitizeOutput{
		Text:          res.Text,
		TypesDetected: res.Counts,
	}
	if !res.Changed() {
		return nil, out, nil
	}

	out.TotalReplacements = len(res.Replacements)
	out.RiskScore = redact.Score(res.Counts, s.registry)
	seen := make(map[string]bool, len(res.Replacements))
	for _, r := range res.Replacements {
		if !seen[r.Token] {
			seen[r.Token] = true
			out.Tokens = append(out.Tokens, r.Token)
		}
	}
	sort.Strings(out.Tokens)

	ex := model.Exchange{
		Domain:   Domain,
		Provider: Domain,
		Method:   "TOOL",
		Path:     "armor_sanitize",
		Size:     len(input.Text),
	}
	s.emitter.Emit(model.NewSanitizedRequest(ex, res.Counts, out.RiskScore, res.Replacements))
	return nil, out, nil
}

func (s *Server) handleRestore(ctx context.Context, req *mcpsdk.CallToolRequest, input RestoreInput) (*mcpsdk.CallToolResult, RestoreOutput, error) {
	text, ok := redact.Restore(input.Text, s.vault)
	if ok {
		s.emitter.Emit(model.NewRestoredResponse(Domain, Domain))
	}
	return nil, RestoreOutput{Text: text, Restored: ok}, nil
}

func (s *Server) handleLegend(ctx context.Context, req *mcpsdk.CallToolRequest, input LegendInput) (*mcpsdk.CallToolResult, LegendOutput, error) {
	records := s.vault.Records()
	out := LegendOutput{
		Tokens:    make([]TokenInfo, 0, len(records)),
		Legend:    s.vault.Legend(),
		VaultSize: len(records),
	}
	for _, r := range records {
		out.Tokens = append(out.Tokens, TokenInfo{Token: r.Token, Label: r.Label})
	}
	return nil, out, nil
}
