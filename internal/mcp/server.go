package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/promptarmor/internal/redact"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

// Domain is the domain reported in telemetry for tool calls.
const Domain = "mcp"

// Config holds MCP server configuration.
type Config struct {
	Registry *redact.Registry
	Vault    *redact.Vault
	Emitter  telemetry.Emitter
	Version  string
}

// Server exposes sanitize and restore as MCP tools so an agent can
// tokenize text before handing it to a remote model and put the values
// back into the reply.
type Server struct {
	mcpServer *mcpsdk.Server
	registry  *redact.Registry
	vault     *redact.Vault
	emitter   telemetry.Emitter
}

// New creates an MCP server. Nil fields fall back to the built-in
// registry, a fresh vault and no telemetry.
func New(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = redact.DefaultRegistry()
	}
	if cfg.Vault == nil {
		cfg.Vault = redact.NewVault()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = telemetry.Nop{}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		registry: cfg.Registry,
		vault:    cfg.Vault,
		emitter:  cfg.Emitter,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "promptarmor",
			Version: cfg.Version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all promptarmor tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "armor_sanitize",
		Description: "Replace secrets (emails, card numbers, government IDs, API keys, tokens) in text with {{LABEL_N}} placeholders. Original values are never returned.",
	}, s.handleSanitize)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "armor_restore",
		Description: "Put the original values back in place of {{LABEL_N}} placeholders minted by armor_sanitize.",
	}, s.handleRestore)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "armor_legend",
		Description: "List the placeholders minted so far and what kind of value each stands for, without the values.",
	}, s.handleLegend)
}
