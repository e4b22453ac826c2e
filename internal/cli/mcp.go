package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	armormcp "github.com/ppiankov/promptarmor/internal/mcp"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

var mcpTelemetry bool

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpTelemetry, "telemetry", false, "Send tool events to the configured telemetry sink")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs promptarmor as an MCP (Model Context Protocol) server over stdio.\nExposes tools: armor_sanitize, armor_restore, armor_legend.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(telemetry.Nop{})
	if err != nil {
		return err
	}
	if mcpTelemetry {
		rt.emitter = telemetry.New(rt.cfg.Telemetry)
	}

	srv := armormcp.New(armormcp.Config{
		Registry: rt.engine.Registry(),
		Vault:    rt.engine.Vault(),
		Emitter:  rt.emitter,
		Version:  version,
	})

	ctx, cancel := signalContext("\nShutting down MCP server...")
	defer cancel()

	fmt.Fprintln(os.Stderr, "promptarmor MCP server running on stdio")
	fmt.Fprintln(os.Stderr)

	err = srv.Run(ctx)

	fmt.Fprintln(os.Stderr)
	printSummary(os.Stderr, rt)
	return err
}
