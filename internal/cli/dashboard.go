package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/promptarmor/internal/audit"
	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/dashboard"
)

// dashboardFlags are the dashboard overrides shared by dashboard and serve.
type dashboardFlags struct {
	port     int
	auditLog string
	origins  []string
}

// register adds the flags to fs. portFlag names the port flag, since
// serve already uses --port for the traffic adapter.
func (f *dashboardFlags) register(fs *pflag.FlagSet, portFlag string) {
	fs.IntVar(&f.port, portFlag, 0, "Dashboard port (default: dashboard.port from config)")
	fs.StringVar(&f.auditLog, "audit-log", "", "Path to audit log JSONL file (default: dashboard.audit_log from config)")
	fs.StringSliceVar(&f.origins, "allowed-origins", nil, "Websocket origin patterns allowed to subscribe (default: dashboard.allowed_origins from config)")
}

// settings overlays the flags on the config values.
func (f *dashboardFlags) settings(cfg *config.Config) config.DashboardConfig {
	d := cfg.Dashboard
	if f.port != 0 {
		d.Port = f.port
	}
	if d.Port == 0 {
		d.Port = config.DefaultDashboardPort
	}
	if f.auditLog != "" {
		d.AuditLog = f.auditLog
	}
	if len(f.origins) > 0 {
		d.AllowedOrigins = f.origins
	}
	return d
}

var dashboardOpts dashboardFlags

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardOpts.register(dashboardCmd.Flags(), "port")
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start analytics service",
	Long: "Receives telemetry events on POST /event, aggregates them and pushes snapshots\n" +
		"to websocket subscribers on /ws.",
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return err
	}
	dcfg := dashboardOpts.settings(cfg)

	auditLog, err := openAudit(dcfg.AuditLog)
	if err != nil {
		return err
	}
	if auditLog != nil {
		defer auditLog.Close()
	}

	srv := dashboard.New(dashboard.Config{
		Port:           dcfg.Port,
		AllowedOrigins: dcfg.AllowedOrigins,
	}, auditLog)

	ctx, cancel := signalContext("\nShutting down dashboard...")
	defer cancel()

	fmt.Printf("promptarmor dashboard listening on :%d\n", dcfg.Port)
	if auditLog != nil {
		fmt.Printf("Audit log: %s\n", auditLog.Path())
	}
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	return srv.Start(ctx)
}

// openAudit opens the audit log at path, or returns nil when path is empty.
func openAudit(path string) (*audit.Log, error) {
	if path == "" {
		return nil, nil
	}
	l, err := audit.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return l, nil
}
