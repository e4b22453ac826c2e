package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/dashboard"
	"github.com/ppiankov/promptarmor/internal/intercept"
	"github.com/ppiankov/promptarmor/internal/model"
	"github.com/ppiankov/promptarmor/internal/proxy"
	"github.com/ppiankov/promptarmor/internal/telemetry"
)

var (
	serveMode      string
	servePort      int
	serveUpstream  string
	serveDashboard dashboardFlags
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveMode, "mode", "intercept", "Traffic adapter: intercept (reverse proxy) or proxy (forward proxy)")
	serveCmd.Flags().IntVar(&servePort, "port", 9999, "Port for the traffic adapter")
	serveCmd.Flags().StringVar(&serveUpstream, "upstream", "https://api.openai.com", "Upstream AI API URL (intercept mode)")
	serveDashboard.register(serveCmd.Flags(), "dashboard-port")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a traffic adapter and the dashboard in one process",
	Long: "Runs intercept or proxy together with the dashboard. Events go straight to the\n" +
		"in-process aggregator instead of over HTTP.",
	RunE: runServe,
}

// trafficServer is the part of intercept.Server and proxy.Server that
// serve needs.
type trafficServer interface {
	Start(ctx context.Context) error
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveMode != "intercept" && serveMode != "proxy" {
		return fmt.Errorf("unknown mode %q: use 'intercept' or 'proxy'", serveMode)
	}

	cfg, _, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return err
	}
	dcfg := serveDashboard.settings(cfg)

	auditLog, err := openAudit(dcfg.AuditLog)
	if err != nil {
		return err
	}
	if auditLog != nil {
		defer auditLog.Close()
	}

	dash := dashboard.New(dashboard.Config{
		Port:           dcfg.Port,
		AllowedOrigins: dcfg.AllowedOrigins,
	}, auditLog)

	rt, err := loadRuntime(telemetry.NewFunc(func(ev model.Event) {
		dash.Ingest(context.Background(), ev)
	}, cfg.Telemetry.MaxInFlight))
	if err != nil {
		return err
	}

	var front trafficServer
	switch serveMode {
	case "intercept":
		srv, err := intercept.NewServer(intercept.Config{Port: servePort, Upstream: serveUpstream}, rt.engine)
		if err != nil {
			return fmt.Errorf("failed to create intercept server: %w", err)
		}
		front = srv
	case "proxy":
		front = proxy.NewServer(proxy.Config{Port: servePort}, rt.engine)
	}

	ctx, cancel := signalContext("\nShutting down...")
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Start(gctx) })
	g.Go(func() error { return front.Start(gctx) })
	if r := rt.watcher(); r != nil {
		g.Go(func() error { return r.Run(gctx) })
	}

	fmt.Printf("promptarmor %s listening on :%d\n", serveMode, servePort)
	fmt.Printf("Dashboard listening on :%d\n", dcfg.Port)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	err = g.Wait()

	printSummary(os.Stdout, rt)
	return err
}
