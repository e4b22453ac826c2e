package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/intercept"
)

var (
	interceptPort     int
	interceptUpstream string
)

func init() {
	rootCmd.AddCommand(interceptCmd)
	interceptCmd.Flags().IntVar(&interceptPort, "port", 9999, "Port to listen on")
	interceptCmd.Flags().StringVar(&interceptUpstream, "upstream", "https://api.openai.com", "Upstream AI API URL")
}

var interceptCmd = &cobra.Command{
	Use:   "intercept",
	Short: "Start reverse proxy in front of one AI API",
	Long: "Reverse proxy between a client and one AI API. Request bodies are sanitized before\n" +
		"they are forwarded and responses are restored before they reach the client.\n" +
		"Usage: OPENAI_BASE_URL=http://localhost:9999/v1 python app.py",
	RunE: runIntercept,
}

func runIntercept(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(nil)
	if err != nil {
		return err
	}

	srv, err := intercept.NewServer(intercept.Config{
		Port:     interceptPort,
		Upstream: interceptUpstream,
	}, rt.engine)
	if err != nil {
		return fmt.Errorf("failed to create intercept server: %w", err)
	}

	ctx, cancel := signalContext("\nShutting down interceptor...")
	defer cancel()

	if r := rt.watcher(); r != nil {
		go r.Run(ctx)
	}

	fmt.Printf("promptarmor interceptor listening on :%d\n", interceptPort)
	fmt.Printf("Upstream: %s\n", srv.Upstream())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	err = srv.Start(ctx)

	printSummary(os.Stdout, rt)
	return err
}
