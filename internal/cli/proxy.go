package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/proxy"
)

var proxyPort int

func init() {
	rootCmd.AddCommand(proxyCmd)
	proxyCmd.Flags().IntVar(&proxyPort, "port", 8888, "Port to listen on")
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start forward HTTP proxy",
	Long: "Forward proxy for HTTP_PROXY/HTTPS_PROXY. Plain HTTP requests to AI hosts are\n" +
		"sanitized and restored. HTTPS CONNECT is tunnelled untouched.\n" +
		"Usage: HTTP_PROXY=http://localhost:8888 curl http://...",
	RunE: runProxy,
}

func runProxy(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(nil)
	if err != nil {
		return err
	}

	srv := proxy.NewServer(proxy.Config{Port: proxyPort}, rt.engine)

	ctx, cancel := signalContext("\nShutting down proxy...")
	defer cancel()

	if r := rt.watcher(); r != nil {
		go r.Run(ctx)
	}

	fmt.Printf("promptarmor proxy listening on :%d\n", proxyPort)
	fmt.Printf("Set HTTP_PROXY=http://localhost:%d to route client traffic\n", proxyPort)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	err = srv.Start(ctx)

	printSummary(os.Stdout, rt)
	return err
}
