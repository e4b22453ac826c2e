package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/logger"
)

var (
	configPath string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "promptarmor",
	Short: "Inline secret redaction for AI chat traffic",
	Long: "Sits between a client and hosted AI chat services. Secrets in outbound prompts are\n" +
		"swapped for {{LABEL_N}} placeholders before they leave the machine and put back\n" +
		"into the replies on the way in.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetQuiet(quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: $PROMPTARMOR_CONFIG or ~/.promptarmor/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Discard all log output")
	logger.InitFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
