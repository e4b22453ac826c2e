package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/redact"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Writes the built-in targets, providers, patterns and telemetry settings to the
config path (--config, $PROMPTARMOR_CONFIG or ~/.promptarmor/config.yaml) so
they can be edited. Running commands pick up edits without a restart.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.ResolvePath(configPath)
	if path == "" {
		return fmt.Errorf("cannot determine config path: set --config or $%s", config.EnvPath)
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return err
	}

	written, err := writeIfMissing(path, content)
	if err != nil {
		return err
	}
	if !written {
		fmt.Printf("Config already exists: %s (use --force to overwrite)\n", path)
		return nil
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

// defaultConfigYAML renders the default config with the built-in pattern
// list spelled out.
func defaultConfigYAML() (string, error) {
	cfg := config.DefaultConfig()
	cfg.Patterns = append([]redact.PatternDef(nil), redact.DefaultPatternDefs...)
	body, err := cfg.YAML()
	if err != nil {
		return "", err
	}
	header := "# promptarmor configuration.\n" +
		"# targets: host substrings treated as AI chat services.\n" +
		"# patterns: scanned in order; extra_patterns run after them.\n\n"
	return header + body, nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
