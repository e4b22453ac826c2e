package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/config"
	"github.com/ppiankov/promptarmor/internal/redact"
)

var (
	scanJSON       bool
	scanLegend     bool
	scanFailOnRisk int
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print the result as JSON")
	scanCmd.Flags().BoolVar(&scanLegend, "legend", false, "Print the token legend to stderr")
	scanCmd.Flags().IntVar(&scanFailOnRisk, "fail-on-risk", 0, "Exit non-zero when the risk score reaches this value (0 disables)")
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Sanitize a file or stdin",
	Long: "Runs the pattern registry over a file (or stdin when no file or '-' is given)\n" +
		"and prints the sanitized text. Secret values are never printed.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

// scanReport is the JSON form of a scan.
type scanReport struct {
	Text              string         `json:"text"`
	TotalReplacements int            `json:"total_replacements"`
	Types             map[string]int `json:"types"`
	Tokens            []string       `json:"tokens"`
	RiskScore         int            `json:"risk_score"`
}

func runScan(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	cfg, _, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	report, err := scan(in, reg, redact.NewVault(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if scanFailOnRisk > 0 && report.RiskScore >= scanFailOnRisk {
		return fmt.Errorf("risk score %d reaches threshold %d", report.RiskScore, scanFailOnRisk)
	}
	return nil
}

// scan sanitizes everything read from in and writes the result to out.
// The summary, and the legend when requested, go to errOut.
func scan(in io.Reader, reg *redact.Registry, v *redact.Vault, out, errOut io.Writer) (scanReport, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return scanReport{}, fmt.Errorf("read input: %w", err)
	}

	res := redact.Sanitize(string(data), reg, v)
	if leaks := redact.CheckLeaks(res.Text, v); len(leaks) > 0 {
		return scanReport{}, fmt.Errorf("leak check failed: %d secrets survived sanitization", len(leaks))
	}

	report := scanReport{
		Text:              res.Text,
		TotalReplacements: len(res.Replacements),
		Types:             res.Counts,
		RiskScore:         redact.Score(res.Counts, reg),
	}
	seen := make(map[string]bool)
	for _, r := range res.Replacements {
		if !seen[r.Token] {
			seen[r.Token] = true
			report.Tokens = append(report.Tokens, r.Token)
		}
	}
	sort.Strings(report.Tokens)

	if scanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return report, fmt.Errorf("write report: %w", err)
		}
	} else {
		fmt.Fprint(out, report.Text)
		fmt.Fprintf(errOut, "%d replacements, risk score %d\n", report.TotalReplacements, report.RiskScore)
	}

	if scanLegend && v.Len() > 0 {
		fmt.Fprint(errOut, v.Legend())
	}
	return report, nil
}
