package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/promptarmor/internal/audit"
)

var (
	tailLines    int
	tailType     string
	tailProvider string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
	auditTailCmd.Flags().StringVar(&tailType, "type", "", "Only show entries of this event type (e.g. SANITIZED_REQUEST)")
	auditTailCmd.Flags().StringVar(&tailProvider, "provider", "", "Only show entries for this provider")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log written by the dashboard.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Show recent audit log entries",
	Long:  "Reads the last N matching entries from the JSONL audit log and prints them as a table.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditTail,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if !result.Valid {
		fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
		return fmt.Errorf("audit log %s failed verification", args[0])
	}
	fmt.Printf("OK: %d entries verified\n", result.Lines)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	entries, err := audit.Tail(args[0], audit.TailFilter{
		EventType: tailType,
		Provider:  tailProvider,
		Limit:     tailLines,
	})
	if err != nil {
		return err
	}
	fmt.Print(audit.FormatEntries(entries))
	return nil
}
