package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/serpwatch/serpwatch/internal/core/store"
	"github.com/serpwatch/serpwatch/internal/output"
)

var (
	quotaListOutput string
	quotaListOut    string
	quotaListOutDir string
	quotaListTenant string
	quotaListDay    string
)

var quotaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored quota counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(quotaListOutput)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.QuotaQuery{
			TenantID: strings.TrimSpace(quotaListTenant),
		}
		if day := strings.TrimSpace(quotaListDay); day != "" {
			parsed, err := time.ParseInLocation("2006-01-02", day, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", day)
			}
			query.Day = &parsed
		}

		counters, err := db.ListQuota(cmd.Context(), query)
		if err != nil {
			return err
		}

		outPath := strings.TrimSpace(quotaListOut)
		outDir := strings.TrimSpace(quotaListOutDir)
		if outPath != "" && outDir != "" {
			return fmt.Errorf("--out and --out-dir are mutually exclusive")
		}

		ext := outputExtension(format)
		if outDir != "" {
			var err error
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("quota.list.%s", ext))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatQuota(counters)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	quotaListCmd.Flags().StringVar(&quotaListOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	quotaListCmd.Flags().StringVar(&quotaListOut, "out", "", "Write output to a file (default stdout)")
	quotaListCmd.Flags().StringVar(&quotaListOutDir, "out-dir", "", "Write output to a directory")
	quotaListCmd.Flags().StringVar(&quotaListTenant, "tenant", "", "Filter by tenant")
	quotaListCmd.Flags().StringVar(&quotaListDay, "day", "", "Filter by UTC day (YYYY-MM-DD)")
}
