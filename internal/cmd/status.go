package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/serpwatch/serpwatch/internal/config"
	"github.com/serpwatch/serpwatch/internal/observability"
	"github.com/serpwatch/serpwatch/internal/output"
)

var (
	statusTenant string
	statusOutput string
	statusOut    string
	statusOutDir string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection, cache and quota status for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant := strings.TrimSpace(statusTenant)
		if tenant == "" {
			return errors.New("--tenant is required")
		}

		format, err := output.ParseFormat(statusOutput)
		if err != nil {
			return err
		}

		cfg := config.Get()
		if cfg == nil {
			return errors.New("configuration not loaded")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		parts := buildComponents(cfg, db, observability.CLILogger)

		report, err := parts.Fetcher.Status(cmd.Context(), tenant)
		if err != nil {
			return err
		}

		outPath := strings.TrimSpace(statusOut)
		outDir := strings.TrimSpace(statusOutDir)
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
			outPath = filepath.Join(outDir, fmt.Sprintf("status.%s.%s", tenant, ext))
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		rendered, err := output.NewFormatter(format).FormatStatus(report)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusTenant, "tenant", "", "Tenant to inspect (required)")
	statusCmd.Flags().StringVar(&statusOutput, "output-format", string(output.FormatTable), "Output format: table|json|markdown")
	statusCmd.Flags().StringVar(&statusOut, "out", "", "Write output to a file (default stdout)")
	statusCmd.Flags().StringVar(&statusOutDir, "out-dir", "", "Write output to a directory")

	rootCmd.AddCommand(statusCmd)
}
