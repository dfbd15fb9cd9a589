package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/serpwatch/serpwatch/internal/core"
)

var (
	quotaResetTenant string
	quotaResetDay    string
	quotaResetYes    bool
)

var quotaResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Zero a tenant's used quota for a day",
	Long: `Zero a tenant's used quota counter for a UTC day. Defaults to today.

This is admin tooling for recovering from provider-side quota mishaps;
it does not touch the provider's own accounting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant := strings.TrimSpace(quotaResetTenant)
		if tenant == "" {
			return errors.New("--tenant is required")
		}
		if !quotaResetYes {
			return errors.New("quota reset is destructive, confirm with --yes")
		}

		day := time.Now().UTC()
		if value := strings.TrimSpace(quotaResetDay); value != "" {
			parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", value)
			}
			day = parsed
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.ResetQuota(cmd.Context(), tenant, core.APITypeSearchAnalytics, day); err != nil {
			return err
		}

		fmt.Printf("Reset quota for tenant %s on %s\n", tenant, day.Format("2006-01-02"))
		return nil
	},
}

func init() {
	quotaResetCmd.Flags().StringVar(&quotaResetTenant, "tenant", "", "Tenant to reset (required)")
	quotaResetCmd.Flags().StringVar(&quotaResetDay, "day", "", "UTC day to reset (YYYY-MM-DD, default today)")
	quotaResetCmd.Flags().BoolVar(&quotaResetYes, "yes", false, "Confirm destructive reset")
}
