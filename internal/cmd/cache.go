package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	cacheStatusTenant     string
	cacheInvalidateTenant string
	cacheInvalidateSig    string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache entry counts and freshness for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant := strings.TrimSpace(cacheStatusTenant)
		if tenant == "" {
			return errors.New("--tenant is required")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		total, valid, err := db.CountCacheEntries(cmd.Context(), tenant)
		if err != nil {
			return err
		}

		fmt.Printf("Tenant: %s\n", tenant)
		fmt.Printf("Entries: %d total, %d unexpired\n", total, valid)

		info, err := db.TenantFreshness(cmd.Context(), tenant)
		if err != nil {
			return err
		}
		if info == nil {
			fmt.Println("Newest entry: none")
			return nil
		}

		// Expiring implies stale, so it wins.
		state := "fresh"
		switch {
		case info.IsExpiring:
			state = "expiring"
		case info.IsStale:
			state = "stale"
		}
		fmt.Printf("Newest entry: %s (%.1fh old, %s)\n",
			info.CachedAt.UTC().Format(time.RFC3339), info.AgeHours, state)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Invalidate a cached response by request signature",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant := strings.TrimSpace(cacheInvalidateTenant)
		sig := strings.TrimSpace(cacheInvalidateSig)
		if tenant == "" || sig == "" {
			return errors.New("--tenant and --signature are required")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		if err := db.InvalidateCache(cmd.Context(), tenant, sig); err != nil {
			return err
		}

		fmt.Printf("Invalidated cache entry %s for tenant %s\n", sig, tenant)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		deleted, err := db.SweepExpiredCache(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d expired cache entr(ies)\n", deleted)
		return nil
	},
}

func init() {
	cacheStatusCmd.Flags().StringVar(&cacheStatusTenant, "tenant", "", "Tenant to inspect (required)")
	cacheInvalidateCmd.Flags().StringVar(&cacheInvalidateTenant, "tenant", "", "Tenant owning the entry (required)")
	cacheInvalidateCmd.Flags().StringVar(&cacheInvalidateSig, "signature", "", "Request signature to invalidate (required)")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
