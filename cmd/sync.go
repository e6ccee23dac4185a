package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricewatch/scraper-cli/internal/ingest"
)

var (
	syncWebsite   string
	syncWebsiteID string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the scraping pipeline for a website",
}

var syncPagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Discover product pages and record them as pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, func(e *env, websiteID string) (*ingest.SyncResult, error) {
			return e.Orchestrator.SyncPages(cmd.Context(), websiteID)
		})
	},
}

var syncDataCmd = &cobra.Command{
	Use:   "data",
	Short: "Fetch pending pages and persist their product prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, func(e *env, websiteID string) (*ingest.SyncResult, error) {
			return e.Orchestrator.SyncData(cmd.Context(), websiteID)
		})
	},
}

func runSync(cmd *cobra.Command, fn func(*env, string) (*ingest.SyncResult, error)) error {
	if syncWebsite == "" && syncWebsiteID == "" {
		return eris.New("--website or --website-id is required")
	}

	e, err := initEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	websiteID := syncWebsiteID
	if websiteID == "" {
		website, err := e.Store.GetWebsiteByName(cmd.Context(), syncWebsite)
		if err != nil {
			return err
		}
		websiteID = website.ID
	}

	result, err := fn(e, websiteID)
	if err != nil {
		zap.L().Error("sync failed", zap.String("website_id", websiteID), zap.Error(err))
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal sync result")
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	syncCmd.PersistentFlags().StringVar(&syncWebsite, "website", "", "website name to sync")
	syncCmd.PersistentFlags().StringVar(&syncWebsiteID, "website-id", "", "website id to sync (overrides --website)")
	syncCmd.AddCommand(syncPagesCmd)
	syncCmd.AddCommand(syncDataCmd)
	rootCmd.AddCommand(syncCmd)
}
