package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bardcheck/bardscan/internal/dbupdate"
	"github.com/bardcheck/bardscan/internal/models"
)

var (
	dbOutDir  string
	dbBulkURL string
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local advisory database",
}

var dbUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the npm advisory export and pre-warm the detail cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		u := dbupdate.New(nil)
		u.Log = func(message string) {
			if verbose {
				fmt.Println("  " + message)
			}
		}

		count, err := u.Run(context.Background(), models.DbUpdateOptions{
			OutDir:  dbOutDir,
			BulkURL: dbBulkURL,
		})
		if err != nil {
			return err
		}

		fmt.Printf("  cached %d advisories under %s/.cache/osv\n", count, dbOutDir)
		return nil
	},
}

func init() {
	dbUpdateCmd.Flags().StringVar(&dbOutDir, "out-dir", "./.bardcheck", "cache root directory")
	dbUpdateCmd.Flags().StringVar(&dbBulkURL, "bulk-url", dbupdate.DefaultBulkURL, "bulk advisory export URL")
	dbCmd.AddCommand(dbUpdateCmd)
	rootCmd.AddCommand(dbCmd)
}
