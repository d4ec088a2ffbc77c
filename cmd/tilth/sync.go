package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the site with its git remote",
	Long: `Synchronize pulls remote changes (rebasing local commits) and pushes
the saved posts to the configured remote.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := cfg.resolveRoot()
		if err != nil {
			fatal("Failed to resolve root", err)
		}

		fmt.Println("Syncing...")
		if err := tilth.Sync(root,
			tilth.WithVersioning(!nover),
			tilth.WithLogger(slog.Default()),
		); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %v\n", err)
			fmt.Println("Tip: Ensure you have a remote configured ('git remote add origin <url>') and you are online.")
			os.Exit(1)
		}

		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
