package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a site",
	Long:  `Init creates the site directory, its post collection and (unless --nover) a git repository.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.Root
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			dir = wd
		}

		if _, err := tilth.Init(dir,
			tilth.WithAutoInit(true),
			tilth.WithVersioning(!nover),
			tilth.WithLogger(slog.Default()),
		); err != nil {
			fatal("Failed to initialize site", err)
		}

		collection := filepath.Join(dir, filepath.FromSlash(cfg.Collection))
		if err := os.MkdirAll(collection, 0755); err != nil {
			fatal("Failed to create collection", err)
		}
		fmt.Printf("Initialized site in %s\n", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
