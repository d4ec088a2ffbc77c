package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	rootDir string
	nover   bool
	editing bool
	cfg     config
)

var rootCmd = &cobra.Command{
	Use:   "tilth",
	Short: "Edit Markdown blog posts in place",
	Long: `tilth opens the posts of a site (Markdown files with frontmatter under data/blog)
as live edit sessions. Saving writes the post back and commits it to git.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		cfg = loadConfig()
		if rootDir != "" {
			cfg.Root = rootDir
		}
		if cmd.Flags().Changed("editing") {
			cfg.Editing = editing
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Site root (defaults to $TILTH_ROOT or the nearest root above the working directory)")
	rootCmd.PersistentFlags().BoolVar(&nover, "nover", false, "Disable git versioning")
	rootCmd.PersistentFlags().BoolVar(&editing, "editing", true, "Show editing controls (overrides $TILTH_EDITING)")
}
