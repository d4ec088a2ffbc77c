package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
	"github.com/aretw0/tilth/pkg/editor"
	"github.com/aretw0/tilth/pkg/render"
)

var (
	showJSON bool
	showHTML bool
)

var showCmd = &cobra.Command{
	Use:   "show [slug]",
	Short: "Show a post",
	Long:  `Show prints a post's Markdown body, its rendered HTML with --html, or the full page view with --json.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := cfg.resolveRoot()
		if err != nil {
			fatal("Failed to resolve root", err)
		}
		store, _, err := tilth.NewStore(root, cfg.options(tilth.WithReadOnly(true))...)
		if err != nil {
			fatal("Failed to open site", err)
		}

		page := editor.NewPage(store, nil, editor.NewViewer(cfg.Editing),
			editor.WithRenderer(render.New(render.Options{})),
		)
		if err := page.Open(context.Background(), args[0]); err != nil {
			fatal("Failed to open post", err)
		}
		defer page.Close()

		view := page.View()
		switch {
		case showJSON:
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(view); err != nil {
				fatal("Failed to encode JSON", err)
			}
		case showHTML:
			fmt.Print(view.HTML)
		default:
			fmt.Print(view.Post.MarkdownBody)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the page view as JSON")
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Output the rendered body")
}
