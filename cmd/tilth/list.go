package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the editable posts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := cfg.resolveRoot()
		if err != nil {
			fatal("Failed to resolve root", err)
		}
		store, _, err := tilth.NewStore(root, cfg.options(tilth.WithReadOnly(true))...)
		if err != nil {
			fatal("Failed to open site", err)
		}

		ctx := context.Background()
		slugs, err := store.Slugs(ctx)
		if err != nil {
			fatal("Failed to list posts", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(slugs); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, slug := range slugs {
			title := ""
			if post, err := store.Load(ctx, slug); err == nil {
				if t, ok := post.Frontmatter["title"].(string); ok {
					title = "- " + t
				}
			}
			fmt.Printf("%s %s\n", slug, title)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
