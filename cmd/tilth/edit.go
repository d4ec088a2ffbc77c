package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
	"github.com/aretw0/tilth/pkg/editor"
)

var (
	editSets   []string
	editBody   string
	editReason string
)

var editCmd = &cobra.Command{
	Use:   "edit [slug]",
	Short: "Change fields of a post and save it",
	Long: `Edit opens a post, applies each --set path=value, optionally replaces the body
(--body, or --body - to read stdin) and saves. Nothing is written when no field changed.`,
	Example: `  tilth edit apple --set frontmatter.title="Green Apple"
  echo "New body" | tilth edit apple --body -`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root, err := cfg.resolveRoot()
		if err != nil {
			fatal("Failed to resolve root", err)
		}
		store, _, err := tilth.NewStore(root, cfg.options()...)
		if err != nil {
			fatal("Failed to open site", err)
		}

		ctx := context.Background()
		page := editor.NewPage(store, nil, editor.NewViewer(cfg.Editing))
		if err := page.Open(ctx, args[0]); err != nil {
			fatal("Failed to open post", err)
		}
		defer page.Close()

		if !page.Viewer().Can(editor.ControlSave) {
			fatal("Cannot edit", fmt.Errorf("editing is disabled"))
		}
		session := page.Session()

		for _, set := range editSets {
			path, value, ok := strings.Cut(set, "=")
			if !ok {
				fatal("Invalid --set", fmt.Errorf("expected path=value, got %q", set))
			}
			if err := session.Change(path, value); err != nil {
				fatal("Failed to change "+path, err)
			}
		}

		if cmd.Flags().Changed("body") {
			body := editBody
			if body == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					fatal("Failed to read stdin", err)
				}
				body = string(data)
			}
			if err := session.Change(editor.RootBody, body); err != nil {
				fatal("Failed to change body", err)
			}
		}

		if !session.Dirty() {
			fmt.Println("Nothing to save.")
			return
		}
		changed := session.DirtyFields()

		if editReason != "" {
			ctx = tilth.WithChangeReason(ctx, editReason)
		}
		if err := session.Save(ctx); err != nil {
			fatal("Failed to save", err)
		}
		fmt.Printf("Saved %s (%s)\n", args[0], strings.Join(changed, ", "))
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringArrayVar(&editSets, "set", nil, "Field change as path=value (repeatable)")
	editCmd.Flags().StringVar(&editBody, "body", "", "Replace the Markdown body (- reads stdin)")
	editCmd.Flags().StringVarP(&editReason, "message", "m", "", "Commit message")
}
