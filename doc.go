// Package tilth is the composition root for tilth, an in-place editor for
// Markdown posts with frontmatter.
//
// A site is a directory (optionally a git repository) holding posts under
// data/blog. Opening a post binds a set of fields to an edit session: the
// frontmatter keys and the Markdown body become live form values, an
// "editing enabled" toggle decides whether save and reset controls are
// shown, and saving writes the post back to disk and commits it.
//
// Layout:
//
//   - pkg/core: documents, the repository contract and the service.
//   - pkg/adapters/fs: filesystem and git storage with an fsnotify watcher.
//   - pkg/form: form state with dirty tracking and submit-once semantics.
//   - pkg/content: posts, slugs and the stores they load from.
//   - pkg/editor: edit sessions, field bindings and the page lifecycle.
//   - pkg/adapters/web: the HTTP surface used by the tilth command.
//
// Usage:
//
//	store, _, err := tilth.NewStore("./site", tilth.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	page := editor.NewPage(store, nil, editor.NewViewer(true))
//	if err := page.Open(ctx, "apple"); err != nil {
//		return err
//	}
//	_ = page.Session().Change("frontmatter.title", "Green Apple")
//	err = page.Session().Save(ctx)
package tilth
