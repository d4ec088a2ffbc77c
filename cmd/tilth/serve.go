package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/aretw0/tilth"
	"github.com/aretw0/tilth/pkg/adapters/lifecycle"
	"github.com/aretw0/tilth/pkg/adapters/web"
	"github.com/aretw0/tilth/pkg/editor"
	"github.com/aretw0/tilth/pkg/media"
	"github.com/aretw0/tilth/pkg/render"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editing API",
	Long: `Serve exposes the posts as a JSON editing API. With --watch, posts changed
on disk by other tools are reloaded into the open page.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := cfg.resolveRoot()
		if err != nil {
			fatal("Failed to resolve root", err)
		}

		logger := slog.Default()
		store, service, err := tilth.NewStore(root, cfg.options(
			tilth.WithWatcherErrorHandler(func(err error) {
				logger.Error("watcher failed", "error", err)
			}),
		)...)
		if err != nil {
			fatal("Failed to open site", err)
		}

		images := media.NewStore(cfg.publicDir(root), logger)
		page := editor.NewPage(store, nil, editor.NewViewer(cfg.Editing),
			editor.WithPageLogger(logger),
			editor.WithRenderer(render.New(render.Options{})),
			editor.WithSessionOptions(editor.WithLogger(logger), editor.WithUploader(images)),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveWatch {
			events, err := service.Watch(ctx, path.Join(store.Collection(), "*"))
			if err != nil {
				fatal("Failed to watch site", err)
			}
			src := lifecycle.NewSource(events, store.Collection())
			if err := src.Start(ctx); err != nil {
				fatal("Failed to start watcher", err)
			}
			go func() {
				if err := page.Follow(ctx, lifecycle.Forward(ctx, src)); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("follow stopped", "error", err)
				}
			}()
		}

		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		server := web.NewServer(page, store, web.WithLogger(logger), web.WithMedia(images))

		addr := cfg.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("Server failed", err)
		}
		page.Close()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to $TILTH_ADDR)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload posts changed on disk")
}
