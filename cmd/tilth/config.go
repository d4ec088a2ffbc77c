package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aretw0/tilth"
	"github.com/aretw0/tilth/pkg/content"
)

// config is read from the environment, optionally seeded by a .env file.
type config struct {
	Root       string
	Addr       string
	Editing    bool
	PublicDir  string
	Collection string
	AllowList  []string
}

func loadConfig() config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("no .env loaded", "error", err)
	}

	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c := config{
		Root:       os.Getenv("TILTH_ROOT"),
		Addr:       getEnv("TILTH_ADDR", "127.0.0.1:8080"),
		Editing:    true,
		Collection: getEnv("TILTH_COLLECTION", content.DefaultCollection),
	}
	if v := os.Getenv("TILTH_EDITING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Editing = b
		} else {
			slog.Warn("ignoring invalid TILTH_EDITING", "value", v)
		}
	}
	if v := os.Getenv("TILTH_ALLOW"); v != "" {
		for _, slug := range strings.Split(v, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				c.AllowList = append(c.AllowList, slug)
			}
		}
	}
	c.PublicDir = os.Getenv("TILTH_PUBLIC_DIR")
	return c
}

// resolveRoot picks the configured root, or the nearest one above the
// working directory, or the working directory itself.
func (c config) resolveRoot() (string, error) {
	if c.Root != "" {
		return filepath.Abs(c.Root)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := tilth.FindRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}

func (c config) publicDir(root string) string {
	if c.PublicDir != "" {
		return c.PublicDir
	}
	return filepath.Join(root, "public")
}

func (c config) options(extra ...tilth.Option) []tilth.Option {
	opts := []tilth.Option{
		tilth.WithLogger(slog.Default()),
		tilth.WithCollection(c.Collection),
		tilth.WithMustExist(true),
	}
	if nover {
		opts = append(opts, tilth.WithVersioning(false))
	}
	if len(c.AllowList) > 0 {
		opts = append(opts, tilth.WithAllowList(c.AllowList...))
	}
	return append(opts, extra...)
}
