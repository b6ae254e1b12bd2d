package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/ingest"
	"cyberblog/internal/logging"
	"cyberblog/internal/render"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cyberblog",
	Short: "Security blog: loads Markdown posts and serves or builds the site",
	Long: `cyberblog discovers Markdown posts from a local tree, a manifest or
directory listings, classifies them into categories and renders the blog
either live (serve) or into a static public dir (build).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "site.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Development || verbose)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func newRenderer(cfg config.Config, loader *ingest.Loader, logger *zap.Logger) (*render.Renderer, error) {
	tpl, err := render.NewTemplateRenderer(cfg.Site.ThemeDir)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	return &render.Renderer{
		Fetcher:    loader.Fetcher,
		Markdown:   render.NewMarkdownRenderer(""),
		Templates:  tpl,
		Categories: cfg.CategorySet(),
		Site:       cfg.Site,
		Logger:     logger,
	}, nil
}
