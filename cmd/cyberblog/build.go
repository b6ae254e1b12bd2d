package main

import (
	"fmt"

	"cyberblog/internal/build"
	"cyberblog/internal/ingest"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the site into the public dir",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "override build.public_dir")
	buildCmd.Flags().Bool("force", false, "rewrite pages even when unchanged")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Build.PublicDir = out
	}
	force, _ := cmd.Flags().GetBool("force")

	loader, err := ingest.NewLoader(cfg, logger)
	if err != nil {
		return err
	}
	rd, err := newRenderer(cfg, loader, logger)
	if err != nil {
		return err
	}
	b := &build.Builder{Cfg: cfg, Loader: loader, Renderer: rd, Logger: logger, Force: force}
	res, err := b.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	fmt.Fprintf(out, "Built %s: %d posts, %d pages written, %d unchanged, %d removed\n",
		cfg.Build.PublicDir, res.Posts, res.Written, res.Skipped, res.Removed)
	return nil
}
