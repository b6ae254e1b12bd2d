package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/ingest"

	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Generate manifest.json from the local posts dir",
	Long: `Scans ingest.source, gives undated posts their file modification date
and writes the manifest that the manifest strategy reads. Use - as the
output to print it.`,
	RunE: runManifest,
}

func init() {
	manifestCmd.Flags().StringP("output", "o", "", "output file (defaults to <source>/<ingest.manifest>)")
	manifestCmd.Flags().String("prefix", "", "path prefix for every post file")
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Ingest.Remote() {
		return fmt.Errorf("manifest needs a local source, got %s", cfg.Ingest.Source)
	}
	// 清单总是从目录扫描生成
	cfg.Ingest.Strategy = config.StrategyDir
	cfg.Ingest.Fallback = nil

	loader, err := ingest.NewLoader(cfg, logger)
	if err != nil {
		return err
	}
	res, err := loader.Load(cmd.Context())
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	posts := ingest.StampDates(res.Catalog.All(), os.DirFS(cfg.Ingest.Source))
	data, err := ingest.NewManifest(posts, prefix, time.Now()).Marshal()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if out == "" {
		out = filepath.Join(cfg.Ingest.Source, filepath.FromSlash(cfg.Ingest.Manifest))
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest to %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d posts)\n", out, len(posts))
	return nil
}
