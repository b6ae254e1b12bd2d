package main

import (
	"cyberblog/internal/ingest"
	"cyberblog/internal/serve"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blog over HTTP",
	Long: `Serves full pages, container fragments for client side navigation,
/api/posts and /manifest.json. With --watch a local source is reloaded on
every change and open pages refresh themselves.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides serve.addr)")
	serveCmd.Flags().Bool("watch", false, "reload posts when the source dir changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Serve.Addr = addr
	}
	if cmd.Flags().Changed("watch") {
		cfg.Serve.Watch, _ = cmd.Flags().GetBool("watch")
	}

	loader, err := ingest.NewLoader(cfg, logger)
	if err != nil {
		return err
	}
	rd, err := newRenderer(cfg, loader, logger)
	if err != nil {
		return err
	}
	s := serve.New(serve.Options{Config: cfg, Loader: loader, Renderer: rd, Logger: logger})
	return s.Run(cmd.Context())
}
