package ingest

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/fetch"

	"go.uber.org/zap"
)

// NewLoader wires the fetcher and the discovery strategy selected by cfg.
func NewLoader(cfg config.Config, logger *zap.Logger) (*Loader, error) {
	in := cfg.Ingest

	var f fetch.Fetcher
	var dirFS *fetch.FSFetcher
	if in.Remote() {
		hf, err := fetch.NewHTTP(in.Source, &http.Client{Timeout: in.Timeout})
		if err != nil {
			return nil, err
		}
		f = hf
	} else {
		dirFS = fetch.NewDir(filepath.Clean(in.Source))
		f = dirFS
	}

	d, err := newDiscovery(in, cfg.CategorySet().Keys(), dirFS, logger)
	if err != nil {
		return nil, err
	}

	return &Loader{
		Discovery:       d,
		Fetcher:         f,
		Categories:      cfg.CategorySet(),
		DefaultCategory: in.DefaultCategory,
		RequireDate:     in.RequireDate,
		Workers:         in.Workers,
		Now:             time.Now,
		Logger:          logger,
	}, nil
}

func newDiscovery(in config.IngestConfig, order []string, dirFS *fetch.FSFetcher, logger *zap.Logger) (Discovery, error) {
	var d Discovery
	switch in.Strategy {
	case config.StrategyDir:
		if dirFS == nil {
			return nil, fmt.Errorf("ingest: dir strategy needs a local source, got %q", in.Source)
		}
		d = DirSource{FS: dirFS.FS, Include: in.Include, Exclude: in.Exclude}
	case config.StrategyList:
		d = StaticList{Files: in.Files}
	case config.StrategyManifest:
		d = ManifestSource{Path: in.Manifest, Order: order}
	case config.StrategyListing:
		d = ListingSource{Pages: in.Listings}
	default:
		return nil, fmt.Errorf("ingest: unknown strategy %q", in.Strategy)
	}
	if len(in.Fallback) > 0 {
		d = Fallback{Primary: d, Secondary: StaticList{Files: in.Fallback}, Logger: logger}
	}
	return d, nil
}
