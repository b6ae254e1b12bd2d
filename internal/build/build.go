// Package build renders the whole site into a static public dir that any
// file host can serve: pages, the manifest, post sources and theme assets.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"

	"cyberblog/internal/app"
	"cyberblog/internal/catalog"
	fp "cyberblog/internal/domain/build"
	"cyberblog/internal/domain/config"
	"cyberblog/internal/domain/content"
	"cyberblog/internal/domain/site"
	"cyberblog/internal/index"
	"cyberblog/internal/ingest"
	"cyberblog/internal/logging"
	"cyberblog/internal/render"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type Builder struct {
	Cfg      config.Config
	Loader   *ingest.Loader
	Renderer *render.Renderer
	Logger   *zap.Logger
	// Force rewrites pages whose fingerprint did not change
	Force bool
}

type Result struct {
	Posts    int
	Written  int
	Skipped  int
	Removed  int
	Warnings []ingest.Warning
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	log := logging.OrNop(b.Logger).Named("build")

	loaded, err := b.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	st, err := index.Open(index.OpenOptions{Path: b.Cfg.Build.IndexPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	prev, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("read previous index: %w", err)
	}
	if err := st.Rebuild(loaded.Catalog.All(), b.Cfg.Build.Now); err != nil {
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	// 页面只需要元数据，正文渲染时再取
	cat, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}

	res := &Result{Posts: cat.Len(), Warnings: loaded.Warnings}
	fps, err := b.buildPages(ctx, st, cat, outDir, res)
	if err != nil {
		return nil, err
	}
	if err := b.writeManifest(cat, outDir); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	warns, err := b.copySources(ctx, cat, outDir)
	if err != nil {
		return nil, fmt.Errorf("copy sources: %w", err)
	}
	res.Warnings = append(res.Warnings, warns...)
	if err := b.copyStaticAssets(outDir); err != nil {
		return nil, fmt.Errorf("copy static assets: %w", err)
	}
	removed, err := removeStale(prev, cat, outDir)
	if err != nil {
		return nil, fmt.Errorf("remove stale pages: %w", err)
	}
	res.Removed = removed
	if err := st.PutFingerprints(fps); err != nil {
		return nil, fmt.Errorf("store fingerprints: %w", err)
	}

	log.Info("site built",
		zap.String("out", outDir),
		zap.Int("posts", res.Posts),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped),
		zap.Int("removed", res.Removed),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}

type page struct {
	route site.Route
	// extra copies of the same page, e.g. the legacy post path
	aliases []string
}

func (b *Builder) buildPages(ctx context.Context, st *index.Store, cat *catalog.Catalog, outDir string, res *Result) (map[string]fp.Fingerprint, error) {
	rb := app.RouteBuilder{Categories: b.Renderer.Categories}
	var pages []page
	for _, r := range rb.BuildPageRoutes() {
		pages = append(pages, page{route: r})
	}
	for _, p := range cat.All() {
		pages = append(pages, page{route: app.PostRoute(p), aliases: []string{app.LegacyOutPath(p)}})
	}

	cfgHash, err := configHash(b.Cfg)
	if err != nil {
		return nil, err
	}
	rd := b.Renderer.WithCatalog(cat)
	shell := rd.DefaultShell()
	tplHash := rd.Templates.Hash()

	var (
		mu  sync.Mutex
		fps = make(map[string]fp.Fingerprint, len(pages))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Cfg.Ingest.Workers, 1))
	for _, pg := range pages {
		g.Go(func() error {
			frag, _, err := rd.RenderRoute(gctx, shell, pg.route)
			if err != nil {
				return fmt.Errorf("render %s: %w", pg.route.URL(), err)
			}
			html, err := rd.RenderPage(frag, shell, render.PageOptions{Now: b.Cfg.Build.Now})
			if err != nil {
				return fmt.Errorf("render page %s: %w", pg.route.URL(), err)
			}

			f := fp.Fingerprint{ContentHash: fp.HashBytes(html), TemplateHash: tplHash, ConfigHash: cfgHash}
			f.ComputePageHash()

			wrote := 0
			for _, out := range append([]string{pg.route.OutPath}, pg.aliases...) {
				if !b.Force && unchanged(st, outDir, out, f) {
					continue
				}
				if err := writeFile(outDir, out, html); err != nil {
					return err
				}
				wrote++
			}

			mu.Lock()
			defer mu.Unlock()
			fps[pg.route.OutPath] = f
			for _, a := range pg.aliases {
				fps[a] = f
			}
			if wrote > 0 {
				res.Written++
			} else {
				res.Skipped++
			}
			if pg.route.Kind == site.RoutePost && frag.Status != http.StatusOK {
				res.Warnings = append(res.Warnings, ingest.Warning{
					Path: pg.route.URL(),
					Msg:  fmt.Sprintf("post page rendered with status %d", frag.Status),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fps, nil
}

func unchanged(st *index.Store, outDir, out string, f fp.Fingerprint) bool {
	old, err := st.Fingerprint(out)
	if err != nil || old.PageHash != f.PageHash {
		return false
	}
	_, err = os.Stat(filepath.Join(outDir, filepath.FromSlash(out)))
	return err == nil
}

func configHash(cfg config.Config) (string, error) {
	b, err := yaml.Marshal(struct {
		Site       config.SiteConfig  `yaml:"site"`
		Categories []content.Category `yaml:"categories"`
	}{cfg.Site, cfg.Categories})
	if err != nil {
		return "", fmt.Errorf("hash config: %w", err)
	}
	return fp.HashBytes(b), nil
}

func (b *Builder) writeManifest(cat *catalog.Catalog, outDir string) error {
	m := ingest.NewManifest(cat.All(), ingest.ContentPrefix, b.Cfg.Build.Now)
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return writeIfChanged(outDir, "manifest.json", data)
}

// copySources publishes each post's Markdown next to the manifest, so the
// built site can itself be a remote source for another loader.
// A source that can no longer be fetched is a warning.
func (b *Builder) copySources(ctx context.Context, cat *catalog.Catalog, outDir string) ([]ingest.Warning, error) {
	posts := cat.All()
	warns := make([]*ingest.Warning, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Cfg.Ingest.Workers, 1))
	for i, p := range posts {
		g.Go(func() error {
			raw, err := b.Loader.Fetcher.Fetch(gctx, p.Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				warns[i] = &ingest.Warning{Path: p.Path, Msg: "source not copied: " + err.Error()}
				return nil
			}
			return writeIfChanged(outDir, sourceOutPath(p), raw)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []ingest.Warning
	for _, w := range warns {
		if w != nil {
			out = append(out, *w)
		}
	}
	return out, nil
}

func sourceOutPath(p content.Post) string {
	return path.Join(ingest.ContentPrefix, path.Clean("/" + p.Path)[1:])
}

func (b *Builder) copyStaticAssets(outDir string) error {
	src := b.Renderer.Templates.Static()
	return fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		in, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		return writeIfChanged(outDir, path.Join("static", p), in)
	})
}

// removeStale deletes the pages and sources of posts that were in the last
// build but are gone now.
func removeStale(prev, cur *catalog.Catalog, outDir string) (int, error) {
	keep := make(map[string]struct{})
	for _, p := range cur.All() {
		for _, out := range postOutputs(p) {
			keep[out] = struct{}{}
		}
	}

	removed := 0
	for _, p := range prev.All() {
		for _, out := range postOutputs(p) {
			if _, ok := keep[out]; ok {
				continue
			}
			err := os.Remove(filepath.Join(outDir, filepath.FromSlash(out)))
			switch {
			case err == nil:
				removed++
			case !errors.Is(err, fs.ErrNotExist):
				return removed, err
			}
		}
		// 空的 post/<cat>/<slug> 目录一起删掉
		_ = os.Remove(filepath.Join(outDir, filepath.FromSlash(path.Dir(app.PostRoute(p).OutPath))))
	}
	return removed, nil
}

func postOutputs(p content.Post) []string {
	return []string{app.PostRoute(p).OutPath, app.LegacyOutPath(p), sourceOutPath(p)}
}

func writeIfChanged(root, rel string, data []byte) error {
	old, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err == nil && bytes.Equal(old, data) {
		return nil
	}
	return writeFile(root, rel, data)
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}
