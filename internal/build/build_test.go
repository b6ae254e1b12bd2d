package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/ingest"
	"cyberblog/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testPosts = map[string]string{
	"offensive/xpwn.md":   "---\ntitle: Pwn Basics\ndate: 2025-01-08\n---\n# Pwn Basics\n\nStack smashing for fun.\n",
	"defensive/zeek.md":   "# Zeek Rules\n\n*Published on January 5, 2025*\n\nWriting detections.\n",
	"research/fuzzing.md": "---\ndate: 2025-01-02\n---\n# Fuzzing\n\nCoverage guided.\n",
}

const pagesPerBuild = 8 // home, blog, five categories, 404

func setup(t *testing.T) (config.Config, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "posts")
	for name, body := range testPosts {
		p := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}

	cfg := config.Default()
	cfg.Ingest.Source = src
	cfg.Build.PublicDir = filepath.Join(root, "public")
	cfg.Build.IndexPath = filepath.Join(root, ".cyberblog", "index.db")
	cfg.Build.Now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return cfg, src
}

func newBuilder(t *testing.T, cfg config.Config) *Builder {
	t.Helper()
	logger := zaptest.NewLogger(t)
	loader, err := ingest.NewLoader(cfg, logger)
	require.NoError(t, err)
	tpl, err := render.NewTemplateRenderer("")
	require.NoError(t, err)
	return &Builder{
		Cfg:    cfg,
		Loader: loader,
		Renderer: &render.Renderer{
			Fetcher:    loader.Fetcher,
			Markdown:   render.NewMarkdownRenderer(""),
			Templates:  tpl,
			Categories: cfg.CategorySet(),
			Site:       cfg.Site,
			Logger:     logger,
		},
		Logger: logger,
	}
}

func readOut(t *testing.T, cfg config.Config, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(cfg.Build.PublicDir, filepath.FromSlash(rel)))
	require.NoError(t, err, rel)
	return string(b)
}

func TestRunWritesSite(t *testing.T) {
	cfg, _ := setup(t)

	res, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Posts)
	assert.Equal(t, pagesPerBuild+3, res.Written)
	assert.Zero(t, res.Skipped)
	assert.Empty(t, res.Warnings)

	home := readOut(t, cfg, "index.html")
	assert.Contains(t, home, `id="recent-posts"`)
	assert.Contains(t, home, `href="/post/offensive/xpwn"`)

	assert.Contains(t, readOut(t, cfg, "adversary/index.html"), "No Adversary Emulation posts yet")
	assert.Contains(t, readOut(t, cfg, "blog/index.html"), "Fuzzing")
	assert.Contains(t, readOut(t, cfg, "404.html"), "<html")

	post := readOut(t, cfg, "post/offensive/xpwn/index.html")
	assert.Contains(t, post, "Stack smashing for fun.")
	assert.Equal(t, post, readOut(t, cfg, "blogs/offensive/xpwn.html"))

	assert.Equal(t, testPosts["defensive/zeek.md"], readOut(t, cfg, "content/defensive/zeek.md"))
	assert.NotEmpty(t, readOut(t, cfg, "static/style.css"))

	m, err := ingest.ParseManifest([]byte(readOut(t, cfg, "manifest.json")))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T12:00:00Z", m.Generated)
	require.Len(t, m.Blogs["defensive"], 1)
	assert.Equal(t, "2025-01-05", m.Blogs["defensive"][0].Date)
}

func TestRunSkipsUnchangedPages(t *testing.T) {
	cfg, _ := setup(t)

	_, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)

	res, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Written)
	assert.Equal(t, pagesPerBuild+3, res.Skipped)

	// 页面被删掉时即使指纹相同也要重写
	require.NoError(t, os.Remove(filepath.Join(cfg.Build.PublicDir, "404.html")))
	res, err = newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	readOut(t, cfg, "404.html")

	b := newBuilder(t, cfg)
	b.Force = true
	res, err = b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pagesPerBuild+3, res.Written)
}

func TestRunRemovesStalePosts(t *testing.T) {
	cfg, src := setup(t)

	_, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(src, "offensive", "xpwn.md")))
	res, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Posts)
	assert.Equal(t, 3, res.Removed)

	for _, rel := range []string{"post/offensive/xpwn/index.html", "blogs/offensive/xpwn.html", "content/offensive/xpwn.md"} {
		_, err := os.Stat(filepath.Join(cfg.Build.PublicDir, filepath.FromSlash(rel)))
		assert.ErrorIs(t, err, os.ErrNotExist, rel)
	}
	assert.NotContains(t, readOut(t, cfg, "index.html"), "Pwn Basics")
	assert.Contains(t, readOut(t, cfg, "offensive/index.html"), "No Offensive Security posts yet")
}

// The public dir is a complete manifest source for another site.
func TestBuiltSiteLoadsThroughManifest(t *testing.T) {
	cfg, _ := setup(t)
	_, err := newBuilder(t, cfg).Run(context.Background())
	require.NoError(t, err)

	mirror := config.Default()
	mirror.Ingest.Strategy = config.StrategyManifest
	mirror.Ingest.Source = cfg.Build.PublicDir
	loader, err := ingest.NewLoader(mirror, nil)
	require.NoError(t, err)

	res, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Equal(t, 3, res.Catalog.Len())
	p, ok := res.Catalog.Get("fuzzing")
	require.True(t, ok)
	assert.Equal(t, "research", p.Category)
	assert.Equal(t, "content/research/fuzzing.md", p.Path)
}

func TestConfigHashTracksSite(t *testing.T) {
	a := config.Default()
	b := config.Default()
	b.Build.PublicDir = "elsewhere"

	ha, err := configHash(a)
	require.NoError(t, err)
	hb, err := configHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Site.Title = "Other"
	hb, err = configHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}
