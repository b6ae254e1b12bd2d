package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainerr "cyberblog/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "site.yaml"))
	require.NoError(t, err)

	assert.Equal(t, StrategyDir, cfg.Ingest.Strategy)
	assert.Equal(t, 6, cfg.Site.HomeLimit)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Len(t, cfg.Categories, 5)
	assert.False(t, cfg.Build.Now.IsZero())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	data := `
site:
  title: Red Notes
  home_limit: 3
ingest:
  strategy: manifest
  source: https://blog.example.com/
  manifest: data/manifest.json
  timeout: 5s
categories:
  - key: Offensive
    name: Offense
  - key: defensive
    name: Defense
    container: blue-posts
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Red Notes", cfg.Site.Title)
	assert.Equal(t, 3, cfg.Site.HomeLimit)
	assert.Equal(t, StrategyManifest, cfg.Ingest.Strategy)
	assert.True(t, cfg.Ingest.Remote())
	assert.Equal(t, 5*time.Second, cfg.Ingest.Timeout)
	require.Len(t, cfg.Categories, 2)
	assert.Equal(t, "offensive", cfg.Categories[0].Key)
	assert.Equal(t, "offensive-posts", cfg.Categories[0].Container)
	assert.Equal(t, "blue-posts", cfg.Categories[1].Container)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CYBERBLOG_SERVE__ADDR", "127.0.0.1:9000")
	t.Setenv("CYBERBLOG_SITE__HOME_LIMIT", "4")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Serve.Addr)
	assert.Equal(t, 4, cfg.Site.HomeLimit)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Site.Title = " "
	cfg.Ingest.Strategy = "scrape"
	cfg.Ingest.DefaultCategory = "blue"
	cfg.Log.Level = "loud"
	cfg.Categories = append(cfg.Categories, cfg.Categories[0])

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerr.ErrInvalid))

	var ve domainerr.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := ve.Fields()
	assert.Contains(t, fields, "site.title")
	assert.Contains(t, fields, "ingest.strategy")
	assert.Contains(t, fields, "ingest.default_category")
	assert.Contains(t, fields, "log.level")
	assert.Contains(t, fields, "categories[5].key")
}

func TestValidate_StrategyRequirements(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Strategy = StrategyList
	assert.Error(t, cfg.Validate())

	cfg.Ingest.Files = []string{"a.md"}
	assert.NoError(t, cfg.Validate())

	cfg.Ingest.Strategy = StrategyDir
	cfg.Ingest.Source = "http://example.com/posts/"
	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")

	original := Default()
	original.Site.Title = "Saved"
	original.Ingest.Strategy = StrategyListing
	original.Ingest.Listings = []string{"./", "blogs/offensive/"}
	original.Ingest.Fallback = []string{"advanced-buffer-overflow.md"}
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Saved", loaded.Site.Title)
	assert.Equal(t, StrategyListing, loaded.Ingest.Strategy)
	assert.Equal(t, original.Ingest.Listings, loaded.Ingest.Listings)
	assert.Equal(t, original.Ingest.Fallback, loaded.Ingest.Fallback)
	assert.Equal(t, original.Ingest.Timeout, loaded.Ingest.Timeout)
	assert.Equal(t, original.Categories, loaded.Categories)
}
