package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"cyberblog/internal/domain/content"
	domainerr "cyberblog/internal/domain/errors"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const EnvPrefix = "CYBERBLOG_"

type Config struct {
	Site       SiteConfig         `yaml:"site" koanf:"site"`
	Ingest     IngestConfig       `yaml:"ingest" koanf:"ingest"`
	Build      BuildConfig        `yaml:"build" koanf:"build"`
	Serve      ServeConfig        `yaml:"serve" koanf:"serve"`
	Log        LogConfig          `yaml:"log" koanf:"log"`
	Categories []content.Category `yaml:"categories" koanf:"categories"`
}

type SiteConfig struct {
	Title       string `yaml:"title" koanf:"title"`
	Subtitle    string `yaml:"subtitle" koanf:"subtitle"`
	Author      string `yaml:"author" koanf:"author"`
	SiteURL     string `yaml:"site_url" koanf:"site_url"`
	Description string `yaml:"description" koanf:"description"`
	HomeLimit   int    `yaml:"home_limit" koanf:"home_limit"`
	// 为空时使用内置主题
	ThemeDir string `yaml:"theme_dir" koanf:"theme_dir"`
}

type Strategy string

const (
	StrategyDir      Strategy = "dir"
	StrategyList     Strategy = "list"
	StrategyManifest Strategy = "manifest"
	StrategyListing  Strategy = "listing"
)

type IngestConfig struct {
	Strategy Strategy `yaml:"strategy" koanf:"strategy"`
	// local directory or http(s) base URL
	Source   string   `yaml:"source" koanf:"source"`
	Files    []string `yaml:"files" koanf:"files"`
	Manifest string   `yaml:"manifest" koanf:"manifest"`
	Listings []string `yaml:"listings" koanf:"listings"`
	// used when the listing pages cannot be fetched
	Fallback []string `yaml:"fallback" koanf:"fallback"`
	Include  []string `yaml:"include" koanf:"include"`
	Exclude  []string `yaml:"exclude" koanf:"exclude"`

	DefaultCategory string        `yaml:"default_category" koanf:"default_category"`
	RequireDate     bool          `yaml:"require_date" koanf:"require_date"`
	Workers         int           `yaml:"workers" koanf:"workers"`
	Timeout         time.Duration `yaml:"timeout" koanf:"timeout"`
}

// Remote reports whether posts are fetched over HTTP instead of read from disk.
func (c IngestConfig) Remote() bool {
	u, err := url.Parse(strings.TrimSpace(c.Source))
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

type BuildConfig struct {
	PublicDir string    `yaml:"public_dir" koanf:"public_dir"`
	IndexPath string    `yaml:"index_path" koanf:"index_path"`
	Now       time.Time `yaml:"-" koanf:"-"`
}

type ServeConfig struct {
	Addr            string `yaml:"addr" koanf:"addr"`
	Watch           bool   `yaml:"watch" koanf:"watch"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:       "0xBlog",
			Subtitle:    "notes from both sides of the wire",
			Description: "Offensive and defensive security write-ups",
			HomeLimit:   6,
		},
		Ingest: IngestConfig{
			Strategy: StrategyDir,
			Source:   "posts",
			Manifest: "manifest.json",
			Include:  []string{"**/*.md"},
			Workers:  4,
			Timeout:  10 * time.Second,
		},
		Build: BuildConfig{
			PublicDir: "public",
			IndexPath: ".cyberblog/index.db",
			Now:       time.Now(),
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Categories: content.DefaultCategories(),
	}
}

// fillDefaults 只补零值字段，文件和环境变量里写到的保持不变
func (c *Config) fillDefaults() {
	d := Default()
	if c.Site.Title == "" {
		c.Site.Title = d.Site.Title
	}
	if c.Site.Subtitle == "" {
		c.Site.Subtitle = d.Site.Subtitle
	}
	if c.Site.Description == "" {
		c.Site.Description = d.Site.Description
	}
	if c.Site.HomeLimit == 0 {
		c.Site.HomeLimit = d.Site.HomeLimit
	}
	if c.Ingest.Strategy == "" {
		c.Ingest.Strategy = d.Ingest.Strategy
	}
	if c.Ingest.Source == "" {
		c.Ingest.Source = d.Ingest.Source
	}
	if c.Ingest.Manifest == "" {
		c.Ingest.Manifest = d.Ingest.Manifest
	}
	if len(c.Ingest.Include) == 0 {
		c.Ingest.Include = d.Ingest.Include
	}
	if c.Ingest.Workers == 0 {
		c.Ingest.Workers = d.Ingest.Workers
	}
	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = d.Ingest.Timeout
	}
	if c.Build.PublicDir == "" {
		c.Build.PublicDir = d.Build.PublicDir
	}
	if c.Build.IndexPath == "" {
		c.Build.IndexPath = d.Build.IndexPath
	}
	if c.Build.Now.IsZero() {
		c.Build.Now = time.Now()
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if len(c.Categories) == 0 {
		c.Categories = d.Categories
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Key = strings.ToLower(strings.TrimSpace(cat.Key))
		if cat.Container == "" && cat.Key != "" {
			cat.Container = cat.Key + "-posts"
		}
		if cat.Name == "" {
			cat.Name = cat.Key
		}
	}
}

func (c Config) CategorySet() content.Categories {
	return content.Categories(c.Categories)
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}
	if u := strings.TrimSpace(c.Site.SiteURL); u != "" && !isValidAbsURL(u) {
		ve.Add("site.site_url", "must be a valid absolute URL")
	}
	if c.Site.HomeLimit < 1 {
		ve.Add("site.home_limit", "must be at least 1")
	}

	switch c.Ingest.Strategy {
	case StrategyDir:
		if c.Ingest.Remote() {
			ve.Add("ingest.source", "dir strategy needs a local directory")
		}
	case StrategyList:
		if len(c.Ingest.Files) == 0 {
			ve.Add("ingest.files", "must list at least one file for the list strategy")
		}
	case StrategyManifest:
		if strings.TrimSpace(c.Ingest.Manifest) == "" {
			ve.Add("ingest.manifest", "must not be empty")
		}
	case StrategyListing:
		if len(c.Ingest.Listings) == 0 {
			ve.Add("ingest.listings", "must name at least one listing page")
		}
	default:
		ve.Add("ingest.strategy", "must be one of 'dir', 'list', 'manifest', 'listing'")
	}
	if strings.TrimSpace(c.Ingest.Source) == "" {
		ve.Add("ingest.source", "must not be empty")
	}
	if c.Ingest.Workers < 0 {
		ve.Add("ingest.workers", "must not be negative")
	}

	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.IndexPath) == "" {
		ve.Add("build.index_path", "must not be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		ve.Addf("log.level", "unknown level %q", c.Log.Level)
	}

	if len(c.Categories) == 0 {
		ve.Add("categories", "must define at least one category")
	}
	keys := make(map[string]struct{}, len(c.Categories))
	containers := make(map[string]struct{}, len(c.Categories))
	for i, cat := range c.Categories {
		field := fmt.Sprintf("categories[%d]", i)
		if cat.Key == "" {
			ve.Add(field+".key", "must not be empty")
			continue
		}
		if _, ok := keys[cat.Key]; ok {
			ve.Addf(field+".key", "duplicate category %q", cat.Key)
		}
		keys[cat.Key] = struct{}{}
		if _, ok := containers[cat.Container]; ok {
			ve.Addf(field+".container", "duplicate container %q", cat.Container)
		}
		containers[cat.Container] = struct{}{}
	}
	if dc := c.Ingest.DefaultCategory; dc != "" {
		if _, ok := keys[dc]; !ok {
			ve.Addf("ingest.default_category", "unknown category %q", dc)
		}
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Load reads path (a missing file means defaults), overlays CYBERBLOG_* env
// vars and validates the result. A double underscore nests keys:
// CYBERBLOG_SERVE__ADDR sets serve.addr.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Default(), fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Default(), fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Default(), fmt.Errorf("loading env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Default(), fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
