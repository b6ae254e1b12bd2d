package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cyberblog/internal/catalog"
	"cyberblog/internal/domain/content"
	"cyberblog/internal/fetch"
	"cyberblog/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Warning struct {
	Path string
	Msg  string
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Msg
	}
	return w.Path + ": " + w.Msg
}

type Result struct {
	Catalog  *catalog.Catalog
	Warnings []Warning
}

// Loader builds a catalog from scratch on every Load: discover candidates,
// fetch each one, normalize it into a Post.
type Loader struct {
	Discovery       Discovery
	Fetcher         fetch.Fetcher
	Categories      content.Categories
	DefaultCategory string
	RequireDate     bool
	Workers         int
	Now             func() time.Time
	Logger          *zap.Logger
}

// slot 保存单个候选的处理结果，按候选顺序汇总
type slot struct {
	post  content.Post
	ok    bool
	warns []Warning
}

// Load returns whatever could be loaded. Per-file and discovery failures end
// up in Result.Warnings; only context cancellation is returned as an error.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	log := logging.OrNop(l.Logger)
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	loadedAt := now().UTC()

	candidates, discoverWarns, err := l.Discovery.Discover(ctx, l.Fetcher)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		w := Warning{Msg: "discovery failed: " + err.Error()}
		log.Warn("catalog discovery failed", zap.Error(err))
		return Result{Catalog: catalog.Empty(), Warnings: []Warning{w}}, nil
	}

	slots := make([]slot, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	workers := l.Workers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for i, c := range candidates {
		g.Go(func() error {
			slots[i] = l.loadOne(gctx, c, loadedAt)
			// 单个文件失败不影响其它文件，只有取消才中止
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var posts []content.Post
	warns := discoverWarns
	for _, s := range slots {
		warns = append(warns, s.warns...)
		if s.ok {
			posts = append(posts, s.post)
		}
	}
	for _, id := range catalog.Duplicates(posts) {
		warns = append(warns, Warning{Msg: "duplicate post id " + id + ", keeping the last one"})
	}

	for _, w := range warns {
		log.Warn("catalog warning", zap.String("path", w.Path), zap.String("msg", w.Msg))
	}
	cat := catalog.New(posts)
	log.Info("catalog loaded",
		zap.Int("candidates", len(candidates)),
		zap.Int("posts", cat.Len()),
		zap.Int("warnings", len(warns)),
	)
	return Result{Catalog: cat, Warnings: warns}, nil
}

func (l *Loader) loadOne(ctx context.Context, c Candidate, loadedAt time.Time) slot {
	if strings.TrimSpace(c.Path) == "" {
		title := ""
		if c.Entry != nil {
			title = c.Entry.Title
		}
		return slot{warns: []Warning{{Path: title, Msg: "manifest entry has no file"}}}
	}

	raw, err := l.Fetcher.Fetch(ctx, c.Path)
	if err != nil {
		msg := "fetch failed: " + err.Error()
		if errors.Is(err, fetch.ErrNotFound) {
			msg = "not found, skipped"
		}
		return slot{warns: []Warning{{Path: c.Path, Msg: msg}}}
	}

	post, warns, ok := l.Normalize(c, raw, loadedAt)
	return slot{post: post, ok: ok, warns: warns}
}

// Normalize turns one fetched source into a Post. ok is false when the post
// has to be skipped; the reason is in the warnings.
func (l *Loader) Normalize(c Candidate, raw []byte, loadedAt time.Time) (content.Post, []Warning, bool) {
	var warns []Warning
	warn := func(format string, args ...any) {
		warns = append(warns, Warning{Path: c.Path, Msg: fmt.Sprintf(format, args...)})
	}

	fm, body, err := ParseFrontMatter(raw)
	if err != nil && !errors.Is(err, errNoFrontMatter) {
		// 坏掉的 front matter 忽略，文章照常加载
		warn("ignoring front matter: %v", err)
		fm = FrontMatter{}
	}
	text := string(body)
	entry := c.Entry
	if entry == nil {
		entry = &ManifestEntry{}
	}

	filename := path.Base(c.Path)
	post := content.Post{
		ID:       content.PostID(filename),
		Filename: filename,
		Path:     c.Path,
		HTML:     entry.HTML,
		Content:  text,
	}
	if post.ID == "" {
		warn("empty post id")
		return content.Post{}, warns, false
	}

	post.Category = Classifier{Categories: l.Categories, Default: l.DefaultCategory}.Classify(fm.Category, c.Entry, c.Path)
	if post.Category == "" {
		warn("no category could be determined")
		return content.Post{}, warns, false
	}
	if fm.Category != "" && fm.Category != post.Category {
		warn("unknown category %q in front matter", fm.Category)
	}

	post.Title = firstNonEmpty(fm.Title, entry.Title, FirstHeading(text), TitleFromFilename(filename))

	post.Date = ParseTime(fm.Date)
	if fm.Date != "" && post.Date.IsZero() {
		warn("unparseable date %q", fm.Date)
	}
	if post.Date.IsZero() {
		post.Date = PublishedDate(text)
	}
	if post.Date.IsZero() {
		post.Date = ParseTime(entry.Date)
	}
	post.Dated = !post.Date.IsZero()
	if !post.Dated {
		if l.RequireDate {
			warn("no date, skipped")
			return content.Post{}, warns, false
		}
		post.Date = loadedAt
	}

	post.Excerpt = firstNonEmpty(fm.Description, entry.Description, Excerpt(text), DefaultExcerpt)

	tags := []string(fm.Tags)
	if len(tags) == 0 {
		tags = entry.Tags
	}
	post.Tags = content.NormalizeTags(tags)

	return post, warns, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
