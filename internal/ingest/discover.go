package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"

	"cyberblog/internal/fetch"
	"cyberblog/internal/logging"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Candidate is one post source to fetch. Entry is set when the candidate
// came from a manifest.
type Candidate struct {
	Path  string
	Entry *ManifestEntry
}

// Discovery lists the post sources to fetch. Problems that leave the rest
// usable come back as warnings; an error means nothing could be discovered.
type Discovery interface {
	Discover(ctx context.Context, f fetch.Fetcher) ([]Candidate, []Warning, error)
}

// StaticList is a fixed, build-time list of post files.
type StaticList struct {
	Base  string
	Files []string
}

func (s StaticList) Discover(ctx context.Context, _ fetch.Fetcher) ([]Candidate, []Warning, error) {
	out := make([]Candidate, 0, len(s.Files))
	for _, f := range s.Files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, Candidate{Path: path.Join(s.Base, f)})
	}
	return out, nil, nil
}

// ManifestSource reads the JSON manifest; entry files are relative to it.
type ManifestSource struct {
	Path string
	// blog bucket order, normally the configured category keys
	Order []string
}

func (s ManifestSource) Discover(ctx context.Context, f fetch.Fetcher) ([]Candidate, []Warning, error) {
	raw, err := f.Fetch(ctx, s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch manifest: %w", err)
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, nil, err
	}
	dir := path.Dir(s.Path)
	entries := m.Entries(s.Order)
	out := make([]Candidate, 0, len(entries))
	for i := range entries {
		e := entries[i]
		var p string
		if src := e.SourceFile(); src != "" {
			p = path.Join(dir, src)
		}
		out = append(out, Candidate{Path: p, Entry: &e})
	}
	return out, nil, nil
}

// ListingSource scrapes directory index pages for links to posts. Pages are
// fetched in parallel and joined in page order. A page that cannot be
// fetched or parsed is a warning; only when every page fails is discovery
// an error.
type ListingSource struct {
	Pages []string
}

type listingPage struct {
	found []Candidate
	err   error
}

func (s ListingSource) Discover(ctx context.Context, f fetch.Fetcher) ([]Candidate, []Warning, error) {
	pages := make([]listingPage, len(s.Pages))
	var g errgroup.Group
	for i, page := range s.Pages {
		g.Go(func() error {
			raw, err := f.Fetch(ctx, page)
			if err != nil {
				pages[i].err = fmt.Errorf("fetch listing %s: %w", page, err)
				return ctx.Err()
			}
			links, err := ListingLinks(page, raw)
			if err != nil {
				pages[i].err = fmt.Errorf("parse listing %s: %w", page, err)
				return nil
			}
			for _, l := range links {
				pages[i].found = append(pages[i].found, Candidate{Path: l})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		out   []Candidate
		warns []Warning
		errs  []error
	)
	for i, pg := range pages {
		if pg.err != nil {
			warns = append(warns, Warning{Path: s.Pages[i], Msg: "listing skipped: " + pg.err.Error()})
			errs = append(errs, pg.err)
			continue
		}
		out = append(out, pg.found...)
	}
	if len(s.Pages) > 0 && len(errs) == len(s.Pages) {
		return nil, nil, errors.Join(errs...)
	}
	return out, warns, nil
}

// ListingLinks returns the post paths linked from a directory listing page,
// resolved against the page's directory. Links to .html pages are mapped to
// their sibling .md source.
func ListingLinks(page string, raw []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	dir := page
	if !strings.HasSuffix(dir, "/") {
		dir = path.Dir(dir)
	}

	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if p, ok := resolveListingHref(dir, attr.Val); ok {
					out = append(out, p)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func resolveListingHref(dir, href string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := u.Path
	lower := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lower, ".md"):
	case strings.HasSuffix(lower, ".html"):
		if path.Base(lower) == "index.html" {
			return "", false
		}
		p = p[:len(p)-len(".html")] + ".md"
	default:
		return "", false
	}
	if strings.HasPrefix(p, "/") {
		return path.Clean(p), true
	}
	return path.Join(dir, p), true
}

// DirSource globs a local tree. It is the source of the publish-time
// manifest and of the dev server.
type DirSource struct {
	FS      fs.FS
	Include []string
	Exclude []string
}

func (s DirSource) Discover(ctx context.Context, _ fetch.Fetcher) ([]Candidate, []Warning, error) {
	include := s.Include
	if len(include) == 0 {
		include = []string{"**/*.md"}
	}
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range include {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		matches, err := doublestar.Glob(s.FS, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			excluded, err := s.excluded(m)
			if err != nil {
				return nil, nil, err
			}
			if excluded {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		out = append(out, Candidate{Path: p})
	}
	return out, nil, nil
}

func (s DirSource) excluded(p string) (bool, error) {
	for _, pattern := range s.Exclude {
		ok, err := doublestar.Match(pattern, p)
		if err != nil {
			return false, fmt.Errorf("exclude %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Fallback uses Secondary when Primary cannot discover anything, e.g. the
// directory listing is disabled on the host.
type Fallback struct {
	Primary   Discovery
	Secondary Discovery
	Logger    *zap.Logger
}

func (s Fallback) Discover(ctx context.Context, f fetch.Fetcher) ([]Candidate, []Warning, error) {
	out, warns, err := s.Primary.Discover(ctx, f)
	if err == nil {
		return out, warns, nil
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	logging.OrNop(s.Logger).Warn("primary discovery failed, using fallback", zap.Error(err))
	return s.Secondary.Discover(ctx, f)
}
