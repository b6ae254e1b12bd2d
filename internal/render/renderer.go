package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"time"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/domain/content"
	"cyberblog/internal/domain/site"
	"cyberblog/internal/fetch"
	"cyberblog/internal/ingest"
	"cyberblog/internal/logging"

	"go.uber.org/zap"
)

const CardDateLayout = "January 2, 2006"

type Catalog interface {
	All() []content.Post
	Recent(n int) []content.Post
	ByCategory(cat string) []content.Post
	Get(id string) (content.Post, bool)
}

type Renderer struct {
	Catalog    Catalog
	Fetcher    fetch.Fetcher
	Markdown   Markdown
	Templates  *TemplateRenderer
	Categories content.Categories
	Site       config.SiteConfig
	Logger     *zap.Logger
}

// WithCatalog returns a copy of r that renders from c.
func (r *Renderer) WithCatalog(c Catalog) *Renderer {
	cp := *r
	cp.Catalog = c
	return &cp
}

// DefaultShell holds every container the built-in layout can show.
func (r *Renderer) DefaultShell() Shell {
	ids := []string{site.ContainerRecent, site.ContainerAllBlog, site.ContainerPost}
	for _, c := range r.Categories {
		ids = append(ids, c.Container)
	}
	return NewShell(ids...)
}

// Container is the container id a route renders into; empty for a category
// that is not configured.
func (r *Renderer) Container(route site.Route) string {
	switch route.Kind {
	case site.RouteHome:
		return site.ContainerRecent
	case site.RouteBlog:
		return site.ContainerAllBlog
	case site.RouteCategory:
		if c, ok := r.Categories.Lookup(route.Key); ok {
			return c.Container
		}
		return ""
	default:
		return site.ContainerPost
	}
}

// RenderRoute renders the container the route targets. ok is false when the
// shell has no such container; nothing is rendered then. Rendering the same
// route against the same catalog always yields the same bytes.
func (r *Renderer) RenderRoute(ctx context.Context, shell Shell, route site.Route) (Fragment, bool, error) {
	if route.Kind == site.RouteCategory {
		if _, ok := r.Categories.Lookup(route.Key); !ok {
			route = site.NotFound()
		}
	}

	container := r.Container(route)
	if !shell.Has(container) {
		if container != site.ContainerPost || !shell.Has(ContainerMarkdown) {
			return Fragment{}, false, nil
		}
		container = ContainerMarkdown
	}

	frag := Fragment{Route: route, Container: container, Status: http.StatusOK}
	var (
		body []byte
		err  error
	)
	switch route.Kind {
	case site.RouteHome:
		body, err = r.renderListing(ListingView{}, r.Catalog.Recent(r.homeLimit()), &EmptyState{
			Title:   "No posts yet",
			Message: "Check back later for new content!",
		})
	case site.RouteBlog:
		frag.Title = "All posts"
		body, err = r.renderListing(ListingView{Heading: "All posts"}, r.Catalog.Recent(0), &EmptyState{
			Title:   "No posts yet",
			Message: "Check back later for new content!",
		})
	case site.RouteCategory:
		cat, _ := r.Categories.Lookup(route.Key)
		frag.Title = r.Categories.DisplayName(cat.Key)
		body, err = r.renderListing(ListingView{Heading: frag.Title, Description: cat.Description}, r.Catalog.ByCategory(cat.Key), &EmptyState{
			Title:   fmt.Sprintf("No %s posts yet", r.Categories.DisplayName(cat.Key)),
			Message: "Check back later for new content!",
		})
	case site.RoutePost:
		var v PostView
		v, frag.Title, frag.Status, err = r.postView(ctx, route)
		if err == nil {
			body, err = r.Templates.RenderPost(v)
		}
	default:
		frag.Title = "Not found"
		frag.Status = http.StatusNotFound
		body, err = r.Templates.RenderNotFound(NotFoundView{Path: route.URL()})
	}
	if err != nil {
		return Fragment{}, true, err
	}
	frag.HTML = template.HTML(body)
	return frag, true, nil
}

func (r *Renderer) homeLimit() int {
	if r.Site.HomeLimit > 0 {
		return r.Site.HomeLimit
	}
	return 6
}

func (r *Renderer) renderListing(v ListingView, posts []content.Post, empty *EmptyState) ([]byte, error) {
	if len(posts) == 0 {
		v.Empty = empty
	}
	for _, p := range posts {
		v.Cards = append(v.Cards, r.card(p))
	}
	return r.Templates.RenderListing(v)
}

func (r *Renderer) card(p content.Post) Card {
	return Card{
		ID:           p.ID,
		Title:        p.Title,
		Category:     p.Category,
		CategoryName: r.Categories.DisplayName(p.Category),
		Date:         p.Date.Format(CardDateLayout),
		DateISO:      p.DateString(),
		Excerpt:      p.Excerpt,
		URL:          site.Post(p.Category, p.Slug()).URL(),
		Tags:         p.Tags,
	}
}

// lookup finds the post a post route points at. A post missing from the
// catalog is still served from <category>/<slug>.md.
func (r *Renderer) lookup(route site.Route) (content.Post, bool) {
	for _, p := range r.Catalog.ByCategory(route.Key) {
		if p.Slug() == route.Slug {
			return p, true
		}
	}
	if p, ok := r.Catalog.Get(content.PostID(route.Slug)); ok && p.Category == route.Key {
		return p, true
	}
	name := route.Slug + ".md"
	return content.Post{
		ID:       content.PostID(name),
		Category: route.Key,
		Filename: name,
		Path:     path.Join(route.Key, name),
	}, false
}

func (r *Renderer) postView(ctx context.Context, route site.Route) (PostView, string, int, error) {
	log := logging.OrNop(r.Logger)
	post, known := r.lookup(route)

	// 不缓存，每次都重新获取正文
	raw, err := r.Fetcher.Fetch(ctx, post.Path)
	if err != nil {
		if ctx.Err() != nil {
			return PostView{}, "", 0, ctx.Err()
		}
		log.Warn("post fetch failed", zap.String("path", post.Path), zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, fetch.ErrNotFound) {
			status = http.StatusNotFound
		}
		title := post.Title
		if title == "" {
			title = ingest.TitleFromFilename(post.Filename)
		}
		return PostView{
			Card:  r.card(post),
			Error: &ErrorPanel{Title: "Error Loading Post", Message: err.Error()},
		}, title, status, nil
	}

	fm, body, fmErr := ingest.ParseFrontMatter(raw)
	if fmErr != nil {
		body = ingest.StripFrontMatter(raw)
	}
	if !known {
		post.Title = fm.Title
		if post.Title == "" {
			post.Title = ingest.FirstHeading(string(body))
		}
		if post.Title == "" {
			post.Title = ingest.TitleFromFilename(post.Filename)
		}
		if d := ingest.ParseTime(fm.Date); !d.IsZero() {
			post.Date, post.Dated = d, true
		} else if d := ingest.PublishedDate(string(body)); !d.IsZero() {
			post.Date, post.Dated = d, true
		}
	}

	v := PostView{Card: r.card(post)}
	if !post.Dated {
		v.Card.Date, v.Card.DateISO = "", ""
	}
	res, err := r.Markdown.Render(body)
	if err != nil {
		log.Warn("markdown render failed, showing raw text", zap.String("path", post.Path), zap.Error(err))
		v.Raw = string(body)
	} else {
		v.HTML = template.HTML(res.HTML)
		v.TOC = res.Headings
	}
	return v, post.Title, http.StatusOK, nil
}

type PageOptions struct {
	LiveReload bool
	Now        time.Time
}

// RenderPage wraps a fragment in the site layout.
func (r *Renderer) RenderPage(frag Fragment, shell Shell, opt PageOptions) ([]byte, error) {
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	page := Page{
		Site:       r.Site,
		Title:      frag.Title,
		Fragment:   frag,
		Shell:      shell.String(),
		LiveReload: opt.LiveReload,
		Year:       now.Year(),
		Total:      len(r.Catalog.All()),
	}
	for _, c := range r.Categories {
		n := len(r.Catalog.ByCategory(c.Key))
		page.Nav = append(page.Nav, NavItem{
			Key:    c.Key,
			Name:   c.Name,
			URL:    site.Category(c.Key).URL(),
			Count:  n,
			Active: frag.Route.Key == c.Key,
		})
	}
	return r.Templates.RenderPage(page)
}
