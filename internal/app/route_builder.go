package app

import (
	"path"

	"cyberblog/internal/domain/content"
	"cyberblog/internal/domain/site"
)

// RouteBuilder lists every page a static build writes, with its output path
// relative to the public dir.
type RouteBuilder struct {
	Categories content.Categories
}

// BuildPageRoutes: home, all posts, one listing per configured category and
// the 404 page. Empty categories still get a listing.
func (rb RouteBuilder) BuildPageRoutes() []site.Route {
	routes := []site.Route{
		withOut(site.Home(), "index.html"),
		withOut(site.Blog(), path.Join("blog", "index.html")),
	}
	for _, c := range rb.Categories {
		routes = append(routes, withOut(site.Category(c.Key), path.Join(c.Key, "index.html")))
	}
	return append(routes, withOut(site.NotFound(), "404.html"))
}

func (rb RouteBuilder) BuildPostRoutes(posts []content.Post) []site.Route {
	routes := make([]site.Route, 0, len(posts))
	for _, p := range posts {
		routes = append(routes, PostRoute(p))
	}
	return routes
}

// PostRoute is the canonical post page: /post/<category>/<slug>/index.html.
func PostRoute(p content.Post) site.Route {
	r := site.Post(p.Category, p.Slug())
	r.OutPath = path.Join("post", p.Category, p.Slug(), "index.html")
	return r
}

// LegacyOutPath keeps old /blogs/<category>/<name>.html links working on
// static hosts.
func LegacyOutPath(p content.Post) string {
	return path.Join("blogs", p.Category, p.Slug()+".html")
}

func withOut(r site.Route, out string) site.Route {
	r.OutPath = out
	return r
}
