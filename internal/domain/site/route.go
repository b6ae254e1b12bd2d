package site

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

type RouteKind string

const (
	RouteHome     RouteKind = "home"
	RouteBlog     RouteKind = "blog"
	RouteCategory RouteKind = "category"
	RoutePost     RouteKind = "post"
	RouteNotFound RouteKind = "404"
)

// Container ids shared with the page shells.
const (
	ContainerRecent  = "recent-posts"
	ContainerAllBlog = "all-blog-posts"
	ContainerPost    = "post-content"
)

type Route struct {
	Kind RouteKind
	// category key for category and post routes
	Key string
	// filename without extension for post routes
	Slug    string
	OutPath string
}

func Home() Route { return Route{Kind: RouteHome} }

func Blog() Route { return Route{Kind: RouteBlog} }

func Category(key string) Route { return Route{Kind: RouteCategory, Key: key} }

func Post(category, slug string) Route {
	return Route{Kind: RoutePost, Key: category, Slug: slug}
}

func NotFound() Route { return Route{Kind: RouteNotFound} }

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Key != "" {
		parts = append(parts, "key="+r.Key)
	}
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

// URL is the canonical path of the route; ParseRoute(r.URL()) == r.
func (r Route) URL() string {
	switch r.Kind {
	case RouteHome:
		return "/"
	case RouteBlog:
		return "/blog"
	case RouteCategory:
		return "/" + url.PathEscape(r.Key)
	case RoutePost:
		return fmt.Sprintf("/post/%s/%s", url.PathEscape(r.Key), url.PathEscape(r.Slug))
	default:
		return "/404.html"
	}
}

// ParseRoute maps a request path onto a route. Legacy page paths of the form
// /blogs/<category>/<name>.html are accepted alongside the canonical ones.
func ParseRoute(p string) Route {
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	p = path.Clean("/" + strings.TrimSpace(p))
	if p == "/" || p == "/index.html" {
		return Home()
	}

	segs := strings.Split(strings.Trim(p, "/"), "/")
	if last := len(segs) - 1; segs[last] == "index.html" {
		segs = segs[:last]
	}
	if len(segs) == 0 {
		return Home()
	}

	switch segs[0] {
	case "blog", "blogs":
		switch len(segs) {
		case 1:
			return Blog()
		case 2:
			return Category(strings.ToLower(segs[1]))
		case 3:
			if name, ok := strings.CutSuffix(segs[2], ".html"); ok && name != "" {
				return Post(strings.ToLower(segs[1]), name)
			}
		}
		return NotFound()
	case "post":
		if len(segs) == 3 && segs[1] != "" && segs[2] != "" {
			return Post(strings.ToLower(segs[1]), strings.TrimSuffix(segs[2], ".md"))
		}
		return NotFound()
	}

	if len(segs) == 1 && !strings.Contains(segs[0], ".") {
		return Category(strings.ToLower(segs[0]))
	}
	return NotFound()
}
