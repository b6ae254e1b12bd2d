package app

import (
	"testing"

	"cyberblog/internal/domain/content"
	"cyberblog/internal/domain/site"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestBuildPageRoutes(t *testing.T) {
	rb := RouteBuilder{Categories: content.Categories{
		{Key: "offensive", Container: "offensive-posts"},
		{Key: "adversary", Container: "adversary-posts"},
	}}

	got := rb.BuildPageRoutes()
	want := []site.Route{
		{Kind: site.RouteHome, OutPath: "index.html"},
		{Kind: site.RouteBlog, OutPath: "blog/index.html"},
		{Kind: site.RouteCategory, Key: "offensive", OutPath: "offensive/index.html"},
		{Kind: site.RouteCategory, Key: "adversary", OutPath: "adversary/index.html"},
		{Kind: site.RouteNotFound, OutPath: "404.html"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPostRoutes(t *testing.T) {
	posts := []content.Post{
		{ID: "xpwn", Category: "offensive", Filename: "xpwn.md"},
		{ID: "zeek-rules", Category: "defensive", Filename: "Zeek_Rules.md"},
	}
	routes := RouteBuilder{}.BuildPostRoutes(posts)

	assert.Equal(t, []site.Route{
		{Kind: site.RoutePost, Key: "offensive", Slug: "xpwn", OutPath: "post/offensive/xpwn/index.html"},
		{Kind: site.RoutePost, Key: "defensive", Slug: "Zeek_Rules", OutPath: "post/defensive/Zeek_Rules/index.html"},
	}, routes)

	for _, r := range routes {
		assert.Equal(t, r.Kind, site.ParseRoute(r.URL()).Kind)
	}
	assert.Equal(t, "blogs/offensive/xpwn.html", LegacyOutPath(posts[0]))
	assert.Equal(t, site.Post("offensive", "xpwn"), site.ParseRoute("/"+LegacyOutPath(posts[0])))
}
