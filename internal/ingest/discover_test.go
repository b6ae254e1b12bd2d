package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"cyberblog/internal/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidatePaths(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Path)
	}
	return out
}

func TestStaticList(t *testing.T) {
	got, _, err := StaticList{Base: "posts", Files: []string{"a.md", " ", "b.md"}}.Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts/a.md", "posts/b.md"}, candidatePaths(got))
}

func TestListingLinks(t *testing.T) {
	page := `<html><body><pre>
<a href="../">../</a>
<a href="xpwn.md">xpwn.md</a>
<a href="index.html">index.html</a>
<a href="zeek-rules.html">zeek-rules.html</a>
<a href="?C=N;O=D">Name</a>
<a href="https://example.com/other.md">ext</a>
<a href="/abs/post.md">abs</a>
<a href="image.png">image.png</a>
</pre></body></html>`

	got, err := ListingLinks("blogs/offensive/", []byte(page))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"blogs/offensive/xpwn.md",
		"blogs/offensive/zeek-rules.md",
		"/abs/post.md",
	}, got)

	got, err = ListingLinks("blogs/index.html", []byte(`<a href="a.md">a</a>`))
	require.NoError(t, err)
	assert.Equal(t, []string{"blogs/a.md"}, got)
}

func TestListingSourceAgainstFileServer(t *testing.T) {
	fsys := fstest.MapFS{
		"blogs/offensive/xpwn.md":    {Data: []byte("# x")},
		"blogs/offensive/xrop.md":    {Data: []byte("# y")},
		"blogs/defensive/zeek.md":    {Data: []byte("# z")},
		"blogs/defensive/readme.txt": {Data: []byte("skip")},
	}
	srv := httptest.NewServer(http.FileServer(http.FS(fsys)))
	defer srv.Close()

	f, err := fetch.NewHTTP(srv.URL, srv.Client())
	require.NoError(t, err)

	src := ListingSource{Pages: []string{"blogs/offensive/", "blogs/defensive/"}}
	got, warns, err := src.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.Equal(t, []string{
		"blogs/offensive/xpwn.md",
		"blogs/offensive/xrop.md",
		"blogs/defensive/zeek.md",
	}, candidatePaths(got))
}

func TestListingSourceAgainstLocalDir(t *testing.T) {
	f := &fetch.FSFetcher{FS: fstest.MapFS{
		"research/b.md": {Data: []byte("b")},
		"research/a.md": {Data: []byte("a")},
	}}
	got, _, err := ListingSource{Pages: []string{"research/"}}.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"research/a.md", "research/b.md"}, candidatePaths(got))
}

func TestListingSourceFailure(t *testing.T) {
	f := &fetch.FSFetcher{FS: fstest.MapFS{}}
	_, _, err := ListingSource{Pages: []string{"missing/", "gone/"}}.Discover(context.Background(), f)
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

// A missing listing page only drops its own posts; the rest keep page order.
func TestListingSourcePartialFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"offensive/xa.md": {Data: []byte("# A\n\nbody")},
		"defensive/zb.md": {Data: []byte("# B\n\nbody")},
	}
	f := &fetch.FSFetcher{FS: fsys}
	src := ListingSource{Pages: []string{"offensive/", "research/", "defensive/"}}

	got, warns, err := src.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"offensive/xa.md", "defensive/zb.md"}, candidatePaths(got))
	require.Len(t, warns, 1)
	assert.Equal(t, "research/", warns[0].Path)
	assert.Contains(t, warns[0].Msg, "listing skipped")

	res, err := newTestLoader(src, fsys).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"xa", "zb"}, postIDs(res))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "research/", res.Warnings[0].Path)
}

func TestDirSource(t *testing.T) {
	fsys := fstest.MapFS{
		"offensive/xpwn.md":   {Data: []byte("x")},
		"defensive/zeek.md":   {Data: []byte("z")},
		"drafts/wip.md":       {Data: []byte("w")},
		"defensive/notes.txt": {Data: []byte("n")},
	}
	src := DirSource{FS: fsys, Include: []string{"**/*.md", "offensive/*.md"}, Exclude: []string{"drafts/**"}}
	got, _, err := src.Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"defensive/zeek.md", "offensive/xpwn.md"}, candidatePaths(got))
}

func TestManifestSource(t *testing.T) {
	manifest := `{
  "version": 1,
  "blogs": {
    "defensive": [{"title": "Zeek", "file": "blogs/defensive/zeek.md"}],
    "offensive": [{"title": "Pwn", "html": "blogs/offensive/xpwn.html"}]
  },
  "research": [{"title": "Fuzzing", "file": "research/fuzz.md", "date": "2025-01-02"}],
  "projects": [{"title": "No file"}]
}`
	f := &fetch.FSFetcher{FS: fstest.MapFS{"site/manifest.json": {Data: []byte(manifest)}}}

	got, _, err := ManifestSource{Path: "site/manifest.json", Order: []string{"offensive", "defensive"}}.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"site/blogs/offensive/xpwn.md",
		"site/blogs/defensive/zeek.md",
		"site/research/fuzz.md",
		"",
	}, candidatePaths(got))
	assert.Equal(t, "offensive", got[0].Entry.Bucket)
	assert.Equal(t, "Fuzzing", got[2].Entry.Title)
	assert.Equal(t, BucketProjects, got[3].Entry.Bucket)
}

type failingDiscovery struct{}

func (failingDiscovery) Discover(context.Context, fetch.Fetcher) ([]Candidate, []Warning, error) {
	return nil, nil, errors.New("listing disabled")
}

func TestFallback(t *testing.T) {
	d := Fallback{Primary: failingDiscovery{}, Secondary: StaticList{Files: []string{"a.md"}}}
	got, _, err := d.Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, candidatePaths(got))

	d = Fallback{Primary: StaticList{Files: []string{"p.md"}}, Secondary: failingDiscovery{}}
	got, _, err = d.Discover(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p.md"}, candidatePaths(got))

	// 只有部分页面失败时不走 fallback
	f := &fetch.FSFetcher{FS: fstest.MapFS{"offensive/xa.md": {Data: []byte("# A")}}}
	d = Fallback{
		Primary:   ListingSource{Pages: []string{"offensive/", "research/"}},
		Secondary: StaticList{Files: []string{"fallback.md"}},
	}
	got, warns, err := d.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"offensive/xa.md"}, candidatePaths(got))
	assert.Len(t, warns, 1)

	d.Primary = ListingSource{Pages: []string{"research/"}}
	got, _, err = d.Discover(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback.md"}, candidatePaths(got))
}
