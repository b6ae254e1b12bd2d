package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/posts/a.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# A\n"))
	})
	mux.HandleFunc("/site/broken.md", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := NewHTTP(srv.URL+"/site", nil)
	require.NoError(t, err)

	b, err := f.Fetch(context.Background(), "./posts/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A\n", string(b))

	_, err = f.Fetch(context.Background(), "missing.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = f.Fetch(context.Background(), "broken.md")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestHTTPFetcherBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f, err := NewHTTP(srv.URL, nil)
	require.NoError(t, err)

	f.MaxBytes = 10
	b, err := f.Fetch(context.Background(), "exact.md")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(b))

	f.MaxBytes = 9
	b, err = f.Fetch(context.Background(), "big.md")
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Nil(t, b)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestHTTPFetcherURL(t *testing.T) {
	f, err := NewHTTP("https://blog.example.com/static", nil)
	require.NoError(t, err)

	u, err := f.URL("blogs/offensive/x.md")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/static/blogs/offensive/x.md", u)

	u, err = f.URL("./")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/static/", u)

	_, err = NewHTTP("ftp://example.com", nil)
	assert.Error(t, err)
}

func TestFSFetcher(t *testing.T) {
	f := &FSFetcher{FS: fstest.MapFS{
		"posts/a.md":           {Data: []byte("# A")},
		"posts/offensive/x.md": {Data: []byte("# X")},
	}}
	ctx := context.Background()

	b, err := f.Fetch(ctx, "/posts/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A", string(b))

	_, err = f.Fetch(ctx, "posts/nope.md")
	assert.True(t, errors.Is(err, ErrNotFound))

	// escaping the root is cleaned away
	b, err = f.Fetch(ctx, "../posts/a.md")
	require.NoError(t, err)
	assert.Equal(t, "# A", string(b))

	listing, err := f.Fetch(ctx, "posts/")
	require.NoError(t, err)
	assert.Contains(t, string(listing), `<a href="a.md">a.md</a>`)
	assert.Contains(t, string(listing), `<a href="offensive/">offensive/</a>`)
}

func TestFSFetcherCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&FSFetcher{FS: fstest.MapFS{}}).Fetch(ctx, "a.md")
	assert.ErrorIs(t, err, context.Canceled)
}
