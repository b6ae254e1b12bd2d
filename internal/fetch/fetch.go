// Package fetch retrieves post sources, manifests and listing pages either
// from a static HTTP host or from a local directory.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	domainerr "cyberblog/internal/domain/errors"
)

var (
	ErrNotFound = domainerr.ErrNotFound
	ErrTooLarge = errors.New("fetch: response body too large")
)

const maxBodyBytes = 8 << 20

type Fetcher interface {
	Fetch(ctx context.Context, p string) ([]byte, error)
}

type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && (e.Code == http.StatusNotFound || e.Code == http.StatusGone)
}

type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
	// MaxBytes caps a response body, 8 MiB by default
	MaxBytes int64
}

// NewHTTP resolves every fetched path against base, which is treated as a
// directory even without a trailing slash.
func NewHTTP(base string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{base: u, client: client, MaxBytes: maxBodyBytes}, nil
}

func (f *HTTPFetcher) URL(p string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(p, "./"))
	if err != nil {
		return "", err
	}
	return f.base.ResolveReference(ref).String(), nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	target, err := f.URL(p)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = maxBodyBytes
	}
	// 多读一个字节，才能区分刚好到上限和超出上限
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, target, limit)
	}
	return b, nil
}

// FSFetcher reads from an fs.FS. Fetching a directory yields an autoindex
// style HTML listing, so listing discovery works against local trees too.
type FSFetcher struct {
	FS fs.FS
}

func NewDir(root string) *FSFetcher {
	return &FSFetcher{FS: os.DirFS(root)}
}

func (f *FSFetcher) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := cleanFSPath(p)

	st, err := fs.Stat(f.FS, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fetch %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	if st.IsDir() {
		return f.listing(name)
	}
	b, err := fs.ReadFile(f.FS, name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	return b, nil
}

func (f *FSFetcher) listing(dir string) ([]byte, error) {
	entries, err := fs.ReadDir(f.FS, dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var buf bytes.Buffer
	buf.WriteString("<!doctype html>\n<meta name=\"viewport\" content=\"width=device-width\">\n<pre>\n")
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		href := (&url.URL{Path: name}).String()
		fmt.Fprintf(&buf, "<a href=\"%s\">%s</a>\n", html.EscapeString(href), html.EscapeString(name))
	}
	buf.WriteString("</pre>\n")
	return buf.Bytes(), nil
}

func cleanFSPath(p string) string {
	name := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
	if name == "" {
		return "."
	}
	return name
}
