package ingest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"cyberblog/internal/domain/content"
)

const ManifestVersion = 1

// ContentPrefix is where post sources are published relative to the
// manifest, by the dev server and by the static build.
const ContentPrefix = "content"

// Top-level manifest buckets outside "blogs".
const (
	BucketResearch = "research"
	BucketProjects = "projects"
)

type ManifestEntry struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	File        string   `json:"file,omitempty"`
	HTML        string   `json:"html,omitempty"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// bucket the entry was listed under; filled by Entries
	Bucket string `json:"-"`
}

// SourceFile is the Markdown path of the entry, relative to the manifest.
func (e ManifestEntry) SourceFile() string {
	if f := strings.TrimSpace(e.File); f != "" {
		return f
	}
	if h, ok := strings.CutSuffix(strings.TrimSpace(e.HTML), ".html"); ok && h != "" {
		return h + ".md"
	}
	return ""
}

type Manifest struct {
	Version   int                        `json:"version"`
	Generated string                     `json:"generated,omitempty"`
	Blogs     map[string][]ManifestEntry `json:"blogs"`
	Research  []ManifestEntry            `json:"research"`
	Projects  []ManifestEntry            `json:"projects"`
}

func ParseManifest(b []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	// version 0 是早期无版本号的格式
	if m.Version > ManifestVersion {
		return Manifest{}, fmt.Errorf("manifest: unsupported version %d", m.Version)
	}
	return m, nil
}

// Entries flattens the manifest: blog buckets in the given category order,
// remaining blog buckets sorted by key, then research, then projects.
func (m Manifest) Entries(order []string) []ManifestEntry {
	var out []ManifestEntry
	add := func(bucket string, items []ManifestEntry) {
		for _, e := range items {
			e.Bucket = bucket
			out = append(out, e)
		}
	}

	done := make(map[string]struct{}, len(m.Blogs))
	for _, key := range order {
		if items, ok := m.Blogs[key]; ok {
			add(key, items)
			done[key] = struct{}{}
		}
	}
	rest := make([]string, 0, len(m.Blogs))
	for key := range m.Blogs {
		if _, ok := done[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		add(key, m.Blogs[key])
	}

	add(BucketResearch, m.Research)
	add(BucketProjects, m.Projects)
	return out
}

// NewManifest is the publish-time index generation step. filePrefix is
// prepended to every post path, e.g. "content/".
func NewManifest(posts []content.Post, filePrefix string, generated time.Time) Manifest {
	m := Manifest{
		Version:  ManifestVersion,
		Blogs:    make(map[string][]ManifestEntry),
		Research: []ManifestEntry{},
		Projects: []ManifestEntry{},
	}
	if !generated.IsZero() {
		m.Generated = generated.UTC().Format(time.RFC3339)
	}
	for _, p := range posts {
		e := ManifestEntry{
			Title:       p.Title,
			Description: p.Excerpt,
			Category:    p.Category,
			File:        path.Join(filePrefix, p.Path),
			HTML:        p.HTML,
			Tags:        p.Tags,
		}
		if p.Dated {
			e.Date = p.DateString()
		}
		switch p.Category {
		case BucketResearch:
			m.Research = append(m.Research, e)
		case BucketProjects:
			m.Projects = append(m.Projects, e)
		default:
			m.Blogs[p.Category] = append(m.Blogs[p.Category], e)
		}
	}
	return m
}

func (m Manifest) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// StampDates gives undated posts the modification time of their source file,
// so a manifest generated from them orders deterministically.
func StampDates(posts []content.Post, fsys fs.FS) []content.Post {
	out := make([]content.Post, len(posts))
	for i, p := range posts {
		if !p.Dated {
			if st, err := fs.Stat(fsys, cleanRel(p.Path)); err == nil {
				mt := st.ModTime().UTC()
				p.Date = time.Date(mt.Year(), mt.Month(), mt.Day(), 0, 0, 0, 0, time.UTC)
				p.Dated = true
			}
		}
		out[i] = p
	}
	return out
}

func cleanRel(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}
