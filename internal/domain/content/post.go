package content

import (
	"strings"
	"time"
)

const DateLayout = time.DateOnly

type Post struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
	// false 表示日期来自加载时刻，而不是内容本身
	Dated bool `json:"dated"`

	Excerpt  string   `json:"excerpt"`
	Filename string   `json:"filename"`
	Path     string   `json:"path"`
	HTML     string   `json:"html,omitempty"`
	Tags     []string `json:"tags,omitempty"`

	Content string `json:"content,omitempty"`
}

// Slug is the filename without its extension, as used in post URLs.
func (p Post) Slug() string {
	base := p.Filename
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

func (p Post) DateString() string {
	if p.Date.IsZero() {
		return ""
	}
	return p.Date.Format(DateLayout)
}

// PostID derives the stable catalog id from a filename: the extension is
// dropped, the rest lowercased, and every rune outside [a-z0-9] becomes '-'.
func PostID(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".md")
	base = strings.TrimSuffix(base, ".markdown")
	base = strings.ToLower(base)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
}

func NormalizeTags(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
