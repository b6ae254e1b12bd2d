package ingest

import (
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"cyberblog/internal/domain/content"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ExcerptLimit   = 150
	DefaultExcerpt = "Click to read the full content."
)

var publishedRe = regexp.MustCompile(`\*Published on ([^*]+)\*`)

// TitleFromFilename turns "advanced-buffer_overflow.md" into
// "Advanced Buffer Overflow".
func TitleFromFilename(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	// Caser 有状态，不能跨 goroutine 共享
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(base))
}

// FirstHeading returns the text of the first "# " line.
func FirstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// PublishedDate finds a "*Published on <date>*" marker in the body.
func PublishedDate(body string) time.Time {
	m := publishedRe.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}
	}
	return ParseTime(m[1])
}

// Excerpt takes the first line that is neither blank, a heading nor a
// publication marker, cut to ExcerptLimit runes.
func Excerpt(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || isRule(line) {
			continue
		}
		if publishedRe.MatchString(line) && strings.HasPrefix(line, "*") {
			continue
		}
		return Truncate(line, ExcerptLimit)
	}
	return ""
}

// isRule reports a thematic break such as "---" or "***".
func isRule(line string) bool {
	line = strings.ReplaceAll(line, " ", "")
	if len(line) < 3 {
		return false
	}
	c := line[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	return strings.Count(line, string(c)) == len(line)
}

// Truncate keeps s when it has at most n runes, otherwise returns its first
// n runes followed by "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}

// Classifier resolves a post's category. Precedence: front matter field,
// manifest entry, a path segment naming a category, the filename prefix,
// filename keywords, then Default.
type Classifier struct {
	Categories content.Categories
	Default    string
}

func (c Classifier) Classify(frontMatter string, entry *ManifestEntry, p string) string {
	if cat, ok := c.Categories.Lookup(frontMatter); ok {
		return cat.Key
	}
	if entry != nil {
		if cat, ok := c.Categories.Lookup(entry.Category); ok {
			return cat.Key
		}
		if cat, ok := c.Categories.Lookup(entry.Bucket); ok {
			return cat.Key
		}
	}

	dir := path.Dir(path.Clean("/" + p))
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		if cat, ok := c.Categories.Lookup(seg); ok {
			return cat.Key
		}
	}

	name := strings.ToLower(path.Base(p))
	for _, cat := range c.Categories {
		if cat.Prefix != "" && strings.HasPrefix(name, strings.ToLower(cat.Prefix)) {
			return cat.Key
		}
	}
	for _, cat := range c.Categories {
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return cat.Key
			}
		}
	}

	if cat, ok := c.Categories.Lookup(c.Default); ok {
		return cat.Key
	}
	return ""
}
