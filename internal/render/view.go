package render

import (
	"html/template"
	"sort"
	"strings"

	"cyberblog/internal/domain/config"
	"cyberblog/internal/domain/site"
)

// ContainerMarkdown is the older id of the single post container; shells that
// only carry it still get post content.
const ContainerMarkdown = "markdown-content"

type Heading struct {
	Level int
	ID    string
	Text  string
}

// Shell is the set of container ids present on a page.
type Shell map[string]struct{}

func NewShell(ids ...string) Shell {
	s := make(Shell, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// ParseShell reads a comma separated container list.
func ParseShell(list string) Shell {
	return NewShell(strings.Split(list, ",")...)
}

func (s Shell) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Shell) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s Shell) String() string {
	return strings.Join(s.IDs(), ",")
}

type Card struct {
	ID           string
	Title        string
	Category     string
	CategoryName string
	Date         string
	DateISO      string
	Excerpt      string
	URL          string
	Tags         []string
}

type EmptyState struct {
	Title   string
	Message string
}

type ErrorPanel struct {
	Title   string
	Message string
}

type ListingView struct {
	Heading     string
	Description string
	Cards       []Card
	Empty       *EmptyState
}

type PostView struct {
	Card  Card
	HTML  template.HTML
	TOC   []Heading
	Raw   string
	Error *ErrorPanel
}

type NotFoundView struct {
	Path string
}

// Fragment is the rendered content of one container.
type Fragment struct {
	Route     site.Route
	Container string
	Title     string
	Status    int
	HTML      template.HTML
}

type NavItem struct {
	Key    string
	Name   string
	URL    string
	Count  int
	Active bool
}

type Page struct {
	Site       config.SiteConfig
	Title      string
	Nav        []NavItem
	Total      int
	Fragment   Fragment
	Shell      string
	LiveReload bool
	Year       int
}
