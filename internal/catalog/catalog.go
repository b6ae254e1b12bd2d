// Package catalog holds the posts discovered by one catalog load.
//
// A Catalog is immutable once built; reloading produces a new Catalog that
// replaces the old one wholesale through a Holder.
package catalog

import (
	"sort"

	"cyberblog/internal/domain/content"
)

type Catalog struct {
	posts []content.Post
	byID  map[string]int
}

// New keeps insertion order. Posts sharing an id are collapsed: the last one
// seen wins and sits at the position of its last occurrence.
func New(posts []content.Post) *Catalog {
	last := make(map[string]int, len(posts))
	for i, p := range posts {
		last[p.ID] = i
	}
	c := &Catalog{
		posts: make([]content.Post, 0, len(last)),
		byID:  make(map[string]int, len(last)),
	}
	for i, p := range posts {
		if last[p.ID] != i {
			continue
		}
		c.byID[p.ID] = len(c.posts)
		c.posts = append(c.posts, p)
	}
	return c
}

func Empty() *Catalog {
	return New(nil)
}

// Duplicates lists ids that appear more than once in posts.
func Duplicates(posts []content.Post) []string {
	seen := make(map[string]int, len(posts))
	var out []string
	for _, p := range posts {
		seen[p.ID]++
		if seen[p.ID] == 2 {
			out = append(out, p.ID)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.posts)
}

func (c *Catalog) All() []content.Post {
	out := make([]content.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

func (c *Catalog) Get(id string) (content.Post, bool) {
	i, ok := c.byID[id]
	if !ok {
		return content.Post{}, false
	}
	return c.posts[i], true
}

func (c *Catalog) ByCategory(cat string) []content.Post {
	var out []content.Post
	for _, p := range c.posts {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	SortByDateDesc(out)
	return out
}

// Recent returns up to n posts, newest first. n <= 0 means no cap.
func (c *Catalog) Recent(n int) []content.Post {
	out := c.All()
	SortByDateDesc(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *Catalog) Counts() map[string]int {
	counts := make(map[string]int)
	for _, p := range c.posts {
		counts[p.Category]++
	}
	return counts
}

// SortByDateDesc is stable so equal dates keep catalog order.
func SortByDateDesc(posts []content.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
}
