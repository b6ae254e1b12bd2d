package content

import "strings"

type Category struct {
	Key         string   `yaml:"key" koanf:"key" json:"key"`
	Name        string   `yaml:"name" koanf:"name" json:"name"`
	Description string   `yaml:"description" koanf:"description" json:"description"`
	Container   string   `yaml:"container" koanf:"container" json:"container"`
	Prefix      string   `yaml:"prefix,omitempty" koanf:"prefix" json:"prefix,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" koanf:"keywords" json:"keywords,omitempty"`
}

func DefaultCategories() []Category {
	return []Category{
		{
			Key:         "offensive",
			Name:        "Offensive Security",
			Description: "Penetration testing, exploit development, and red team operations",
			Container:   "offensive-posts",
			Prefix:      "x",
			Keywords:    []string{"offensive", "exploit", "attack", "penetration", "buffer-overflow"},
		},
		{
			Key:         "defensive",
			Name:        "Defensive Security",
			Description: "Blue team strategies, incident response, and security monitoring",
			Container:   "defensive-posts",
			Prefix:      "z",
			Keywords:    []string{"siem", "defense", "detection"},
		},
		{
			Key:         "research",
			Name:        "Research",
			Description: "Vulnerability research and write-ups",
			Container:   "research-posts",
		},
		{
			Key:         "projects",
			Name:        "Projects",
			Description: "Tools and side projects",
			Container:   "project-posts",
		},
		{
			Key:         "adversary",
			Name:        "Adversary Emulation",
			Description: "Threat actor tradecraft and emulation plans",
			Container:   "adversary-posts",
		},
	}
}

// Categories is the closed set of content buckets, in display order.
type Categories []Category

func (cs Categories) Lookup(key string) (Category, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return Category{}, false
	}
	for _, c := range cs {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

func (cs Categories) Keys() []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Key)
	}
	return out
}

// DisplayName falls back to the raw key for unknown categories.
func (cs Categories) DisplayName(key string) string {
	if c, ok := cs.Lookup(key); ok && c.Name != "" {
		return c.Name
	}
	return key
}
