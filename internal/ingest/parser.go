package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

type FrontMatter struct {
	Title       string  `yaml:"title"`
	Date        string  `yaml:"date"`
	Category    string  `yaml:"category"`
	Description string  `yaml:"description"`
	Tags        TagList `yaml:"tags"`
}

// TagList accepts a YAML sequence (block or flow, e.g. [a, b, c]) or a
// single comma separated scalar.
type TagList []string

func (t *TagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*t = items
	case yaml.ScalarNode:
		s := strings.TrimSpace(n.Value)
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		if s == "" {
			*t = nil
			return nil
		}
		var items []string
		for _, item := range strings.Split(s, ",") {
			items = append(items, strings.TrimSpace(item))
		}
		*t = items
	default:
		return fmt.Errorf("tags: unsupported yaml node at line %d", n.Line)
	}
	return nil
}

func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FrontMatter{}, raw, errNoFrontMatter
	}

	// 统一换行符
	norm := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))

	const (
		sep      = "---"
		sepLine  = sep + "\n"
		closeMid = "\n" + sep + "\n"
	)

	if !bytes.HasPrefix(norm, []byte(sepLine)) {
		return FrontMatter{}, norm, errNoFrontMatter
	}

	// 去掉首行 "---\n"
	rest := norm[len(sepLine):]

	var yamlPart, bodyPart []byte

	switch {
	case bytes.HasPrefix(rest, []byte(sepLine)):
		// "---\n---\n" 空 front matter
		bodyPart = rest[len(sepLine):]
	case bytes.Contains(rest, []byte(closeMid)):
		parts := bytes.SplitN(rest, []byte(closeMid), 2)
		yamlPart, bodyPart = parts[0], parts[1]
	case bytes.HasSuffix(rest, []byte("\n"+sep)):
		// 结尾是 "\n---" 且无正文
		yamlPart = rest[:len(rest)-len("\n"+sep)]
	case bytes.Equal(rest, []byte(sep)):
		// "---\n---"
	default:
		// 没有结束的 "---"，开头那行只是分隔线
		return FrontMatter{}, norm, errNoFrontMatter
	}

	yamlPart = bytes.TrimSpace(yamlPart)
	bodyPart = bytes.TrimSpace(bodyPart)

	var fm FrontMatter
	if len(yamlPart) > 0 {
		if err := yaml.Unmarshal(yamlPart, &fm); err != nil {
			return FrontMatter{}, bodyPart, fmt.Errorf("%w: %v", errInvalidFrontMatter, err)
		}
	}
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Category = strings.ToLower(strings.TrimSpace(fm.Category))
	fm.Description = strings.TrimSpace(fm.Description)

	return fm, bodyPart, nil
}

// StripFrontMatter returns the Markdown body. A fenced block is dropped even
// when its YAML does not decode.
func StripFrontMatter(raw []byte) []byte {
	_, body, _ := ParseFrontMatter(raw)
	return body
}

func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		time.DateOnly,
		"2006-01-02 15:04",
		time.DateTime,
		"2006/01/02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
	} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
