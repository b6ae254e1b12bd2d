package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

type Markdown interface {
	Render(src []byte) (MarkdownResult, error)
}

type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer passes raw HTML in posts through unchanged.
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "monokai"
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &MarkdownRenderer{md: md}
}

type MarkdownResult struct {
	HTML     []byte
	Headings []Heading
}

func (r *MarkdownRenderer) Render(src []byte) (MarkdownResult, error) {
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return MarkdownResult{}, err
	}
	return MarkdownResult{
		HTML:     buf.Bytes(),
		Headings: collectHeadings(doc, src),
	}, nil
}

// collectHeadings 只收集二、三级标题，用作文章目录
func collectHeadings(doc ast.Node, src []byte) []Heading {
	var heads []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level < 2 || h.Level > 3 {
			return ast.WalkContinue, nil
		}
		var id string
		if v, ok := h.AttributeString("id"); ok {
			switch v := v.(type) {
			case string:
				id = v
			case []byte:
				id = string(v)
			}
		}
		var textBuf bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if seg, ok := c.(*ast.Text); ok {
				textBuf.Write(seg.Segment.Value(src))
			}
		}
		heads = append(heads, Heading{Level: h.Level, ID: id, Text: textBuf.String()})
		return ast.WalkSkipChildren, nil
	})
	return heads
}
