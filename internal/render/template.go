package render

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"sort"
)

//go:embed theme
var embeddedTheme embed.FS

var requiredTemplates = []string{
	"layout.tmpl",
	"listing.tmpl",
	"post.tmpl",
	"notfound.tmpl",
}

type TemplateRenderer struct {
	tpl    *template.Template
	static fs.FS
	hash   string
}

// NewTemplateRenderer loads the built-in theme, or the one in themeDir when
// set. A theme dir holds templates/*.tmpl and static/.
func NewTemplateRenderer(themeDir string) (*TemplateRenderer, error) {
	var root fs.FS
	if themeDir == "" {
		sub, err := fs.Sub(embeddedTheme, "theme")
		if err != nil {
			return nil, err
		}
		root = sub
	} else {
		root = os.DirFS(themeDir)
		if err := CheckThemeTemplates(root); err != nil {
			return nil, err
		}
	}

	tpl, err := template.ParseFS(root, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	hash, err := hashTemplates(root)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(root, "static")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{tpl: tpl, static: static, hash: hash}, nil
}

// Static is the theme's static asset tree, served under /static/.
func (r *TemplateRenderer) Static() fs.FS {
	return r.static
}

// Hash changes whenever any template source changes.
func (r *TemplateRenderer) Hash() string {
	return r.hash
}

func (r *TemplateRenderer) RenderPage(page Page) ([]byte, error) {
	return r.exec("layout", page)
}

func (r *TemplateRenderer) RenderListing(v ListingView) ([]byte, error) {
	return r.exec("listing", v)
}

func (r *TemplateRenderer) RenderPost(v PostView) ([]byte, error) {
	return r.exec("post", v)
}

func (r *TemplateRenderer) RenderNotFound(v NotFoundView) ([]byte, error) {
	return r.exec("notfound", v)
}

func (r *TemplateRenderer) exec(name string, data any) ([]byte, error) {
	t := r.tpl.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func CheckThemeTemplates(root fs.FS) error {
	for _, name := range requiredTemplates {
		if _, err := fs.Stat(root, "templates/"+name); err != nil {
			return fmt.Errorf("missing template: %s", name)
		}
	}
	return nil
}

func hashTemplates(root fs.FS) (string, error) {
	names, err := fs.Glob(root, "templates/*.tmpl")
	if err != nil {
		return "", err
	}
	sort.Strings(names)
	h := sha256.New()
	for _, name := range names {
		b, err := fs.ReadFile(root, name)
		if err != nil {
			return "", err
		}
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
