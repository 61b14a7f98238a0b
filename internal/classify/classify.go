// Package classify maps file extensions to content categories.
package classify

import (
	"path/filepath"
	"sort"
	"strings"

	"filesearch/internal/domain"
)

// Classifier is an immutable extension table.
type Classifier struct {
	byExt map[string]domain.Category
}

// New builds a classifier from per-category extension lists.
// Extensions are matched case-insensitively; a missing leading dot is added.
// When an extension appears in more than one list the first category wins
// in the order image, text, pdf.
func New(image, text, pdf []string) *Classifier {
	c := &Classifier{byExt: make(map[string]domain.Category)}
	c.add(domain.CategoryImage, image)
	c.add(domain.CategoryText, text)
	c.add(domain.CategoryPDF, pdf)
	return c
}

func (c *Classifier) add(cat domain.Category, exts []string) {
	for _, e := range exts {
		e = normalizeExt(e)
		if e == "" {
			continue
		}
		if _, ok := c.byExt[e]; !ok {
			c.byExt[e] = cat
		}
	}
}

// Classify returns the category for path, or CategoryUnsupported.
func (c *Classifier) Classify(path string) domain.Category {
	return c.byExt[strings.ToLower(filepath.Ext(path))]
}

// Extensions returns the sorted extensions belonging to the given categories.
// No categories means every known extension.
func (c *Classifier) Extensions(cats ...domain.Category) []string {
	want := make(map[domain.Category]bool, len(cats))
	for _, cat := range cats {
		want[cat] = true
	}
	out := make([]string, 0, len(c.byExt))
	for ext, cat := range c.byExt {
		if len(want) == 0 || want[cat] {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// All returns every known extension.
func (c *Classifier) All() []string { return c.Extensions() }

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" {
		return ""
	}
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// NormalizeExtensions lowercases and dot-prefixes a user supplied list.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		if n := normalizeExt(e); n != "" {
			out = append(out, n)
		}
	}
	return out
}
