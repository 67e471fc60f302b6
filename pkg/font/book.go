package font

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
)

// DefaultFamily is used when a requested family is not available.
const DefaultFamily = "Go"

// MonoFamily is used for raw text.
const MonoFamily = "Go Mono"

// Book is a catalog of font metadata, indexed like the font list it was
// built from.
type Book struct {
	infos []Info
}

// NewBook catalogs fonts.
func NewBook(fonts []*Font) *Book {
	b := &Book{}
	for _, f := range fonts {
		b.infos = append(b.infos, f.Info())
	}
	return b
}

// Len returns the number of cataloged fonts.
func (b *Book) Len() int { return len(b.infos) }

// Info returns the metadata of font i.
func (b *Book) Info(i int) Info { return b.infos[i] }

// Families lists the distinct family names, sorted.
func (b *Book) Families() []string {
	seen := make(map[string]bool)
	var out []string
	for _, info := range b.infos {
		if !seen[info.Family] {
			seen[info.Family] = true
			out = append(out, info.Family)
		}
	}
	sort.Strings(out)
	return out
}

// Contains reports whether family is cataloged, ignoring case.
func (b *Book) Contains(family string) bool {
	for _, info := range b.infos {
		if strings.EqualFold(info.Family, family) {
			return true
		}
	}
	return false
}

// Select finds the font of family closest to variant. A font with the
// exact variant wins; otherwise boldness is matched before slant.
func (b *Book) Select(family string, variant Variant) (int, bool) {
	best, bestScore := -1, -1
	for i, info := range b.infos {
		if !strings.EqualFold(info.Family, family) {
			continue
		}
		score := 0
		if info.Variant.Bold == variant.Bold {
			score += 2
		}
		if info.Variant.Italic == variant.Italic {
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

var (
	embeddedOnce  sync.Once
	embeddedFonts []*Font
)

// Embedded returns the Go font family shipped with golang.org/x/image.
func Embedded() []*Font {
	embeddedOnce.Do(func() {
		for _, data := range [][]byte{
			goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF,
			gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF,
			gosmallcaps.TTF,
		} {
			f, err := Parse(data)
			if err != nil {
				panic(fmt.Sprintf("font: embedded font: %v", err))
			}
			embeddedFonts = append(embeddedFonts, f)
		}
	})
	return embeddedFonts
}
