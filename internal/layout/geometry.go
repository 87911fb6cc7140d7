// Package layout renders the protocol registry pages and the per-page
// header band onto a document builder.
package layout

import "github.com/docfirma/docfirma/internal/doc"

// ISO A4 in points, the fallback for documents with no pages to measure.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Geometry is the page size synthesized pages are created with.
type Geometry struct {
	Width  float64
	Height float64
}

// DetectDominantSize picks the page size that occurs most often in the
// document, so synthesized pages visually match the bulk of the source.
// Sizes compare by exact equality. Ties break toward the size seen first,
// which keeps the result independent of map iteration order. Zero pages
// fall back to A4; a single page wins outright.
func DetectDominantSize(pages []doc.PageInfo) Geometry {
	if len(pages) == 0 {
		return Geometry{Width: A4Width, Height: A4Height}
	}

	counts := map[Geometry]int{}
	var order []Geometry
	for _, p := range pages {
		g := Geometry{Width: p.Width, Height: p.Height}
		if counts[g] == 0 {
			order = append(order, g)
		}
		counts[g]++
	}

	best := order[0]
	for _, g := range order[1:] {
		if counts[g] > counts[best] {
			best = g
		}
	}
	return best
}
