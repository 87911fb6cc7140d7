// Package doc abstracts the mutable document a finalize pass draws on.
//
// Real artifacts go through the pdfcpu-backed builder; the layout and
// stamping code only ever sees this interface, so it is equally testable
// against the in-memory builder with no document-format library involved.
package doc

import "errors"

// ErrUnreadable marks a byte buffer that could not be parsed into a
// document. Fatal for the caller; a malformed buffer cannot self-heal.
var ErrUnreadable = errors.New("corrupted or unreadable document")

// Font is an opaque handle to a font embedded in one builder. Handles are
// not portable across builders.
type Font int

// PageRef is a stable handle to one page of a builder. It identifies the
// page across insertions; it is not a positional index.
type PageRef int

// PageInfo reports the size of one page, in final page order.
type PageInfo struct {
	Ref    PageRef
	Width  float64
	Height float64
}

// RGB is a fill color with components in [0,1].
type RGB struct {
	R, G, B float64
}

// Builder is the capability surface the finalize pass needs from a
// document: page insertion, drawing, font metrics and serialization.
// Coordinates follow the PDF convention: origin at the bottom-left of the
// page, y growing upward, units in points.
type Builder interface {
	// InsertPage creates a blank page of the given size at position `at`
	// in the final page order and returns its handle.
	InsertPage(at int, width, height float64) (PageRef, error)

	// Pages lists all pages in final order.
	Pages() []PageInfo

	// EmbedFont registers a font by PostScript name and returns its
	// handle. One builder may embed the same font once and reuse it.
	EmbedFont(name string) (Font, error)

	// TextWidth measures the rendered width of text in points.
	TextWidth(f Font, size float64, text string) float64

	// DrawText places a single line with its baseline start at (x, y).
	DrawText(p PageRef, x, y float64, f Font, size float64, text string) error

	// DrawRectangle fills the axis-aligned rectangle with lower-left
	// corner (x, y).
	DrawRectangle(p PageRef, x, y, w, h float64, fill RGB) error

	// Serialize renders the mutated document back to bytes.
	Serialize() ([]byte, error)
}

// Opener parses a raw byte buffer into a mutable Builder.
type Opener interface {
	Open(docBytes []byte) (Builder, error)
}
