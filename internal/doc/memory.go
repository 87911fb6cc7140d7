package doc

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// memFormat tags the serialized shape of an in-memory document so Open can
// reject buffers that were never produced by this builder.
const memFormat = "memdoc/1"

// TextOp is one recorded text drawing operation.
type TextOp struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Font string  `json:"font"`
	Size float64 `json:"size"`
	Text string  `json:"text"`
}

// RectOp is one recorded rectangle fill operation.
type RectOp struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Fill RGB     `json:"fill"`
}

// MemoryPage is one page of an in-memory document with every drawing
// operation recorded in call order.
type MemoryPage struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Texts  []TextOp `json:"texts"`
	Rects  []RectOp `json:"rects"`

	ref PageRef
}

type memoryDoc struct {
	Format string        `json:"format"`
	Pages  []*MemoryPage `json:"pages"`
}

// Memory is the in-memory Builder. It records drawing operations instead
// of rendering them, which makes layout decisions directly inspectable.
type Memory struct {
	pages   []*MemoryPage
	byRef   map[PageRef]*MemoryPage
	fonts   []string
	nextRef PageRef
}

// NewMemory returns an empty in-memory document.
func NewMemory() *Memory {
	return &Memory{byRef: map[PageRef]*MemoryPage{}}
}

// AddPage appends a blank page; a convenience for building test fixtures.
func (m *Memory) AddPage(width, height float64) PageRef {
	ref, _ := m.InsertPage(len(m.pages), width, height)
	return ref
}

// Page returns the page at final position i for inspection.
func (m *Memory) Page(i int) *MemoryPage {
	return m.pages[i]
}

func (m *Memory) InsertPage(at int, width, height float64) (PageRef, error) {
	if at < 0 || at > len(m.pages) {
		return 0, fmt.Errorf("insert position %d out of range [0,%d]", at, len(m.pages))
	}
	p := &MemoryPage{Width: width, Height: height, ref: m.nextRef}
	m.nextRef++
	m.byRef[p.ref] = p
	m.pages = append(m.pages, nil)
	copy(m.pages[at+1:], m.pages[at:])
	m.pages[at] = p
	return p.ref, nil
}

func (m *Memory) Pages() []PageInfo {
	infos := make([]PageInfo, len(m.pages))
	for i, p := range m.pages {
		infos[i] = PageInfo{Ref: p.ref, Width: p.Width, Height: p.Height}
	}
	return infos
}

func (m *Memory) EmbedFont(name string) (Font, error) {
	for i, n := range m.fonts {
		if n == name {
			return Font(i), nil
		}
	}
	m.fonts = append(m.fonts, name)
	return Font(len(m.fonts) - 1), nil
}

// TextWidth uses a flat per-rune advance. Crude next to real font metrics
// but deterministic, which is all the layout tests need.
func (m *Memory) TextWidth(f Font, size float64, text string) float64 {
	return 0.5 * size * float64(utf8.RuneCountInString(text))
}

func (m *Memory) DrawText(p PageRef, x, y float64, f Font, size float64, text string) error {
	page, ok := m.byRef[p]
	if !ok {
		return fmt.Errorf("unknown page ref %d", p)
	}
	if int(f) < 0 || int(f) >= len(m.fonts) {
		return fmt.Errorf("unknown font handle %d", f)
	}
	page.Texts = append(page.Texts, TextOp{X: x, Y: y, Font: m.fonts[f], Size: size, Text: text})
	return nil
}

func (m *Memory) DrawRectangle(p PageRef, x, y, w, h float64, fill RGB) error {
	page, ok := m.byRef[p]
	if !ok {
		return fmt.Errorf("unknown page ref %d", p)
	}
	page.Rects = append(page.Rects, RectOp{X: x, Y: y, W: w, H: h, Fill: fill})
	return nil
}

func (m *Memory) Serialize() ([]byte, error) {
	return json.Marshal(memoryDoc{Format: memFormat, Pages: m.pages})
}

// MemoryOpener parses buffers produced by Memory.Serialize.
type MemoryOpener struct{}

func (MemoryOpener) Open(docBytes []byte) (Builder, error) {
	var d memoryDoc
	if err := json.Unmarshal(docBytes, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if d.Format != memFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrUnreadable, d.Format)
	}
	m := NewMemory()
	for _, p := range d.Pages {
		ref, _ := m.InsertPage(len(m.pages), p.Width, p.Height)
		page := m.byRef[ref]
		page.Texts = append(page.Texts, p.Texts...)
		page.Rects = append(page.Rects, p.Rects...)
	}
	return m, nil
}
