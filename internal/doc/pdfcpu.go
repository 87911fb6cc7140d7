package doc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdffont "github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDF is the pdfcpu-backed Builder. It keeps the source bytes untouched
// and records drawing operations; Serialize renders synthesized pages from
// a pdfcpu create description, merges them in front of the source and
// stamps the source pages with per-page overlays.
//
// Pages inserted through this builder must sit before every source page
// (the finalize pass only ever prepends protocol pages); insertion behind
// a source page is rejected.
type PDF struct {
	source  []byte
	pages   []*pdfPage
	fonts   []string
	nextRef PageRef
}

type pdfPage struct {
	ref       PageRef
	w, h      float64
	synthetic bool
	texts     []TextOp
	rects     []RectOp
}

// PDFOpener parses PDF buffers with relaxed validation, matching how the
// rest of the ingestion pipeline treats third-party documents.
type PDFOpener struct{}

func (PDFOpener) Open(docBytes []byte) (Builder, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(docBytes), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	b := &PDF{source: docBytes}
	for _, d := range dims {
		b.pages = append(b.pages, &pdfPage{ref: b.nextRef, w: d.Width, h: d.Height})
		b.nextRef++
	}
	return b, nil
}

func (b *PDF) InsertPage(at int, width, height float64) (PageRef, error) {
	if at < 0 || at > len(b.pages) {
		return 0, fmt.Errorf("insert position %d out of range [0,%d]", at, len(b.pages))
	}
	for _, p := range b.pages[:at] {
		if !p.synthetic {
			return 0, fmt.Errorf("insert position %d is behind a source page", at)
		}
	}
	p := &pdfPage{ref: b.nextRef, w: width, h: height, synthetic: true}
	b.nextRef++
	b.pages = append(b.pages, nil)
	copy(b.pages[at+1:], b.pages[at:])
	b.pages[at] = p
	return p.ref, nil
}

func (b *PDF) Pages() []PageInfo {
	infos := make([]PageInfo, len(b.pages))
	for i, p := range b.pages {
		infos[i] = PageInfo{Ref: p.ref, Width: p.w, Height: p.h}
	}
	return infos
}

// EmbedFont accepts the standard core font names (Helvetica,
// Helvetica-Bold, ...); pdfcpu ships their metrics, nothing to load.
func (b *PDF) EmbedFont(name string) (Font, error) {
	if !pdffont.IsCoreFont(name) {
		return 0, fmt.Errorf("font %q is not a core font", name)
	}
	for i, n := range b.fonts {
		if n == name {
			return Font(i), nil
		}
	}
	b.fonts = append(b.fonts, name)
	return Font(len(b.fonts) - 1), nil
}

func (b *PDF) TextWidth(f Font, size float64, text string) float64 {
	if int(f) < 0 || int(f) >= len(b.fonts) {
		return 0
	}
	return pdffont.TextWidth(text, b.fonts[f], int(size))
}

func (b *PDF) page(ref PageRef) (*pdfPage, error) {
	for _, p := range b.pages {
		if p.ref == ref {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown page ref %d", ref)
}

func (b *PDF) DrawText(p PageRef, x, y float64, f Font, size float64, text string) error {
	page, err := b.page(p)
	if err != nil {
		return err
	}
	if int(f) < 0 || int(f) >= len(b.fonts) {
		return fmt.Errorf("unknown font handle %d", f)
	}
	page.texts = append(page.texts, TextOp{X: x, Y: y, Font: b.fonts[f], Size: size, Text: text})
	return nil
}

func (b *PDF) DrawRectangle(p PageRef, x, y, w, h float64, fill RGB) error {
	page, err := b.page(p)
	if err != nil {
		return err
	}
	page.rects = append(page.rects, RectOp{X: x, Y: y, W: w, H: h, Fill: fill})
	return nil
}

// Serialize materializes the final artifact:
//
//  1. synthesized pages become a standalone PDF generated from a pdfcpu
//     create description,
//  2. that PDF is merged in front of the untouched source,
//  3. drawing operations recorded against source pages are rendered into a
//     one-page-per-source-page overlay PDF and stamped on with per-page
//     PDF watermarks.
//
// All intermediate files live in a throwaway temp directory.
func (b *PDF) Serialize() ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "docfirma-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, b.source, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source: %w", err)
	}

	var synthetic, original []*pdfPage
	for _, p := range b.pages {
		if p.synthetic {
			synthetic = append(synthetic, p)
		} else {
			original = append(original, p)
		}
	}

	mergedPath := sourcePath
	if len(synthetic) > 0 {
		protocolPath := filepath.Join(tempDir, "protocol.pdf")
		if err := createPagesPDF(tempDir, "protocol", synthetic, protocolPath, conf); err != nil {
			return nil, err
		}
		mergedPath = filepath.Join(tempDir, "merged.pdf")
		if err := api.MergeCreateFile([]string{protocolPath, sourcePath}, mergedPath, false, conf); err != nil {
			return nil, fmt.Errorf("failed to merge protocol pages: %w", err)
		}
	}

	finalPath := mergedPath
	if pagesHaveOps(original) {
		overlayPath := filepath.Join(tempDir, "overlay.pdf")
		if err := createPagesPDF(tempDir, "overlay", original, overlayPath, conf); err != nil {
			return nil, err
		}

		stamps := map[int]*model.Watermark{}
		for i, p := range original {
			if len(p.texts) == 0 && len(p.rects) == 0 {
				continue
			}
			wm, err := api.PDFWatermark(fmt.Sprintf("%s:%d", overlayPath, i+1), "pos:c, scale:1 abs, rot:0", true, false, types.POINTS)
			if err != nil {
				return nil, fmt.Errorf("failed to build page overlay stamp: %w", err)
			}
			stamps[len(synthetic)+i+1] = wm
		}

		finalPath = filepath.Join(tempDir, "final.pdf")
		if err := api.AddWatermarksMapFile(mergedPath, finalPath, stamps, conf); err != nil {
			return nil, fmt.Errorf("failed to stamp source pages: %w", err)
		}
	}

	out, err := os.ReadFile(finalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered artifact: %w", err)
	}
	return out, nil
}

func pagesHaveOps(pages []*pdfPage) bool {
	for _, p := range pages {
		if len(p.texts) > 0 || len(p.rects) > 0 {
			return true
		}
	}
	return false
}

// create-description shapes for pdfcpu's generate-from-JSON API.

type createDoc struct {
	Pages map[string]createPage `json:"pages"`
}

type createPage struct {
	MediaBox []float64     `json:"mediaBox"`
	Content  createContent `json:"content"`
}

type createContent struct {
	Texts []createText `json:"text,omitempty"`
	Boxes []createBox  `json:"box,omitempty"`
}

type createText struct {
	Value   string     `json:"value"`
	Anchor  string     `json:"anchor"`
	Dx      float64    `json:"dx"`
	Dy      float64    `json:"dy"`
	Font    createFont `json:"font"`
	FillCol string     `json:"fillCol,omitempty"`
}

type createFont struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

type createBox struct {
	Rect    []float64 `json:"rect"` // x, y, w, h
	FillCol string    `json:"fillCol"`
	Border  bool      `json:"border"`
}

// createPagesPDF renders the recorded operations of pages into a fresh PDF
// at outPath, one output page per input page, same sizes. Rectangles are
// emitted before text so text always paints on top.
func createPagesPDF(tempDir, name string, pages []*pdfPage, outPath string, conf *model.Configuration) error {
	d := createDoc{Pages: map[string]createPage{}}
	for i, p := range pages {
		cp := createPage{MediaBox: []float64{0, 0, p.w, p.h}}
		for _, r := range p.rects {
			cp.Content.Boxes = append(cp.Content.Boxes, createBox{
				Rect:    []float64{r.X, r.Y, r.W, r.H},
				FillCol: hexColor(r.Fill),
			})
		}
		for _, t := range p.texts {
			cp.Content.Texts = append(cp.Content.Texts, createText{
				Value:  t.Text,
				Anchor: "bottomleft",
				Dx:     t.X,
				Dy:     t.Y,
				Font:   createFont{Name: t.Font, Size: t.Size},
			})
		}
		d.Pages[fmt.Sprintf("%d", i+1)] = cp
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode %s description: %w", name, err)
	}
	jsonPath := filepath.Join(tempDir, name+".json")
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s description: %w", name, err)
	}
	if err := api.CreateFile("", jsonPath, outPath, conf); err != nil {
		return fmt.Errorf("failed to render %s pages: %w", name, err)
	}
	return nil
}

func hexColor(c RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5))
}
