package layout

import (
	"fmt"

	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/doc"
)

const (
	bandHeight     = 22.0
	bandInset      = 6.0
	headerFontSize = 7.0
	headerPadRight = 18.0
)

var bandFill = doc.RGB{R: 0.88, G: 0.88, B: 0.88}

// StampHeaders overlays the running header band on every page: a filled
// strip near the top edge, the truncated whole-document digest centered,
// and the 1-based page position right-aligned. The digest text is
// identical on all pages of one pass; the centering x is still solved per
// page because page widths may differ.
func StampHeaders(b doc.Builder, wholeDocDigest string) error {
	pages := b.Pages()
	total := len(pages)

	font, err := b.EmbedFont(fontRegular)
	if err != nil {
		return fmt.Errorf("failed to embed header font: %w", err)
	}

	hashText := "HASH: " + binding.TruncatedGroupHex(wholeDocDigest, displayDigestBytes)
	for i, p := range pages {
		bandY := p.Height - bandInset - bandHeight
		if err := b.DrawRectangle(p.Ref, 0, bandY, p.Width, bandHeight, bandFill); err != nil {
			return fmt.Errorf("failed to draw header band on page %d: %w", i+1, err)
		}

		textY := bandY + (bandHeight-headerFontSize)/2
		hashW := b.TextWidth(font, headerFontSize, hashText)
		if err := b.DrawText(p.Ref, (p.Width-hashW)/2, textY, font, headerFontSize, hashText); err != nil {
			return fmt.Errorf("failed to draw header hash on page %d: %w", i+1, err)
		}

		pageText := fmt.Sprintf("Page %d of %d", i+1, total)
		pageW := b.TextWidth(font, headerFontSize, pageText)
		if err := b.DrawText(p.Ref, p.Width-headerPadRight-pageW, textY, font, headerFontSize, pageText); err != nil {
			return fmt.Errorf("failed to draw page counter on page %d: %w", i+1, err)
		}
	}
	return nil
}
