package layout

import (
	"errors"
	"fmt"
	"time"

	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/doc"
	"github.com/docfirma/docfirma/internal/ledger"
)

// ErrEntryTooLarge guards the pathological geometry where a single signer
// entry cannot fit even a fresh page. Failing beats looping forever.
var ErrEntryTooLarge = errors.New("signer entry too large for page geometry")

const (
	fontRegular = "Helvetica"
	fontBold    = "Helvetica-Bold"

	marginLeft   = 50.0
	marginRight  = 50.0
	marginTop    = 60.0
	marginBottom = 50.0

	lineHeight = 14.0
	sectionGap = 12.0
	ruleHeight = 0.8

	titleSize = 16.0
	bodySize  = 9.0

	// One signer entry: name, CPF, timestamp, method, device, hash.
	entryLineCount = 6
	entryGap       = 8.0
	entryHeight    = entryLineCount*lineHeight + entryGap

	boxPad        = 10.0
	authBoxHeight = 3*lineHeight + 2*boxPad

	// Space the Authenticity section needs: rule, gap, title, box.
	footerReserve = ruleHeight + 2*sectionGap + lineHeight + authBoxHeight

	// Bytes of the whole-document digest shown in grouped display form.
	displayDigestBytes = 20

	// Characters shown on each side of an abbreviated signer digest.
	abbrevEdge = 8

	authMethodLabel = "Autenticação: verificação de CPF vinculada ao dispositivo"
)

var (
	ruleFill    = doc.RGB{R: 0.55, G: 0.55, B: 0.55}
	boxFill     = doc.RGB{R: 0.94, G: 0.94, B: 0.94}
	boxEdgeFill = doc.RGB{R: 0.35, G: 0.35, B: 0.35}
)

// cursor tracks the vertical write position on the protocol page currently
// being filled. Starting a new page reassigns the page handle, so every
// subsequent draw lands on the fresh page.
type cursor struct {
	b         doc.Builder
	geom      Geometry
	regular   doc.Font
	bold      doc.Font
	page      doc.PageRef
	pageCount int
	y         float64
	created   []doc.PageRef
}

func (c *cursor) newPage() error {
	ref, err := c.b.InsertPage(c.pageCount, c.geom.Width, c.geom.Height)
	if err != nil {
		return fmt.Errorf("failed to insert protocol page: %w", err)
	}
	c.page = ref
	c.pageCount++
	c.y = c.geom.Height - marginTop
	c.created = append(c.created, ref)
	return nil
}

func (c *cursor) line(f doc.Font, size float64, text string) error {
	if err := c.b.DrawText(c.page, marginLeft, c.y, f, size, text); err != nil {
		return err
	}
	c.y -= lineHeight
	return nil
}

func (c *cursor) rule() error {
	c.y -= sectionGap / 2
	w := c.geom.Width - marginLeft - marginRight
	if err := c.b.DrawRectangle(c.page, marginLeft, c.y, w, ruleHeight, ruleFill); err != nil {
		return err
	}
	c.y -= sectionGap
	return nil
}

// BuildProtocolPages lays the signature registry out on one or more pages
// inserted at the front of the document, and returns the created pages in
// order. The ledger is read-only input.
func BuildProtocolPages(b doc.Builder, led ledger.DocumentLedger, wholeDocDigest string, geom Geometry) ([]doc.PageRef, error) {
	// A ledger with no signatures never lays out an entry, so only a
	// non-empty ledger can hit the too-small-page case.
	usable := geom.Height - marginTop - marginBottom - footerReserve
	if len(led.Signatures) > 0 && entryHeight > usable {
		return nil, fmt.Errorf("%w: entry needs %.0fpt, page offers %.0fpt", ErrEntryTooLarge, entryHeight, usable)
	}

	regular, err := b.EmbedFont(fontRegular)
	if err != nil {
		return nil, fmt.Errorf("failed to embed font: %w", err)
	}
	bold, err := b.EmbedFont(fontBold)
	if err != nil {
		return nil, fmt.Errorf("failed to embed font: %w", err)
	}

	c := &cursor{b: b, geom: geom, regular: regular, bold: bold}
	if err := c.newPage(); err != nil {
		return nil, err
	}

	if err := c.line(bold, titleSize, "Protocolo de Assinaturas"); err != nil {
		return nil, err
	}
	c.y -= sectionGap / 2
	if err := c.rule(); err != nil {
		return nil, err
	}

	// Document info section.
	if err := c.line(c.regular, bodySize, "Documento: "+led.Source.FileName); err != nil {
		return nil, err
	}
	if err := c.line(c.regular, bodySize, fmt.Sprintf("Tamanho: %d bytes", led.Source.FileSize)); err != nil {
		return nil, err
	}
	if err := c.line(c.regular, bodySize, "Registro: "+led.DocumentID); err != nil {
		return nil, err
	}
	if err := c.line(c.regular, bodySize, "Criado em: "+localizeTimestamp(led.CreatedAt)); err != nil {
		return nil, err
	}
	if err := c.rule(); err != nil {
		return nil, err
	}

	if err := c.line(c.bold, bodySize+2, "Assinaturas"); err != nil {
		return nil, err
	}
	c.y -= sectionGap / 2

	if len(led.Signatures) == 0 {
		if err := c.line(c.regular, bodySize, "Nenhuma assinatura registrada."); err != nil {
			return nil, err
		}
	}
	for i, rec := range led.Signatures {
		// Never start an entry that would collide with the footer
		// reserve; continue the registry on a fresh page instead.
		if c.y-entryHeight < marginBottom+footerReserve {
			if err := c.newPage(); err != nil {
				return nil, err
			}
		}
		if err := c.signerEntry(i+1, rec); err != nil {
			return nil, err
		}
	}

	// The Authenticity section renders on whichever page the cursor
	// occupies; overflow onto a fresh page only if even the reserve is
	// exhausted (possible when the last entry exactly consumed it).
	if c.y-footerReserve < marginBottom {
		if err := c.newPage(); err != nil {
			return nil, err
		}
	}
	if err := c.authenticity(led, wholeDocDigest); err != nil {
		return nil, err
	}

	return c.created, nil
}

func (c *cursor) signerEntry(position int, rec ledger.SignerRecord) error {
	if err := c.line(c.bold, bodySize, fmt.Sprintf("%d. %s", position, rec.Name)); err != nil {
		return err
	}
	if err := c.line(c.regular, bodySize, "CPF: "+ledger.FormatTaxID(rec.TaxID)); err != nil {
		return err
	}
	if err := c.line(c.regular, bodySize, "Assinado em: "+localizeTimestamp(rec.SignedAt)); err != nil {
		return err
	}
	if err := c.line(c.regular, bodySize, authMethodLabel); err != nil {
		return err
	}
	if err := c.line(c.regular, bodySize, "Dispositivo: "+rec.DeviceToken); err != nil {
		return err
	}
	if err := c.line(c.regular, bodySize, "Hash: "+binding.Abbreviate(rec.Digest, abbrevEdge)); err != nil {
		return err
	}
	c.y -= entryGap
	return nil
}

func (c *cursor) authenticity(led ledger.DocumentLedger, wholeDocDigest string) error {
	if err := c.rule(); err != nil {
		return err
	}
	if err := c.line(c.bold, bodySize+2, "Autenticidade"); err != nil {
		return err
	}

	boxW := c.geom.Width - marginLeft - marginRight
	boxTop := c.y
	boxBottom := boxTop - authBoxHeight
	if err := c.b.DrawRectangle(c.page, marginLeft, boxBottom, boxW, authBoxHeight, boxFill); err != nil {
		return err
	}
	// Thin edge fills stand in for a stroked border.
	edges := []struct{ X, Y, W, H float64 }{
		{marginLeft, boxTop - ruleHeight, boxW, ruleHeight},
		{marginLeft, boxBottom, boxW, ruleHeight},
		{marginLeft, boxBottom, ruleHeight, authBoxHeight},
		{marginLeft + boxW - ruleHeight, boxBottom, ruleHeight, authBoxHeight},
	}
	for _, e := range edges {
		if err := c.b.DrawRectangle(c.page, e.X, e.Y, e.W, e.H, boxEdgeFill); err != nil {
			return err
		}
	}

	c.y = boxTop - boxPad - bodySize
	inner := marginLeft + boxPad
	lines := []string{
		fmt.Sprintf("Documento: %s (%d bytes)", led.Source.FileName, led.Source.FileSize),
		fmt.Sprintf("Assinaturas registradas: %d", len(led.Signatures)),
		"SHA-256: " + binding.TruncatedGroupHex(wholeDocDigest, displayDigestBytes),
	}
	for _, s := range lines {
		if err := c.b.DrawText(c.page, inner, c.y, c.regular, bodySize, s); err != nil {
			return err
		}
		c.y -= lineHeight
	}
	c.y = boxBottom - sectionGap
	return nil
}

// localizeTimestamp renders a ledger timestamp for human reading
// (dd/mm/yyyy, the registry's locale). Unparseable input passes through so
// a malformed record still renders something auditable.
func localizeTimestamp(ts string) string {
	t, err := time.Parse(ledger.TimeLayout, ts)
	if err != nil {
		return ts
	}
	return t.Format("02/01/2006 15:04:05") + " UTC"
}
