// Package assemble orchestrates one finalize pass: parse the document,
// digest it, synthesize the protocol registry pages, stamp every page and
// serialize the result.
package assemble

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/doc"
	"github.com/docfirma/docfirma/internal/layout"
	"github.com/docfirma/docfirma/internal/ledger"
)

// Assembler finalizes documents through an injected Opener, so the same
// orchestration serves real PDFs and in-memory documents.
type Assembler struct {
	opener doc.Opener
}

func New(opener doc.Opener) *Assembler {
	return &Assembler{opener: opener}
}

// NewPDF returns an assembler for real PDF buffers.
func NewPDF() *Assembler {
	return New(doc.PDFOpener{})
}

// Finalize produces the finalized artifact for docBytes: the protocol
// page(s) for led inserted at the front, followed by the original pages,
// every page stamped with the whole-document digest band.
//
// The ledger is read-only input; docBytes must be the exact bytes the
// session was signed over. Steps run strictly in order because the page
// count stamped on each page may only be read after insertion.
func (a *Assembler) Finalize(ctx context.Context, docBytes []byte, led ledger.DocumentLedger) ([]byte, error) {
	logCtx := slog.With("documentId", led.DocumentID, "signers", len(led.Signatures))

	b, err := a.opener.Open(docBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	wholeDocDigest := binding.ComputeDocumentDigest(docBytes)
	logCtx = logCtx.With("digest", binding.Abbreviate(wholeDocDigest, 8))

	geom := layout.DetectDominantSize(b.Pages())
	protocolPages, err := layout.BuildProtocolPages(b, led, wholeDocDigest, geom)
	if err != nil {
		return nil, fmt.Errorf("failed to build protocol pages: %w", err)
	}

	if err := layout.StampHeaders(b, wholeDocDigest); err != nil {
		return nil, fmt.Errorf("failed to stamp headers: %w", err)
	}

	out, err := b.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize finalized document: %w", err)
	}
	logCtx.Info("Document finalized.", "protocolPages", len(protocolPages), "totalPages", len(b.Pages()), "bytes", len(out))
	return out, nil
}
