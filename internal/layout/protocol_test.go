package layout

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/doc"
	"github.com/docfirma/docfirma/internal/ledger"
)

const testDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func testLedger(signerCount int) ledger.DocumentLedger {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	led := ledger.New(ledger.SourceMetadata{FileName: "contract.pdf", FileSize: 2048}, now)
	for i := 0; i < signerCount; i++ {
		led = led.Append(ledger.SignerRecord{
			ID:          ledger.NewSignerID(),
			Name:        fmt.Sprintf("SIGNATARIO %02d", i+1),
			TaxID:       "52998224725",
			DeviceToken: fmt.Sprintf("dev-%d", i+1),
			SignedAt:    ledger.FormatTime(now.Add(time.Duration(i) * time.Minute)),
			Digest:      testDigest,
		}, now)
	}
	return led
}

func pageText(p *doc.MemoryPage) string {
	var b strings.Builder
	for _, op := range p.Texts {
		b.WriteString(op.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestBuildProtocolPagesSinglePage(t *testing.T) {
	m := doc.NewMemory()
	m.AddPage(600, 800)

	refs, err := BuildProtocolPages(m, testLedger(1), testDigest, Geometry{A4Width, A4Height})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("protocol pages = %d, want 1", len(refs))
	}
	if pages := m.Pages(); len(pages) != 2 || pages[0].Ref != refs[0] {
		t.Fatalf("protocol page not inserted at front: %+v", pages)
	}

	text := pageText(m.Page(0))
	for _, want := range []string{
		"Protocolo de Assinaturas",
		"Documento: contract.pdf",
		"SIGNATARIO 01",
		"CPF: 529.982.247-25",
		"Assinado em: 15/01/2024 10:30:00 UTC",
		"Dispositivo: dev-1",
		"Hash: " + binding.Abbreviate(testDigest, 8),
		"Autenticidade",
		"SHA-256: " + binding.TruncatedGroupHex(testDigest, 20),
		"Assinaturas registradas: 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("protocol page missing %q\nrendered:\n%s", want, text)
		}
	}
}

func TestBuildProtocolPagesZeroSigners(t *testing.T) {
	m := doc.NewMemory()
	refs, err := BuildProtocolPages(m, testLedger(0), testDigest, Geometry{A4Width, A4Height})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("protocol pages = %d, want 1", len(refs))
	}
	text := pageText(m.Page(0))
	if !strings.Contains(text, "Nenhuma assinatura registrada.") {
		t.Fatalf("missing empty-registry line:\n%s", text)
	}
	if !strings.Contains(text, "Assinaturas registradas: 0") {
		t.Fatalf("authenticity box missing zero count:\n%s", text)
	}
}

func TestBuildProtocolPagesOverflowContinuesOnNewPage(t *testing.T) {
	m := doc.NewMemory()
	m.AddPage(A4Width, A4Height)

	const signerCount = 12
	refs, err := BuildProtocolPages(m, testLedger(signerCount), testDigest, Geometry{A4Width, A4Height})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(refs) < 2 {
		t.Fatalf("expected overflow onto a second protocol page, got %d page(s)", len(refs))
	}

	// Protocol pages must form a prefix of the final order, original last.
	pages := m.Pages()
	if len(pages) != len(refs)+1 {
		t.Fatalf("page count = %d, want %d", len(pages), len(refs)+1)
	}
	for i, ref := range refs {
		if pages[i].Ref != ref {
			t.Fatalf("protocol page %d out of place", i)
		}
	}

	// Every signer appears exactly once, in ledger order, and the
	// continuation really is drawn on the later pages: the first page must
	// not hold the whole registry.
	var all []string
	for i := range refs {
		for _, op := range m.Page(i).Texts {
			if strings.HasPrefix(op.Text, "SIGNATARIO ") {
				all = append(all, op.Text)
			}
		}
	}
	if len(all) != signerCount {
		t.Fatalf("registry lists %d signers, want %d: %v", len(all), signerCount, all)
	}
	for i, name := range all {
		spaced := strings.Fields(name)
		if spaced[len(spaced)-1] != fmt.Sprintf("%02d", i+1) {
			t.Fatalf("signer order broken at %d: %v", i, all)
		}
	}
	firstPage := 0
	for _, op := range m.Page(0).Texts {
		if strings.HasPrefix(op.Text, "SIGNATARIO ") {
			firstPage++
		}
	}
	if firstPage == signerCount {
		t.Fatal("overflow page created but registry still drawn on first page")
	}

	// Drawing on continuation pages must stay inside the page: no baseline
	// below the bottom margin.
	for i := range refs {
		for _, op := range m.Page(i).Texts {
			if op.Y < 0 {
				t.Fatalf("page %d draws below the page edge: %+v", i, op)
			}
		}
	}

	// Authenticity renders once, on the page the cursor ended on.
	authPages := 0
	for i := range refs {
		if strings.Contains(pageText(m.Page(i)), "Autenticidade") {
			authPages++
		}
	}
	if authPages != 1 {
		t.Fatalf("authenticity section on %d pages, want exactly 1", authPages)
	}
}

func TestBuildProtocolPagesEntryTooLarge(t *testing.T) {
	m := doc.NewMemory()
	_, err := BuildProtocolPages(m, testLedger(1), testDigest, Geometry{Width: 200, Height: 280})
	if !errors.Is(err, ErrEntryTooLarge) {
		t.Fatalf("want ErrEntryTooLarge, got %v", err)
	}
}

func TestBuildProtocolPagesEmptyLedgerOnSmallPage(t *testing.T) {
	m := doc.NewMemory()
	pages, err := BuildProtocolPages(m, testLedger(0), testDigest, Geometry{Width: 200, Height: 280})
	if err != nil {
		t.Fatalf("BuildProtocolPages: %v", err)
	}
	if len(pages) == 0 {
		t.Fatal("no protocol pages created")
	}
	if !strings.Contains(pageText(m.Page(0)), "Nenhuma assinatura registrada.") {
		t.Fatal("empty-registry line missing")
	}
}
