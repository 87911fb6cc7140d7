package doc

import (
	"errors"
	"testing"
)

func TestMemoryInsertPageOrder(t *testing.T) {
	m := NewMemory()
	m.AddPage(600, 800)
	m.AddPage(612, 792)

	front, err := m.InsertPage(0, 595.28, 841.89)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	pages := m.Pages()
	if len(pages) != 3 {
		t.Fatalf("page count = %d, want 3", len(pages))
	}
	if pages[0].Ref != front || pages[0].Width != 595.28 {
		t.Fatalf("inserted page not at front: %+v", pages[0])
	}
	if pages[1].Width != 600 || pages[2].Width != 612 {
		t.Fatalf("original order disturbed: %+v", pages)
	}

	if _, err := m.InsertPage(7, 1, 1); err == nil {
		t.Fatal("out-of-range insert must fail")
	}
}

func TestMemoryDrawAndRefStability(t *testing.T) {
	m := NewMemory()
	p1 := m.AddPage(600, 800)
	f, err := m.EmbedFont("Helvetica")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	// Inserting in front must not redirect draws aimed at p1.
	if _, err := m.InsertPage(0, 600, 800); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.DrawText(p1, 50, 700, f, 10, "hello"); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := m.DrawRectangle(p1, 0, 0, 600, 20, RGB{R: 1}); err != nil {
		t.Fatalf("rect: %v", err)
	}

	if n := len(m.Page(0).Texts); n != 0 {
		t.Fatalf("front page has %d texts, want 0", n)
	}
	got := m.Page(1)
	if len(got.Texts) != 1 || got.Texts[0].Text != "hello" || got.Texts[0].Font != "Helvetica" {
		t.Fatalf("text op mismatch: %+v", got.Texts)
	}
	if len(got.Rects) != 1 {
		t.Fatalf("rect op missing")
	}

	if err := m.DrawText(PageRef(99), 0, 0, f, 10, "x"); err == nil {
		t.Fatal("unknown page ref must fail")
	}
}

func TestMemoryEmbedFontDedup(t *testing.T) {
	m := NewMemory()
	a, _ := m.EmbedFont("Helvetica")
	b, _ := m.EmbedFont("Helvetica-Bold")
	c, _ := m.EmbedFont("Helvetica")
	if a == b {
		t.Fatal("distinct fonts share a handle")
	}
	if a != c {
		t.Fatal("re-embedding must return the same handle")
	}
}

func TestMemorySerializeRoundTrip(t *testing.T) {
	m := NewMemory()
	p := m.AddPage(600, 800)
	f, _ := m.EmbedFont("Helvetica")
	if err := m.DrawText(p, 10, 20, f, 9, "ola"); err != nil {
		t.Fatalf("draw: %v", err)
	}

	data, err := m.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	b, err := MemoryOpener{}.Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	back := b.(*Memory)
	if len(back.Pages()) != 1 || back.Page(0).Texts[0].Text != "ola" {
		t.Fatalf("round trip mismatch: %+v", back.Page(0))
	}
}

func TestMemoryOpenerRejectsGarbage(t *testing.T) {
	_, err := MemoryOpener{}.Open([]byte("not a document"))
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("want ErrUnreadable, got %v", err)
	}
	if _, err := (MemoryOpener{}).Open([]byte(`{"format":"other/9","pages":[]}`)); err == nil {
		t.Fatal("foreign format must be rejected")
	}
}
