package binding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestComputeBindingDeterministic(t *testing.T) {
	doc := []byte("%PDF-1.4 fake document body")
	a := ComputeBinding(doc, "JOAO DA SILVA", "52998224725", "dev-1", "2024-01-15T10:30:00.000Z")
	b := ComputeBinding(doc, "JOAO DA SILVA", "52998224725", "dev-1", "2024-01-15T10:30:00.000Z")
	if a != b {
		t.Fatalf("digest not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64", len(a))
	}
	if a != strings.ToLower(a) {
		t.Fatalf("digest not lower-case: %s", a)
	}
}

func TestComputeBindingPayloadLayout(t *testing.T) {
	doc := []byte("abc")
	got := ComputeBinding(doc, "ANA", "11122233344", "dev-9", "2024-06-01T00:00:00.000Z")

	payload := append([]byte("abc"), []byte("|NAME:ANA|CPF:11122233344|DEVICE:dev-9|TIME:2024-06-01T00:00:00.000Z|")...)
	sum := sha256.Sum256(payload)
	want := hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("payload layout drifted: got %s want %s", got, want)
	}
}

func TestComputeBindingSensitivity(t *testing.T) {
	doc := []byte("%PDF-1.4 fake document body")
	base := ComputeBinding(doc, "JOAO DA SILVA", "52998224725", "dev-1", "2024-01-15T10:30:00.000Z")

	flipped := make([]byte, len(doc))
	copy(flipped, doc)
	flipped[0] ^= 0x01

	variants := []string{
		ComputeBinding(flipped, "JOAO DA SILVA", "52998224725", "dev-1", "2024-01-15T10:30:00.000Z"),
		ComputeBinding(doc, "JOAO DA SILVB", "52998224725", "dev-1", "2024-01-15T10:30:00.000Z"),
		ComputeBinding(doc, "JOAO DA SILVA", "52998224726", "dev-1", "2024-01-15T10:30:00.000Z"),
		ComputeBinding(doc, "JOAO DA SILVA", "52998224725", "dev-2", "2024-01-15T10:30:00.000Z"),
		ComputeBinding(doc, "JOAO DA SILVA", "52998224725", "dev-1", "2024-01-15T10:30:00.001Z"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d did not change the digest", i)
		}
	}
}

// A name ending in digits must not collide with the same digits moved into
// the tax id field; the labeled delimiters guarantee distinct payloads.
func TestComputeBindingFieldBoundaries(t *testing.T) {
	doc := []byte("x")
	a := ComputeBinding(doc, "MARIA 123", "45678901234", "d", "t")
	b := ComputeBinding(doc, "MARIA", "12345678901", "234d", "t")
	if a == b {
		t.Fatal("field boundary collision")
	}
}

func TestComputeDocumentDigest(t *testing.T) {
	got := ComputeDocumentDigest([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}
