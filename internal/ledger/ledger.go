// Package ledger holds the append-only record of signing events for one
// document session. Ledger values are immutable: every mutation returns a
// new value, so accidental aliasing between a caller and the core is
// detectable instead of silently shared.
package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// TimeLayout is the fixed lexical encoding for every timestamp the ledger
// emits: UTC, millisecond precision, string-sortable. Digests are computed
// over these strings, so the layout is frozen.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// TaxIDLength is the digit count of a Brazilian CPF.
const TaxIDLength = 11

// SignerRecord is one signature event. Immutable once created.
type SignerRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TaxID       string `json:"taxId"`
	DeviceToken string `json:"deviceToken"`
	SignedAt    string `json:"signedAt"`
	Digest      string `json:"digest"`
}

// SourceMetadata describes the uploaded file a ledger belongs to.
type SourceMetadata struct {
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	LastModified string `json:"lastModified"`
}

// DocumentLedger is the per-document session record. Signatures are in
// signing order; that ordering is the sole source of truth for who signed
// first (timestamps can skew across devices).
type DocumentLedger struct {
	DocumentID string         `json:"documentId"`
	Source     SourceMetadata `json:"sourceMetadata"`
	Signatures []SignerRecord `json:"signatures"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
}

// New creates a ledger for a freshly uploaded document.
func New(source SourceMetadata, now time.Time) DocumentLedger {
	ts := FormatTime(now)
	return DocumentLedger{
		DocumentID: uuid.NewString(),
		Source:     source,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// Append returns a new ledger with rec added at the end. The receiver is
// left untouched; the signatures slice is copied, never shared.
func (l DocumentLedger) Append(rec SignerRecord, now time.Time) DocumentLedger {
	out := l
	out.Signatures = make([]SignerRecord, len(l.Signatures)+1)
	copy(out.Signatures, l.Signatures)
	out.Signatures[len(l.Signatures)] = rec
	out.UpdatedAt = FormatTime(now)
	return out
}

// NewSignerID mints an opaque unique token for a signer record.
func NewSignerID() string {
	return uuid.NewString()
}

// FormatTime renders t in the ledger's fixed UTC millisecond layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NormalizeName trims, collapses internal whitespace runs to a single
// space, and upper-cases. The result is what gets bound into the digest.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// NormalizeTaxID strips everything but digits (formatted CPFs arrive as
// "529.982.247-25") and enforces the fixed length.
func NormalizeTaxID(taxID string) (string, error) {
	var b strings.Builder
	for _, r := range taxID {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != TaxIDLength {
		return "", fmt.Errorf("tax id must have %d digits, got %d", TaxIDLength, len(digits))
	}
	return digits, nil
}

// FormatTaxID renders an 11-digit tax id in CPF display form
// "000.000.000-00". Non-conforming input is returned unchanged.
func FormatTaxID(taxID string) string {
	if len(taxID) != TaxIDLength {
		return taxID
	}
	return taxID[0:3] + "." + taxID[3:6] + "." + taxID[6:9] + "-" + taxID[9:11]
}

// Marshal encodes the ledger in its interchange JSON shape.
func Marshal(l DocumentLedger) ([]byte, error) {
	return json.Marshal(l)
}

// Unmarshal decodes a ledger from its interchange JSON shape.
func Unmarshal(data []byte) (DocumentLedger, error) {
	var l DocumentLedger
	if err := json.Unmarshal(data, &l); err != nil {
		return DocumentLedger{}, fmt.Errorf("failed to decode ledger: %w", err)
	}
	return l, nil
}
