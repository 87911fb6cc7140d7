package binding

import "strings"

// GroupHex upper-cases a digest and splits it into 2-character groups
// joined by dashes, e.g. "ab12cd" -> "AB-12-CD". A 64-character digest
// yields 32 groups. Input must have even length.
func GroupHex(digest string) string {
	upper := strings.ToUpper(digest)
	groups := make([]string, 0, len(upper)/2)
	for i := 0; i+2 <= len(upper); i += 2 {
		groups = append(groups, upper[i:i+2])
	}
	return strings.Join(groups, "-")
}

// TruncatedGroupHex applies GroupHex to only the first byteCount bytes
// (byteCount*2 hex characters) of the digest.
//
// The truncated form is a display commitment for printed verification; two
// different full digests can share the same truncated form. That loss of
// fidelity is acceptable only because the truncated form is never used for
// machine verification, only for human reading.
func TruncatedGroupHex(digest string, byteCount int) string {
	n := byteCount * 2
	if n > len(digest) {
		n = len(digest)
	}
	return GroupHex(digest[:n])
}

// Abbreviate shortens a digest to its first and last edgeLength characters
// joined by "...". Digests short enough to show whole are returned unchanged.
func Abbreviate(digest string, edgeLength int) string {
	if len(digest) <= edgeLength*2+3 {
		return digest
	}
	return digest[:edgeLength] + "..." + digest[len(digest)-edgeLength:]
}
