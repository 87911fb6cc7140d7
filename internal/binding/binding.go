// Package binding computes the hash commitment that ties a signer's
// identity fields and a timestamp to the exact bytes of a document.
//
// The commitment is a plain SHA-256 over a canonical payload; there is no
// secret key and no asymmetric signature. Its security property is
// tamper-evidence of the input tuple, not authentication of identity.
package binding

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeBinding returns the binding digest for one signing event as
// 64 lower-case hex characters.
//
// The canonical payload is the document bytes followed by the UTF-8
// encoding of "|NAME:<name>|CPF:<taxID>|DEVICE:<deviceToken>|TIME:<signedAt>|".
// The labeled, pipe-delimited fields prevent field-boundary collisions
// (a name ending in digits cannot bleed into the CPF that follows it).
// Field order is frozen: changing it would invalidate every digest ever
// issued. Callers pass name and taxID already normalized.
func ComputeBinding(docBytes []byte, name, taxID, deviceToken, signedAt string) string {
	h := sha256.New()
	h.Write(docBytes)
	h.Write([]byte("|NAME:" + name + "|CPF:" + taxID + "|DEVICE:" + deviceToken + "|TIME:" + signedAt + "|"))
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeDocumentDigest returns the SHA-256 of the document bytes alone,
// as 64 lower-case hex characters. This is the whole-document digest
// stamped on every page of a finalized artifact.
func ComputeDocumentDigest(docBytes []byte) string {
	sum := sha256.Sum256(docBytes)
	return hex.EncodeToString(sum[:])
}
