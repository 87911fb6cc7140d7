package models

import "time"

// SigningSession is the Firestore record for one document signing session.
// It tracks the session lifecycle and carries the ledger between the
// signing surface and the finalizer function.
type SigningSession struct {
	FileHash         string    `firestore:"fileHash,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	Status           string    `firestore:"status,omitempty"`
	ErrorDetails     string    `firestore:"errorDetails,omitempty"`
	SignerCount      int       `firestore:"signerCount,omitempty"`
	LedgerJSON       string    `firestore:"ledgerJson,omitempty"`
	ArtifactObject   string    `firestore:"artifactObject,omitempty"`
	ArtifactDigest   string    `firestore:"artifactDigest,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
	FinalizedAt      time.Time `firestore:"finalizedAt,omitempty"`
}

// Session lifecycle states.
const (
	StatusUploaded   = "UPLOADED"
	StatusSigning    = "SIGNING"
	StatusFinalizing = "FINALIZING"
	StatusFinalized  = "FINALIZED"
	StatusFailed     = "FAILED"
)
