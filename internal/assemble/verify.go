package assemble

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/ledger"
)

// ErrDigestMismatch reports that at least one ledger entry no longer
// matches a recomputed binding.
var ErrDigestMismatch = errors.New("ledger digest mismatch")

// Mismatch describes one signer record whose stored digest differs from
// the binding recomputed over the supplied document bytes.
type Mismatch struct {
	Index    int
	SignerID string
	Stored   string
	Computed string
}

// VerifyLedger recomputes every signer binding over docBytes and compares
// it against the stored digest. Entries are independent, so they are
// checked concurrently with a bounded group. A non-empty result comes back
// with ErrDigestMismatch; an empty result with nil error means the ledger
// still binds to these exact bytes.
func VerifyLedger(ctx context.Context, docBytes []byte, led ledger.DocumentLedger) ([]Mismatch, error) {
	results := make([]*Mismatch, len(led.Signatures))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, rec := range led.Signatures {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			computed := binding.ComputeBinding(docBytes, rec.Name, rec.TaxID, rec.DeviceToken, rec.SignedAt)
			if computed != rec.Digest {
				results[i] = &Mismatch{Index: i, SignerID: rec.ID, Stored: rec.Digest, Computed: computed}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	for _, m := range results {
		if m != nil {
			mismatches = append(mismatches, *m)
		}
	}
	if len(mismatches) > 0 {
		return mismatches, ErrDigestMismatch
	}
	return nil, nil
}
