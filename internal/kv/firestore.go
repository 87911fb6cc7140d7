package kv

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// Firestore is a Store backed by one Firestore collection, one document
// per key. Used by deployed functions that share session state.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection}
}

type kvDoc struct {
	Value []byte `firestore:"value"`
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	snap, err := f.client.Collection(f.collection).Doc(key).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	var d kvDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, false, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	return d.Value, true, nil
}

func (f *Firestore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := f.client.Collection(f.collection).Doc(key).Set(ctx, kvDoc{Value: value}); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	if _, err := f.client.Collection(f.collection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
