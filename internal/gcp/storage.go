package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't
// already exist. Finalized artifacts are immutable, so a precondition
// failure means another invocation already produced the same artifact and
// is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}
