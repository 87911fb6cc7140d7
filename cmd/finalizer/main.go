package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/docfirma/docfirma/internal/services"
)

var (
	finalizerInstance *services.FinalizerFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes the GCS
	// object-finalized event here.
	functions.CloudEvent("FinalizeDocument", finalizeDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// finalizeDocument is the Cloud Function entry point.
func finalizeDocument(ctx context.Context, e cloudevents.Event) error {
	// One-time client initialization shared across invocations.
	once.Do(func() {
		finalizerInstance, initErr = services.NewFinalizer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return finalizerInstance.Process(ctx, gcsEvent)
}
