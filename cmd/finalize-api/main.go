package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/docfirma/docfirma/internal/models"
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

	// Register the HTTP function. The orchestration workflow calls this
	// when it needs a session finalized on demand.
	functions.HTTP("HandleFinalizeDocument", handleFinalizeDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// handleFinalizeDocument is the HTTP entry point.
func handleFinalizeDocument(w http.ResponseWriter, r *http.Request) {
	// One-time client initialization shared across invocations.
	once.Do(func() {
		finalizerInstance, initErr = services.NewFinalizer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.FinalizerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		http.Error(w, "Bad Request: invalid JSON body", http.StatusBadRequest)
		return
	}

	res, err := finalizerInstance.ProcessRequest(r.Context(), &req)
	if err != nil {
		slog.Error("Failed to finalize document", "error", err, "gcsUri", req.GCSUri)
		http.Error(w, "Internal Server Error: failed to finalize document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
