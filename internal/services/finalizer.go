package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/docfirma/docfirma/internal/assemble"
	"github.com/docfirma/docfirma/internal/binding"
	"github.com/docfirma/docfirma/internal/gcp"
	"github.com/docfirma/docfirma/internal/kv"
	"github.com/docfirma/docfirma/internal/ledger"
	"github.com/docfirma/docfirma/internal/models"
)

type FinalizerConfig struct {
	ProjectID        string
	ArtifactsBucket  string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

// FinalizerFunction turns a signed session into the finalized artifact:
// protocol pages in front, every page stamped with the document digest.
type FinalizerFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	assembler        *assemble.Assembler
	devices          kv.Store
	config           FinalizerConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewFinalizer(ctx context.Context) (*FinalizerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := FinalizerConfig{
		ProjectID:        projectID,
		ArtifactsBucket:  gcp.GetEnv("ARTIFACTS_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "signing-sessions"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "post-finalize-orchestrator"),
	}
	if config.ArtifactsBucket == "" {
		return nil, fmt.Errorf("ARTIFACTS_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &FinalizerFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		assembler:        assemble.NewPDF(),
		devices:          kv.NewFirestore(firestoreClient, config.CollectionName+"-devices"),
		config:           config,
	}
	slog.Info("Finalizer logic initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// Process is the GCS-event path: finalize the session that owns the
// uploaded object.
func (f *FinalizerFunction) Process(ctx context.Context, e GCSEvent) error {
	_, err := f.finalizeObject(ctx, e.Bucket, e.Name)
	return err
}

// ProcessRequest is the on-demand path: the workflow names the signed
// object explicitly and gets the artifact location back.
func (f *FinalizerFunction) ProcessRequest(ctx context.Context, req *models.FinalizerRequest) (*models.FinalizerResponse, error) {
	bucket, object, err := parseGCSUri(req.GCSUri)
	if err != nil {
		return nil, err
	}
	if req.SessionID != "" && !strings.HasPrefix(object, req.SessionID+"/") {
		return nil, fmt.Errorf("object %q does not belong to session %q", object, req.SessionID)
	}
	return f.finalizeObject(ctx, bucket, object)
}

// finalizeObject downloads the signed object, verifies its ledger and
// produces the finalized artifact. The object path is
// "<sessionId>/signed.pdf"; the session document carries the ledger
// accumulated while signing.
func (f *FinalizerFunction) finalizeObject(ctx context.Context, bucket, object string) (*models.FinalizerResponse, error) {
	logCtx := slog.With("gcsBucket", bucket, "gcsObject", object)
	logCtx.Info("Processing signed document.")

	sessionID, err := sessionIDFromObject(object)
	if err != nil {
		return nil, err
	}
	logCtx = logCtx.With("sessionId", sessionID)
	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(sessionID)

	tempDir, err := os.MkdirTemp("", "docfirma-finalizer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "signed.pdf")
	if err := f.streamGCSObject(ctx, bucket, object, sourcePath); err != nil {
		logCtx.Error("Failed to download signed document", "error", err)
		return nil, err
	}
	docBytes, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloaded document: %w", err)
	}

	fileHash := binding.ComputeDocumentDigest(docBytes)
	logCtx = logCtx.With("fileHash", binding.Abbreviate(fileHash, 8))

	existingID, isDup, err := f.isDuplicate(ctx, fileHash, sessionID)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to check for duplicate content", err)
	}
	if isDup {
		logCtx.Info("Identical content already finalized. Skipping.", "existingSessionId", existingID)
		return &models.FinalizerResponse{Status: models.StatusFinalized}, nil
	}

	session, led, err := f.loadSession(ctx, docRef)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to load signing session", err)
	}
	logCtx = logCtx.With("signers", len(led.Signatures))

	if session.Status == models.StatusFinalized {
		logCtx.Info("Session already finalized. Skipping.")
		return &models.FinalizerResponse{
			Status:         models.StatusFinalized,
			ArtifactGCSUri: fmt.Sprintf("gs://%s/%s", f.config.ArtifactsBucket, session.ArtifactObject),
			ArtifactDigest: session.ArtifactDigest,
		}, nil
	}

	// Devices register when their first signature lands; an unknown token
	// is suspicious but not fatal, the digest check below is authoritative.
	for _, rec := range led.Signatures {
		if _, known, err := f.devices.Get(ctx, rec.DeviceToken); err != nil {
			logCtx.Warn("Device registry lookup failed.", "deviceToken", rec.DeviceToken, "error", err)
		} else if !known {
			logCtx.Warn("Signature from unregistered device.", "deviceToken", rec.DeviceToken, "signerId", rec.ID)
		}
	}

	// Refuse to finalize a ledger that no longer binds to these bytes.
	if mismatches, err := assemble.VerifyLedger(ctx, docBytes, led); err != nil {
		if errors.Is(err, assemble.ErrDigestMismatch) {
			return nil, f.handleError(ctx, logCtx, docRef, fmt.Sprintf("%d ledger entries do not bind to the uploaded bytes", len(mismatches)), err)
		}
		return nil, f.handleError(ctx, logCtx, docRef, "ledger verification failed", err)
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusFinalizing},
		{Path: "fileHash", Value: fileHash},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to FINALIZING", err)
	}

	artifact, err := f.assembler.Finalize(ctx, docBytes, led)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to finalize document", err)
	}
	artifactDigest := binding.ComputeDocumentDigest(artifact)

	artifactObject := sessionID + "/finalized.pdf"
	ledgerObject := sessionID + "/ledger.json"
	ledgerCopy, err := ledger.Marshal(led)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to encode ledger snapshot", err)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return f.uploadBytes(gctx, artifact, artifactObject) })
	eg.Go(func() error { return f.uploadBytes(gctx, ledgerCopy, ledgerObject) })
	if err := eg.Wait(); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to upload finalized artifact", err)
	}

	updates = []firestore.Update{
		{Path: "status", Value: models.StatusFinalized},
		{Path: "artifactObject", Value: artifactObject},
		{Path: "artifactDigest", Value: artifactDigest},
		{Path: "signerCount", Value: len(led.Signatures)},
		{Path: "finalizedAt", Value: time.Now()},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to FINALIZED", err)
	}

	if err := f.triggerWorkflow(ctx, logCtx, sessionID, artifactObject, len(led.Signatures)); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}

	logCtx.Info("Session finalized.", "artifactObject", artifactObject, "artifactDigest", binding.Abbreviate(artifactDigest, 8))
	return &models.FinalizerResponse{
		Status:         models.StatusFinalized,
		ArtifactGCSUri: fmt.Sprintf("gs://%s/%s", f.config.ArtifactsBucket, artifactObject),
		ArtifactDigest: artifactDigest,
	}, nil
}

// isDuplicate reports whether another session already finalized content
// with this exact hash. The querying session itself is never its own
// duplicate, so re-delivered events still finalize their own session.
func (f *FinalizerFunction) isDuplicate(ctx context.Context, fileHash, sessionID string) (string, bool, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).
		Where("fileHash", "==", fileHash).
		Where("status", "==", models.StatusFinalized).
		Limit(2).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Ref.ID
	}
	id, ok := firstOtherSession(ids, sessionID)
	return id, ok, nil
}

// firstOtherSession picks the first candidate that is not the session
// doing the asking.
func firstOtherSession(candidates []string, self string) (string, bool) {
	for _, id := range candidates {
		if id != self {
			return id, true
		}
	}
	return "", false
}

// sessionIDFromObject extracts the owning session from an object path of
// the form "<sessionId>/...". Objects at the bucket root have no owner
// and are rejected outright.
func sessionIDFromObject(object string) (string, error) {
	sessionID, _, found := strings.Cut(object, "/")
	if !found || sessionID == "" {
		return "", fmt.Errorf("object %q has no session prefix", object)
	}
	return sessionID, nil
}

// parseGCSUri splits "gs://bucket/object" into bucket and object.
func parseGCSUri(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("uri %q is not a gs:// uri", uri)
	}
	bucket, object, found := strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", fmt.Errorf("uri %q has no bucket/object pair", uri)
	}
	return bucket, object, nil
}

func (f *FinalizerFunction) loadSession(ctx context.Context, docRef *firestore.DocumentRef) (models.SigningSession, ledger.DocumentLedger, error) {
	snap, err := docRef.Get(ctx)
	if err != nil {
		return models.SigningSession{}, ledger.DocumentLedger{}, fmt.Errorf("failed to read session document: %w", err)
	}
	var session models.SigningSession
	if err := snap.DataTo(&session); err != nil {
		return models.SigningSession{}, ledger.DocumentLedger{}, fmt.Errorf("failed to decode session document: %w", err)
	}
	led, err := ledger.Unmarshal([]byte(session.LedgerJSON))
	if err != nil {
		return models.SigningSession{}, ledger.DocumentLedger{}, err
	}
	return session, led, nil
}

func (f *FinalizerFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, sessionID, artifactObject string, signerCount int) error {
	logCtx.Info("Triggering post-finalize workflow.")
	payloadBytes, err := json.Marshal(models.WorkflowTrigger{
		SessionID:      sessionID,
		ArtifactObject: artifactObject,
		SignerCount:    signerCount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	_, err = f.executionsClient.CreateExecution(ctx, req)
	return err
}

func (f *FinalizerFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s", fullError)
}

func (f *FinalizerFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *FinalizerFunction) streamGCSObject(ctx context.Context, bucket, object, destPath string) error {
	gcsReader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

func (f *FinalizerFunction) uploadBytes(ctx context.Context, content []byte, destObject string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	bucket := f.storageClient.Bucket(f.config.ArtifactsBucket)
	for i := 0; i < maxRetries; i++ {
		writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
		err := gcp.SaveToGCSAtomically(writeCtx, bucket, destObject, content)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}
