package models

// These structs define the JSON payloads exchanged between the downstream
// workflow and the finalizer function.

// FinalizerRequest asks for one session to be finalized on demand
// (the GCS-event path carries the same information in the event).
type FinalizerRequest struct {
	SessionID   string `json:"sessionId"`
	GCSUri      string `json:"gcsUri"`
	ExecutionID string `json:"executionId"`
}

// FinalizerResponse reports where the finalized artifact landed.
type FinalizerResponse struct {
	Status         string `json:"status"`
	ArtifactGCSUri string `json:"artifactGcsUri"`
	ArtifactDigest string `json:"artifactDigest"`
}

// WorkflowTrigger is the argument passed to the post-finalize workflow
// (notification fan-out, archival).
type WorkflowTrigger struct {
	SessionID      string `json:"sessionId"`
	ArtifactObject string `json:"artifactObject"`
	SignerCount    int    `json:"signerCount"`
}
