package ingest

// Stage identifies a step in the ingestion pipeline.
type Stage string

// Pipeline stages, in order of occurrence. Committed, Rejected, and
// Failed are terminal.
const (
	StageReceived      Stage = "received"
	StageHashing       Stage = "hashing"
	StageDedupCheck    Stage = "dedup_check"
	StageProcessing    Stage = "processing"
	StageAutoTagging   Stage = "auto_tagging"
	StageTagResolution Stage = "tag_resolution"
	StagePersisting    Stage = "persisting"
	StageCommitted     Stage = "committed"
	StageRejected      Stage = "rejected"
	StageFailed        Stage = "failed"
)

// Terminal reports whether a stage ends the pipeline.
func (s Stage) Terminal() bool {
	return s == StageCommitted || s == StageRejected || s == StageFailed
}

// Event is one progress update from an ingestion run.
type Event struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message,omitempty"`

	// UploadID identifies the ingestion run the event belongs to.
	UploadID string `json:"upload_id,omitempty"`

	// PostID is set on committed events, and on rejected events when the
	// duplicate's existing post is known.
	PostID string `json:"post_id,omitempty"`

	// Code and Error are set on rejected and failed events.
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}
