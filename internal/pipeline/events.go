package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of pipeline event
type EventType string

const (
	EventRunStarted     EventType = "run.started"
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventArtifactStored EventType = "artifact.stored"
	EventRunCompleted   EventType = "run.completed"
	EventRunFailed      EventType = "run.failed"
)

// Stage names
const (
	StageLoadRecords     = "load_records"
	StageAssemble        = "assemble_conversations"
	StageExtractPairs    = "extract_pairs"
	StageStoreFormatted  = "store_formatted"
	StageNormalize       = "normalize"
	StageStoreNormalized = "store_normalized"
	StageBuildVocabulary = "build_vocabulary"
	StageTrimVocabulary  = "trim_vocabulary"
	StageStoreVocabulary = "store_vocabulary"
)

// StageEvent reports progress of one pipeline run
type StageEvent struct {
	ID        string                 `json:"id"`
	RunID     string                 `json:"run_id"`
	Type      EventType              `json:"type"`
	Stage     string                 `json:"stage,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// NewStageEvent creates a new event for a run
func NewStageEvent(eventType EventType, runID, stage string) *StageEvent {
	return &StageEvent{
		ID:        GenerateEventID(),
		RunID:     runID,
		Type:      eventType,
		Stage:     stage,
		Timestamp: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
}

// WithMetadata sets a metadata key and returns the event
func (e *StageEvent) WithMetadata(key string, value interface{}) *StageEvent {
	e.Metadata[key] = value
	return e
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}
