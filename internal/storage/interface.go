package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Artifact kinds
const (
	KindPairs      = "pairs"
	KindVocabulary = "vocabulary"
)

// Artifact is one persisted pipeline output
type Artifact struct {
	Name     string            `json:"name"` // plain file name, no directories
	Kind     string            `json:"kind"`
	Data     []byte            `json:"-"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ArtifactInfo describes a stored artifact
type ArtifactInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Backend defines the interface for artifact storage implementations
type Backend interface {
	StoreArtifact(ctx context.Context, artifact *Artifact) (string, error)
	GetArtifact(ctx context.Context, name string) (*Artifact, error)
	ListArtifacts(ctx context.Context) ([]ArtifactInfo, error)
	Health(ctx context.Context) error
}

// StorageMetrics provides telemetry for storage operations
type StorageMetrics struct {
	OperationType string
	Duration      int64 // nanoseconds
	Success       bool
	Backend       string
	Artifact      string
	Bytes         int
	Error         error
}

// MetricsCollector receives storage operation metrics
type MetricsCollector interface {
	RecordMetric(metric StorageMetrics)
}

// ValidateName rejects names that would escape the artifact directory
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("artifact name %q must not contain path separators", name)
	}
	return nil
}

func recordMetric(collector MetricsCollector, backend, operation, artifact string, start time.Time, bytes int, err error) {
	if collector == nil {
		return
	}
	collector.RecordMetric(StorageMetrics{
		OperationType: operation,
		Duration:      time.Since(start).Nanoseconds(),
		Success:       err == nil,
		Backend:       backend,
		Artifact:      artifact,
		Bytes:         bytes,
		Error:         err,
	})
}
