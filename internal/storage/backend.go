package storage

import (
	"fmt"

	"github.com/Caia-Tech/caia-corpus/pkg/pipeline"
)

// NewBackend builds the backend selected in the storage configuration
func NewBackend(cfg *pipeline.StorageConfig, metrics MetricsCollector) (Backend, error) {
	switch cfg.Backend {
	case "file":
		return NewFileBackend(cfg.OutputDir, metrics)
	case "git":
		return NewGitBackend(cfg.GitRepo, cfg.CommitAuthor, cfg.CommitEmail, metrics)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
