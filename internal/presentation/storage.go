package presentation

import (
	"context"

	"github.com/Caia-Tech/caia-corpus/internal/storage"
)

// ArtifactStore is the read side of an artifact backend
type ArtifactStore interface {
	GetArtifact(ctx context.Context, name string) (*storage.Artifact, error)
	ListArtifacts(ctx context.Context) ([]storage.ArtifactInfo, error)
	Health(ctx context.Context) error
}
