package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileBackend stores artifacts as plain files in one directory
type FileBackend struct {
	dir              string
	metricsCollector MetricsCollector
}

// NewFileBackend creates the directory if needed
func NewFileBackend(dir string, metrics MetricsCollector) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir, metricsCollector: metrics}, nil
}

// Dir returns the artifact directory
func (f *FileBackend) Dir() string {
	return f.dir
}

// StoreArtifact atomically replaces the artifact and returns its sha256 digest
func (f *FileBackend) StoreArtifact(ctx context.Context, artifact *Artifact) (string, error) {
	start := time.Now()
	digest, err := f.store(ctx, artifact)
	recordMetric(f.metricsCollector, "file", "store", artifact.Name, start, len(artifact.Data), err)
	return digest, err
}

func (f *FileBackend) store(ctx context.Context, artifact *Artifact) (string, error) {
	if err := ValidateName(artifact.Name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(f.dir, artifact.Name), artifact.Data); err != nil {
		return "", err
	}
	sum := sha256.Sum256(artifact.Data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

func (f *FileBackend) GetArtifact(ctx context.Context, name string) (*Artifact, error) {
	start := time.Now()
	artifact, err := readArtifact(f.dir, name)
	size := 0
	if artifact != nil {
		size = len(artifact.Data)
	}
	recordMetric(f.metricsCollector, "file", "get", name, start, size, err)
	return artifact, err
}

func (f *FileBackend) ListArtifacts(ctx context.Context) ([]ArtifactInfo, error) {
	start := time.Now()
	infos, err := listDir(f.dir)
	recordMetric(f.metricsCollector, "file", "list", "", start, 0, err)
	return infos, err
}

func (f *FileBackend) Health(ctx context.Context) error {
	start := time.Now()
	info, err := os.Stat(f.dir)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", f.dir)
	}
	recordMetric(f.metricsCollector, "file", "health", "", start, 0, err)
	return err
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path
func writeFileAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// ErrArtifactNotFound is returned when no artifact has the requested name
var ErrArtifactNotFound = errors.New("artifact not found")

func readArtifact(dir, name string) (*Artifact, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	return &Artifact{Name: name, Data: data}, nil
}

func listDir(dir string) ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	infos := make([]ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, ArtifactInfo{Name: entry.Name(), Size: info.Size(), ModifiedAt: info.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
