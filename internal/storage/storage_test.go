package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairsArtifact(name, data string) *Artifact {
	return &Artifact{
		Name:     name,
		Kind:     KindPairs,
		Data:     []byte(data),
		Metadata: map[string]string{"pairs": "1"},
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("formatted_movie_lines.txt"))
	for _, name := range []string{"", ".", "..", "a/b.txt", `a\b.txt`, "../escape.txt"} {
		assert.Error(t, ValidateName(name), "name %q", name)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	metrics := NewSimpleMetricsCollector()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "artifacts"), metrics)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "hi\thello\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "sha256:"))

	// Same content yields the same digest
	again, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "hi\thello\n"))
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	got, err := backend.GetArtifact(ctx, "pairs.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi\thello\n", string(got.Data))

	_, err = backend.StoreArtifact(ctx, pairsArtifact("b.txt", "x\ty\n"))
	require.NoError(t, err)

	infos, err := backend.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "b.txt", infos[0].Name)
	assert.Equal(t, "pairs.txt", infos[1].Name)
	assert.Equal(t, int64(len("hi\thello\n")), infos[1].Size)

	assert.NoError(t, backend.Health(ctx))

	summary := metrics.GetMetricsSummary()
	store := summary.ByBackend["file"]["store"]
	require.NotNil(t, store)
	assert.Equal(t, 3, store.Count)
	assert.Equal(t, 100.0, store.GetSuccessRate())
}

func TestFileBackendErrors(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = backend.GetArtifact(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = backend.StoreArtifact(ctx, pairsArtifact("../x.txt", "a\tb\n"))
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = backend.StoreArtifact(cancelled, pairsArtifact("c.txt", "a\tb\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGitBackendCommitsArtifacts(t *testing.T) {
	metrics := NewSimpleMetricsCollector()
	backend, err := NewGitBackend(filepath.Join(t.TempDir(), "repo"), "Caia Corpus", "corpus@caiatech.com", metrics)
	require.NoError(t, err)
	ctx := context.Background()

	// An empty repository is healthy
	require.NoError(t, backend.Health(ctx))

	first, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "hi\thello\n"))
	require.NoError(t, err)
	assert.Len(t, first, 40)

	unchanged, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "hi\thello\n"))
	require.NoError(t, err)
	assert.Equal(t, first, unchanged)

	second, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "hi\thello\nbye\tsee you\n"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := backend.GetArtifact(ctx, "pairs.txt")
	require.NoError(t, err)
	assert.Equal(t, "hi\thello\nbye\tsee you\n", string(got.Data))

	history, err := backend.ArtifactHistory(ctx, "pairs.txt")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].Hash)
	assert.Equal(t, first, history[1].Hash)
	assert.Contains(t, history[0].Message, "Store pairs artifact pairs.txt")
	assert.Contains(t, history[0].Message, "pairs: 1")

	infos, err := backend.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "pairs.txt", infos[0].Name)

	assert.NoError(t, backend.Health(ctx))
}

func TestGitBackendReopensRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")
	ctx := context.Background()

	backend, err := NewGitBackend(dir, "a", "a@example.com", nil)
	require.NoError(t, err)
	ref, err := backend.StoreArtifact(ctx, pairsArtifact("pairs.txt", "a\tb\n"))
	require.NoError(t, err)

	reopened, err := NewGitBackend(dir, "a", "a@example.com", nil)
	require.NoError(t, err)
	history, err := reopened.ArtifactHistory(ctx, "pairs.txt")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ref, history[0].Hash)
}

func TestNewBackend(t *testing.T) {
	cfg := pipeline.DefaultPipelineConfig().Storage
	cfg.OutputDir = t.TempDir()

	backend, err := NewBackend(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	cfg.Backend = "git"
	cfg.GitRepo = filepath.Join(t.TempDir(), "repo")
	backend, err = NewBackend(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &GitBackend{}, backend)

	cfg.Backend = "s3"
	_, err = NewBackend(cfg, nil)
	assert.Error(t, err)
}

func TestMetricsCollectorSummary(t *testing.T) {
	collector := NewSimpleMetricsCollector()
	collector.RecordMetric(StorageMetrics{OperationType: "store", Backend: "git", Duration: 10, Success: true, Bytes: 4})
	collector.RecordMetric(StorageMetrics{OperationType: "store", Backend: "git", Duration: 30, Success: false})

	summary := collector.GetMetricsSummary()
	assert.Equal(t, 2, summary.TotalOperations)
	stats := summary.ByBackend["git"]["store"]
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.MinDuration)
	assert.Equal(t, int64(30), stats.MaxDuration)
	assert.Equal(t, int64(20), stats.AvgDuration)
	assert.Equal(t, int64(4), stats.TotalBytes)
	assert.Equal(t, 50.0, stats.GetSuccessRate())

	collector.ClearMetrics()
	assert.Empty(t, collector.GetMetrics())
}
