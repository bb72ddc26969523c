package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	"github.com/Caia-Tech/caia-corpus/internal/testutil"
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func newActivities(t *testing.T, cfg *config.PipelineConfig) (*CorpusActivities, storage.Backend) {
	t.Helper()
	backend, err := storage.NewFileBackend(cfg.Storage.OutputDir, nil)
	require.NoError(t, err)
	return NewCorpusActivities(cfg, backend, nil), backend
}

func TestPrepareCorpusActivity(t *testing.T) {
	acts, backend := newActivities(t, testutil.WriteCorpus(t))

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	val, err := env.ExecuteActivity(acts.PrepareCorpusActivity, workflows.PreparationInput{RunID: "run-a"})
	require.NoError(t, err)

	var out workflows.PrepareOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "run-a", out.RunID)
	assert.Equal(t, 4, out.Records)
	assert.Equal(t, 2, out.Conversations)
	assert.Equal(t, 2, out.Pairs)
	assert.Equal(t, "formatted_movie_lines.txt", out.FormattedArtifact)

	pairs, err := pipeline.LoadPairs(context.Background(), backend, out.FormattedArtifact)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestBuildVocabularyActivity(t *testing.T) {
	cfg := testutil.WriteCorpus(t)
	acts, backend := newActivities(t, cfg)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.PrepareCorpusActivity, workflows.PreparationInput{RunID: "run-b"})
	require.NoError(t, err)

	val, err := env.ExecuteActivity(acts.BuildVocabularyActivity, workflows.VocabularyInput{
		RunID:             "run-b",
		FormattedArtifact: cfg.Storage.FormattedFile,
		MinCount:          2,
	})
	require.NoError(t, err)

	var out workflows.VocabularyOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, 9, out.KeptWords)
	assert.Equal(t, 20, out.TotalWords)
	assert.Equal(t, 12, out.Words)
	assert.Equal(t, cfg.Storage.NormalizedFile, out.NormalizedArtifact)

	v, err := pipeline.LoadVocabulary(context.Background(), backend, out.VocabularyArtifact)
	require.NoError(t, err)
	assert.Equal(t, 12, v.Len())

	// The configured threshold is untouched by the per-run override
	assert.Equal(t, 1, cfg.Processing.MinCount)
}

func TestPrepareCorpusActivityCorpusErrorIsNonRetryable(t *testing.T) {
	cfg := testutil.WriteCorpusFiles(t,
		testutil.Join(testutil.MovieLines),
		testutil.Join([][]string{{"u0", "u2", "m0", "['L1', 'L9']"}}),
	)
	acts, _ := newActivities(t, cfg)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.PrepareCorpusActivity, workflows.PreparationInput{RunID: "run-c"})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, string(corpus.KindUnresolvedReference), appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Contains(t, appErr.Error(), "L9")
}

func TestPrepareCorpusActivityMissingCorpusIsRetryable(t *testing.T) {
	cfg := testutil.WriteCorpus(t)
	acts, _ := newActivities(t, cfg)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	_, err := env.ExecuteActivity(acts.PrepareCorpusActivity, workflows.PreparationInput{CorpusName: "missing corpus"})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		assert.False(t, appErr.NonRetryable())
	}
}

func TestCorpusPreparationWorkflowEndToEnd(t *testing.T) {
	cfg := testutil.WriteCorpus(t)
	acts, backend := newActivities(t, cfg)

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	env.RegisterActivity(acts)
	env.RegisterWorkflow(workflows.CorpusPreparationWorkflow)

	env.ExecuteWorkflow(workflows.CorpusPreparationWorkflow, workflows.PreparationInput{RunID: "run-e2e", MinCount: 2})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.PreparationResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "run-e2e", result.RunID)
	assert.Equal(t, 2, result.Prepare.Pairs)
	assert.Equal(t, 9, result.Vocabulary.KeptWords)

	infos, err := backend.ListArtifacts(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 3)
}
