package activities

import (
	"context"

	"github.com/Caia-Tech/caia-corpus/internal/pipeline"
	"github.com/Caia-Tech/caia-corpus/internal/storage"
	"github.com/Caia-Tech/caia-corpus/internal/temporal/workflows"
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	config "github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// CorpusActivities runs the pipeline stage groups for the preparation workflow
type CorpusActivities struct {
	cfg     *config.PipelineConfig
	backend storage.Backend
	bus     *pipeline.EventBus
}

// NewCorpusActivities creates the activities over an artifact backend.
// bus may be nil.
func NewCorpusActivities(cfg *config.PipelineConfig, backend storage.Backend, bus *pipeline.EventBus) *CorpusActivities {
	return &CorpusActivities{cfg: cfg, backend: backend, bus: bus}
}

// PrepareCorpusActivity loads, assembles and extracts pairs, then stores the formatted artifact
func (a *CorpusActivities) PrepareCorpusActivity(ctx context.Context, input workflows.PreparationInput) (workflows.PrepareOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Preparing corpus", "run_id", input.RunID, "corpus", input.CorpusName)

	cfg := a.configFor(input.CorpusName, input.MinCount)
	runner := pipeline.NewRunner(cfg, a.backend, a.runnerOptions(input.RunID)...)

	activity.RecordHeartbeat(ctx, "prepare")
	result, _, err := runner.Prepare(ctx)
	if err != nil {
		return workflows.PrepareOutput{}, a.toApplicationError(ctx, err)
	}

	logger.Info("Corpus prepared", "pairs", result.Pairs.Emitted, "ref", result.FormattedRef)
	return workflows.PrepareOutput{
		RunID:             runner.RunID(),
		Records:           result.Records,
		Conversations:     result.Conversations,
		Pairs:             result.Pairs.Emitted,
		SkippedPairs:      result.Pairs.Skipped,
		FormattedArtifact: cfg.Storage.FormattedFile,
		FormattedRef:      result.FormattedRef,
	}, nil
}

// BuildVocabularyActivity reads the formatted artifact back, normalizes it and
// builds, trims and stores the vocabulary
func (a *CorpusActivities) BuildVocabularyActivity(ctx context.Context, input workflows.VocabularyInput) (workflows.VocabularyOutput, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Building vocabulary", "run_id", input.RunID, "artifact", input.FormattedArtifact)

	cfg := a.configFor("", input.MinCount)
	artifact := input.FormattedArtifact
	if artifact == "" {
		artifact = cfg.Storage.FormattedFile
	}

	pairs, err := pipeline.LoadPairs(ctx, a.backend, artifact)
	if err != nil {
		return workflows.VocabularyOutput{}, a.toApplicationError(ctx, err)
	}

	activity.RecordHeartbeat(ctx, "vocabulary")
	runner := pipeline.NewRunner(cfg, a.backend, a.runnerOptions(input.RunID)...)
	result, _, err := runner.BuildVocabulary(ctx, pairs)
	if err != nil {
		return workflows.VocabularyOutput{}, a.toApplicationError(ctx, err)
	}

	out := workflows.VocabularyOutput{
		RunID:              runner.RunID(),
		NormalizedRef:      result.NormalizedRef,
		KeptWords:          result.Trim.Kept,
		TotalWords:         result.Trim.Total,
		KeptRatio:          result.Trim.Ratio,
		Words:              result.Words,
		VocabularyArtifact: cfg.Storage.VocabularyFile,
		VocabularyRef:      result.VocabularyRef,
	}
	if cfg.Processing.WriteNormalized {
		out.NormalizedArtifact = cfg.Storage.NormalizedFile
	}
	logger.Info("Vocabulary built", "kept_words", out.KeptWords, "total_words", out.TotalWords)
	return out, nil
}

// configFor copies the configuration and applies per-run overrides
func (a *CorpusActivities) configFor(corpusName string, minCount int) *config.PipelineConfig {
	cfg := *a.cfg
	corpusCfg := *a.cfg.Corpus
	processing := *a.cfg.Processing
	if corpusName != "" {
		corpusCfg.CorpusName = corpusName
	}
	if minCount > 0 {
		processing.MinCount = minCount
	}
	cfg.Corpus = &corpusCfg
	cfg.Processing = &processing
	return &cfg
}

func (a *CorpusActivities) runnerOptions(runID string) []pipeline.RunnerOption {
	opts := []pipeline.RunnerOption{pipeline.WithRunID(runID)}
	if a.bus != nil {
		opts = append(opts, pipeline.WithEventBus(a.bus))
	}
	return opts
}

// toApplicationError reports corpus failures as non-retryable errors typed by kind.
// Other errors are returned unchanged and follow the retry policy.
func (a *CorpusActivities) toApplicationError(ctx context.Context, err error) error {
	info := activity.GetInfo(ctx)
	logger := logging.GetWorkflowLogger(info.WorkflowExecution.ID, info.ActivityType.Name)

	kind, ok := corpus.KindOf(err)
	if !ok {
		logger.Warn().Err(err).Msg("Activity failed, eligible for retry")
		return err
	}
	logger.Error().Err(err).Str("kind", string(kind)).Msg("Corpus error, not retrying")
	return temporal.NewNonRetryableApplicationError(err.Error(), string(kind), err)
}

// Names lists the registered activity names, used by the worker log line
func Names() []string {
	return []string{workflows.PrepareCorpusActivityName, workflows.BuildVocabularyActivityName}
}
