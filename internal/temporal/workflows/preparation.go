package workflows

import (
	"time"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PreparationInput starts one corpus preparation run
type PreparationInput struct {
	RunID      string `json:"run_id"`
	CorpusName string `json:"corpus_name,omitempty"` // overrides the configured corpus directory
	MinCount   int    `json:"min_count,omitempty"`   // 0 keeps the configured threshold
}

// PrepareOutput is returned by PrepareCorpusActivity
type PrepareOutput struct {
	RunID             string `json:"run_id"`
	Records           int    `json:"records"`
	Conversations     int    `json:"conversations"`
	Pairs             int    `json:"pairs"`
	SkippedPairs      int    `json:"skipped_pairs"`
	FormattedArtifact string `json:"formatted_artifact"`
	FormattedRef      string `json:"formatted_ref"`
}

// VocabularyInput is passed to BuildVocabularyActivity
type VocabularyInput struct {
	RunID             string `json:"run_id"`
	FormattedArtifact string `json:"formatted_artifact"`
	MinCount          int    `json:"min_count,omitempty"`
}

// VocabularyOutput is returned by BuildVocabularyActivity
type VocabularyOutput struct {
	RunID              string  `json:"run_id"`
	NormalizedArtifact string  `json:"normalized_artifact,omitempty"`
	NormalizedRef      string  `json:"normalized_ref,omitempty"`
	KeptWords          int     `json:"kept_words"`
	TotalWords         int     `json:"total_words"`
	KeptRatio          float64 `json:"kept_ratio"`
	Words              int     `json:"words"`
	VocabularyArtifact string  `json:"vocabulary_artifact"`
	VocabularyRef      string  `json:"vocabulary_ref"`
}

// PreparationResult is the workflow result
type PreparationResult struct {
	RunID      string           `json:"run_id"`
	Prepare    PrepareOutput    `json:"prepare"`
	Vocabulary VocabularyOutput `json:"vocabulary"`
}

// Activity names for registration
const (
	PrepareCorpusActivityName   = "PrepareCorpusActivity"
	BuildVocabularyActivityName = "BuildVocabularyActivity"
)

// NonRetryableErrorTypes are the application error types corpus failures are reported as.
// Retrying cannot fix a malformed or inconsistent corpus.
var NonRetryableErrorTypes = []string{
	string(corpus.KindMalformedRecord),
	string(corpus.KindUnresolvedReference),
	string(corpus.KindEncodingError),
	string(corpus.KindUnencodablePair),
}

// CorpusPreparationWorkflow prepares the pair artifacts, then builds the vocabulary
func CorpusPreparationWorkflow(ctx workflow.Context, input PreparationInput) (PreparationResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.RunID == "" {
		input.RunID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}
	logger.Info("Starting corpus preparation", "run_id", input.RunID, "corpus", input.CorpusName)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			InitialInterval:        1 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        30 * time.Second,
			NonRetryableErrorTypes: NonRetryableErrorTypes,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	result := PreparationResult{RunID: input.RunID}

	if err := workflow.ExecuteActivity(ctx, PrepareCorpusActivityName, input).Get(ctx, &result.Prepare); err != nil {
		logger.Error("Corpus preparation failed", "run_id", input.RunID, "error", err)
		return result, err
	}
	logger.Info("Pairs extracted", "pairs", result.Prepare.Pairs, "artifact", result.Prepare.FormattedArtifact)

	vocabInput := VocabularyInput{
		RunID:             input.RunID,
		FormattedArtifact: result.Prepare.FormattedArtifact,
		MinCount:          input.MinCount,
	}
	if err := workflow.ExecuteActivity(ctx, BuildVocabularyActivityName, vocabInput).Get(ctx, &result.Vocabulary); err != nil {
		logger.Error("Vocabulary build failed", "run_id", input.RunID, "error", err)
		return result, err
	}

	logger.Info("Corpus preparation completed",
		"run_id", input.RunID,
		"kept_words", result.Vocabulary.KeptWords,
		"total_words", result.Vocabulary.TotalWords)
	return result, nil
}
