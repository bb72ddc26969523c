package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	for name, cfg := range map[string]*PipelineConfig{
		"default":     DefaultPipelineConfig(),
		"development": DevelopmentPipelineConfig(),
		"production":  ProductionPipelineConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestCorpusPaths(t *testing.T) {
	cfg := DefaultPipelineConfig()
	assert.Equal(t, filepath.Join("data", "cornell movie-dialogs corpus", "movie_lines.txt"), cfg.Corpus.LinesPath())
	assert.Equal(t, filepath.Join("data", "cornell movie-dialogs corpus", "movie_conversations.txt"), cfg.Corpus.ConversationsPath())
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"corpus": {"base_dir": "/srv/corpora", "corpus_name": "dialogs", "lines_file": "l.txt",
			"conversations_file": "c.txt", "encoding": "utf-8", "delimiter": " | "},
		"processing": {"min_count": 5}
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/corpora", cfg.Corpus.BaseDir)
	assert.Equal(t, " | ", cfg.Corpus.Delimiter)
	assert.Equal(t, 5, cfg.Processing.MinCount)
	assert.Equal(t, "file", cfg.Storage.Backend, "untouched sections keep defaults")
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: git
  git_repo: /tmp/repo
  commit_author: Tester
  commit_email: t@example.com
  formatted_file: f.txt
  normalized_file: n.txt
  vocabulary_file: v.json
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "git", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/repo", cfg.Storage.GitRepo)
	assert.Equal(t, 3, cfg.Processing.MinCount)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`x = 1`), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported config extension")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CAIA_CORPUS_BASE_DIR": "/data",
		"CAIA_MIN_COUNT":       "7",
		"CAIA_STORAGE_BACKEND": "git",
		"PORT":                 "9090",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "/data", cfg.Corpus.BaseDir)
	assert.Equal(t, 7, cfg.Processing.MinCount)
	assert.Equal(t, "git", cfg.Storage.Backend)
	assert.Equal(t, 9090, cfg.Server.Port)

	env["CAIA_MIN_COUNT"] = "many"
	assert.ErrorContains(t, cfg.ApplyEnv(lookup), "CAIA_MIN_COUNT")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Processing.MinCount = 0
	cfg.Storage.Backend = "s3"
	cfg.Corpus.Encoding = "ebcdic"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_count")
	assert.Contains(t, err.Error(), `storage.backend "s3"`)
	assert.Contains(t, err.Error(), `corpus.encoding "ebcdic"`)

	assert.Error(t, (&PipelineConfig{}).Validate())
}
