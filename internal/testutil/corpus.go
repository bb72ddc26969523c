// Package testutil writes small corpus fixtures for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/pipeline"
	"github.com/stretchr/testify/require"
)

// MovieLines is a four line excerpt in the raw record layout
var MovieLines = [][]string{
	{"L1", "u0", "m0", "BIANCA", "Can we make this quick?"},
	{"L2", "u2", "m0", "CAMERON", "Well, I thought we'd start with pronunciation."},
	{"L3", "u0", "m0", "BIANCA", "Not the hacking and gagging!"},
	{"L4", "u2", "m0", "CAMERON", "Okay... then how 'bout we try out some French cuisine."},
}

// MovieConversations references MovieLines. The second conversation has a
// single line and yields no pairs.
var MovieConversations = [][]string{
	{"u0", "u2", "m0", "['L1', 'L2', 'L3']"},
	{"u0", "u2", "m0", "['L4']"},
}

// Join renders rows in the raw corpus layout
func Join(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, corpus.Delimiter))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteCorpus writes the fixture corpus and returns a development config whose
// corpus and artifact locations live under a fresh temp dir
func WriteCorpus(t *testing.T) *pipeline.PipelineConfig {
	t.Helper()
	return WriteCorpusFiles(t, Join(MovieLines), Join(MovieConversations))
}

// WriteCorpusFiles is WriteCorpus with caller supplied file contents
func WriteCorpusFiles(t *testing.T, lines, conversations string) *pipeline.PipelineConfig {
	t.Helper()
	base := t.TempDir()

	cfg := pipeline.DevelopmentPipelineConfig()
	cfg.Corpus.BaseDir = base
	cfg.Storage.OutputDir = filepath.Join(base, "artifacts")
	cfg.Storage.GitRepo = filepath.Join(base, "corpus-repo")

	require.NoError(t, os.MkdirAll(cfg.Corpus.CorpusDir(), 0755))
	require.NoError(t, os.WriteFile(cfg.Corpus.LinesPath(), []byte(lines), 0644))
	require.NoError(t, os.WriteFile(cfg.Corpus.ConversationsPath(), []byte(conversations), 0644))
	return cfg
}
