package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWritesFile(t *testing.T) {
	saved := log.Logger
	savedLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedLevel)
	})

	path := filepath.Join(t.TempDir(), "logs", "corpus.log")
	closer, err := SetupLogger(&LogConfig{Level: "info", Format: "json", OutputFile: path})
	require.NoError(t, err)

	logger := GetPipelineLogger("run-1", "load_records")
	logger.Info().Int("records", 3).Msg("Records loaded")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-1"`)
	assert.Contains(t, string(data), `"stage":"load_records"`)
	assert.Contains(t, string(data), `"records":3`)
}

func TestSetupLoggerInvalidLevel(t *testing.T) {
	_, err := SetupLogger(&LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestLogConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultLogConfig().Validate())
	assert.Error(t, (&LogConfig{Level: "info", Format: "xml"}).Validate())
	assert.Error(t, (&LogConfig{Level: "nope", Format: "json"}).Validate())
}
