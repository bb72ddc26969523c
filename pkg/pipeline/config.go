package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	"gopkg.in/yaml.v3"
)

// PipelineConfig holds complete pipeline configuration
type PipelineConfig struct {
	Logging    *logging.LogConfig `json:"logging" yaml:"logging"`
	Corpus     *CorpusConfig      `json:"corpus" yaml:"corpus"`
	Processing *ProcessingConfig  `json:"processing" yaml:"processing"`
	Storage    *StorageConfig     `json:"storage" yaml:"storage"`
	Server     *ServerConfig      `json:"server" yaml:"server"`
}

// CorpusConfig locates and describes the raw corpus files
type CorpusConfig struct {
	BaseDir           string `json:"base_dir" yaml:"base_dir"`
	CorpusName        string `json:"corpus_name" yaml:"corpus_name"`
	LinesFile         string `json:"lines_file" yaml:"lines_file"`
	ConversationsFile string `json:"conversations_file" yaml:"conversations_file"`
	Encoding          string `json:"encoding" yaml:"encoding"`   // iso-8859-1, windows-1252, utf-8
	Delimiter         string `json:"delimiter" yaml:"delimiter"` // field separator
}

// ProcessingConfig holds normalization and vocabulary settings
type ProcessingConfig struct {
	MinCount        int    `json:"min_count" yaml:"min_count"` // trim threshold
	StripMarkup     bool   `json:"strip_markup" yaml:"strip_markup"`
	WriteNormalized bool   `json:"write_normalized" yaml:"write_normalized"`
	VocabularyName  string `json:"vocabulary_name" yaml:"vocabulary_name"`
}

// StorageConfig selects where artifacts go
type StorageConfig struct {
	Backend        string `json:"backend" yaml:"backend"`       // file, git
	OutputDir      string `json:"output_dir" yaml:"output_dir"` // file backend
	GitRepo        string `json:"git_repo" yaml:"git_repo"`
	CommitAuthor   string `json:"commit_author" yaml:"commit_author"`
	CommitEmail    string `json:"commit_email" yaml:"commit_email"`
	FormattedFile  string `json:"formatted_file" yaml:"formatted_file"`
	NormalizedFile string `json:"normalized_file" yaml:"normalized_file"`
	VocabularyFile string `json:"vocabulary_file" yaml:"vocabulary_file"`
}

// ServerConfig holds API, browser and workflow worker settings
type ServerConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         int    `json:"port" yaml:"port"`
	BrowsePort   int    `json:"browse_port" yaml:"browse_port"`
	TemporalHost string `json:"temporal_host" yaml:"temporal_host"`
	TaskQueue    string `json:"task_queue" yaml:"task_queue"`
}

// CorpusDir is the directory holding the raw corpus files
func (c *CorpusConfig) CorpusDir() string {
	return filepath.Join(c.BaseDir, c.CorpusName)
}

// LinesPath is the full path of the movie lines file
func (c *CorpusConfig) LinesPath() string {
	return filepath.Join(c.CorpusDir(), c.LinesFile)
}

// ConversationsPath is the full path of the conversations file
func (c *CorpusConfig) ConversationsPath() string {
	return filepath.Join(c.CorpusDir(), c.ConversationsFile)
}

// DefaultPipelineConfig returns a complete default configuration
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Logging: logging.DefaultLogConfig(),

		Corpus: &CorpusConfig{
			BaseDir:           "data",
			CorpusName:        "cornell movie-dialogs corpus",
			LinesFile:         "movie_lines.txt",
			ConversationsFile: "movie_conversations.txt",
			Encoding:          "iso-8859-1",
			Delimiter:         corpus.Delimiter,
		},

		Processing: &ProcessingConfig{
			MinCount:        3,
			StripMarkup:     false,
			WriteNormalized: true,
			VocabularyName:  "cornell movie-dialogs corpus",
		},

		Storage: &StorageConfig{
			Backend:        "file",
			OutputDir:      "data/artifacts",
			GitRepo:        "data/corpus-repo",
			CommitAuthor:   "Caia Corpus",
			CommitEmail:    "corpus@caiatech.com",
			FormattedFile:  "formatted_movie_lines.txt",
			NormalizedFile: "normalized_movie_lines.txt",
			VocabularyFile: "vocabulary.json",
		},

		Server: &ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			BrowsePort:   8081,
			TemporalHost: "localhost:7233",
			TaskQueue:    "caia-corpus",
		},
	}
}

// ProductionPipelineConfig returns production-ready configuration
func ProductionPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.OutputFile = "logs/caia-corpus.log"

	// versioned artifacts
	config.Storage.Backend = "git"

	return config
}

// DevelopmentPipelineConfig returns development configuration
func DevelopmentPipelineConfig() *PipelineConfig {
	config := DefaultPipelineConfig()

	config.Logging.Level = "debug"
	config.Logging.Format = "pretty"
	config.Logging.Console = true

	config.Processing.MinCount = 1

	return config
}

// LoadConfig layers a JSON or YAML file and CAIA_* environment variables over
// the defaults and validates the result. An empty path skips the file.
func LoadConfig(path string) (*PipelineConfig, error) {
	config := DefaultPipelineConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		case ".json":
			err = json.Unmarshal(data, config)
		default:
			err = fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from environment variables
func (c *PipelineConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CAIA_CORPUS_BASE_DIR":  &c.Corpus.BaseDir,
		"CAIA_CORPUS_NAME":      &c.Corpus.CorpusName,
		"CAIA_CORPUS_ENCODING":  &c.Corpus.Encoding,
		"CAIA_STORAGE_BACKEND":  &c.Storage.Backend,
		"CAIA_OUTPUT_DIR":       &c.Storage.OutputDir,
		"CAIA_REPO_PATH":        &c.Storage.GitRepo,
		"CAIA_LOG_LEVEL":        &c.Logging.Level,
		"CAIA_LOG_FORMAT":       &c.Logging.Format,
		"TEMPORAL_HOST":         &c.Server.TemporalHost,
		"CAIA_TASK_QUEUE":       &c.Server.TaskQueue,
		"CAIA_VOCABULARY_NAME":  &c.Processing.VocabularyName,
		"CAIA_FORMATTED_FILE":   &c.Storage.FormattedFile,
		"CAIA_VOCABULARY_FILE":  &c.Storage.VocabularyFile,
		"CAIA_NORMALIZED_FILE":  &c.Storage.NormalizedFile,
		"CAIA_CONVERSATIONS_FN": &c.Corpus.ConversationsFile,
		"CAIA_LINES_FN":         &c.Corpus.LinesFile,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CAIA_MIN_COUNT":   &c.Processing.MinCount,
		"PORT":             &c.Server.Port,
		"CAIA_BROWSE_PORT": &c.Server.BrowsePort,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", key, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks that the configuration is coherent.
// It returns a joined error listing all failures.
func (c *PipelineConfig) Validate() error {
	if c.Logging == nil || c.Corpus == nil || c.Processing == nil || c.Storage == nil || c.Server == nil {
		return errors.New("config: all sections (logging, corpus, processing, storage, server) are required")
	}

	var errs []error
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Corpus.BaseDir == "" || c.Corpus.CorpusName == "" {
		errs = append(errs, errors.New("corpus.base_dir and corpus.corpus_name are required"))
	}
	if c.Corpus.LinesFile == "" || c.Corpus.ConversationsFile == "" {
		errs = append(errs, errors.New("corpus.lines_file and corpus.conversations_file are required"))
	}
	switch strings.ToLower(c.Corpus.Encoding) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1", "windows-1252", "cp1252", "utf-8", "utf8":
	default:
		errs = append(errs, fmt.Errorf("corpus.encoding %q is not supported", c.Corpus.Encoding))
	}
	if c.Corpus.Delimiter == "" {
		errs = append(errs, errors.New("corpus.delimiter must not be empty"))
	}
	if c.Processing.MinCount < 1 {
		errs = append(errs, fmt.Errorf("processing.min_count must be >= 1, got %d", c.Processing.MinCount))
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.OutputDir == "" {
			errs = append(errs, errors.New("storage.output_dir is required for the file backend"))
		}
	case "git":
		if c.Storage.GitRepo == "" {
			errs = append(errs, errors.New("storage.git_repo is required for the git backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: file, git", c.Storage.Backend))
	}
	if c.Storage.FormattedFile == "" || c.Storage.NormalizedFile == "" || c.Storage.VocabularyFile == "" {
		errs = append(errs, errors.New("storage artifact file names are required"))
	}
	if c.Server.Port <= 0 || c.Server.BrowsePort <= 0 {
		errs = append(errs, errors.New("server ports must be positive"))
	}
	return errors.Join(errs...)
}
