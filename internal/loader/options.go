// Package loader parses the delimited Cornell movie-dialogs files into records,
// resolves conversations and extracts adjacent utterance pairs.
package loader

import (
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultEncoding is the profile the corpus files were historically written in
const DefaultEncoding = "iso-8859-1"

type options struct {
	encoding  string
	delimiter string
	parser    IDListParser
	logger    zerolog.Logger
}

// Option customises how corpus files are read
type Option func(*options)

// WithEncoding selects the input encoding (iso-8859-1, windows-1252 or utf-8)
func WithEncoding(name string) Option {
	return func(o *options) {
		if name != "" {
			o.encoding = name
		}
	}
}

// WithDelimiter overrides the field delimiter
func WithDelimiter(delimiter string) Option {
	return func(o *options) {
		if delimiter != "" {
			o.delimiter = delimiter
		}
	}
}

// WithIDListParser swaps the parser used for the embedded utterance id list
func WithIDListParser(p IDListParser) Option {
	return func(o *options) {
		if p != nil {
			o.parser = p
		}
	}
}

// WithLogger sets the logger used for warnings during parsing
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{
		encoding:  DefaultEncoding,
		delimiter: corpus.Delimiter,
		parser:    LineIDParser{},
		logger:    logging.GetLogger("loader"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
