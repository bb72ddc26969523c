package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
)

// LoadRecords parses a movie lines file into a table keyed by lineID
func LoadRecords(ctx context.Context, path string, schema corpus.Schema, opts ...Option) (corpus.RecordTable, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	file := filepath.Base(path)
	want := len(schema.Fields)

	records := make(corpus.RecordTable)
	err := scanLines(ctx, path, o, func(lineNo int, line string) error {
		values, ok := splitFields(line, o.delimiter, want)
		if !ok {
			return &corpus.Error{
				Kind: corpus.KindMalformedRecord,
				File: file,
				Line: lineNo,
				Err:  fmt.Errorf("expected %d fields, found %d", want, len(values)),
			}
		}

		var rec corpus.Record
		for i, name := range schema.Fields {
			if err := rec.Set(name, values[i]); err != nil {
				return err
			}
		}

		if _, exists := records[rec.LineID]; exists {
			o.logger.Warn().
				Str("file", file).
				Int("line", lineNo).
				Str("line_id", rec.LineID).
				Msg("Duplicate record identifier replaces earlier record")
		}
		records[rec.LineID] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Debug().Str("file", file).Int("records", len(records)).Msg("Records loaded")
	return records, nil
}
