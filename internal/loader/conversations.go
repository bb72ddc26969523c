package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
)

// AssembleConversations parses a conversations file and resolves every referenced
// record identifier against records. Exactly one Conversation is produced per
// input line, appended only once all of its lines are resolved.
func AssembleConversations(ctx context.Context, path string, records corpus.RecordTable, schema corpus.Schema, opts ...Option) ([]corpus.Conversation, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	file := filepath.Base(path)
	want := len(schema.Fields)
	listIdx := schema.IndexOf(corpus.FieldUtteranceIDs)

	var conversations []corpus.Conversation
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

		var conv corpus.Conversation
		for i, name := range schema.Fields {
			if err := conv.Set(name, values[i]); err != nil {
				return err
			}
		}

		conv.UtteranceIDs = o.parser.ParseIDs(values[listIdx])
		conv.Lines = make([]corpus.Record, 0, len(conv.UtteranceIDs))
		for _, id := range conv.UtteranceIDs {
			rec, found := records[id]
			if !found {
				return &corpus.Error{
					Kind:     corpus.KindUnresolvedReference,
					File:     file,
					Line:     lineNo,
					RecordID: id,
				}
			}
			conv.Lines = append(conv.Lines, rec)
		}

		if len(conv.Lines) == 0 {
			o.logger.Debug().Str("file", file).Int("line", lineNo).Msg("Conversation references no records")
		}
		conversations = append(conversations, conv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Debug().Str("file", file).Int("conversations", len(conversations)).Msg("Conversations assembled")
	return conversations, nil
}
