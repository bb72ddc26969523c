package corpus

import (
	"errors"
	"fmt"
)

// Schema declares the ordered field layout of a delimited corpus file
type Schema struct {
	Name   string   `json:"name"`
	Key    string   `json:"key"`    // field that must be present
	Fields []string `json:"fields"` // assignment order on each line
}

var (
	// MovieLinesSchema describes movie_lines.txt
	MovieLinesSchema = Schema{
		Name:   "movie_lines",
		Key:    FieldLineID,
		Fields: []string{FieldLineID, FieldCharacterID, FieldMovieID, FieldCharacter, FieldText},
	}

	// MovieConversationsSchema describes movie_conversations.txt
	MovieConversationsSchema = Schema{
		Name:   "movie_conversations",
		Key:    FieldUtteranceIDs,
		Fields: []string{FieldCharacter1ID, FieldCharacter2ID, FieldMovieID, FieldUtteranceIDs},
	}
)

var knownFields = map[string]map[string]bool{
	FieldLineID: {
		FieldLineID: true, FieldCharacterID: true, FieldMovieID: true, FieldCharacter: true, FieldText: true,
	},
	FieldUtteranceIDs: {
		FieldCharacter1ID: true, FieldCharacter2ID: true, FieldMovieID: true, FieldUtteranceIDs: true,
	},
}

// Validate checks the schema before any file is parsed with it
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields declared", s.Name)
	}
	known, ok := knownFields[s.Key]
	if !ok {
		return fmt.Errorf("schema %s: unsupported key field %q", s.Name, s.Key)
	}

	var errs []error
	seen := make(map[string]bool, len(s.Fields))
	hasKey := false
	for _, f := range s.Fields {
		if seen[f] {
			errs = append(errs, fmt.Errorf("schema %s: duplicate field %q", s.Name, f))
		}
		seen[f] = true
		if !known[f] {
			errs = append(errs, fmt.Errorf("schema %s: unknown field %q", s.Name, f))
		}
		if f == s.Key {
			hasKey = true
		}
	}
	if !hasKey {
		errs = append(errs, fmt.Errorf("schema %s: missing key field %q", s.Name, s.Key))
	}
	return errors.Join(errs...)
}

// IndexOf returns the position of a field or -1
func (s Schema) IndexOf(field string) int {
	for i, f := range s.Fields {
		if f == field {
			return i
		}
	}
	return -1
}
