package corpus

import (
	"fmt"
	"strings"
)

// Field names shared by the Cornell movie-dialogs files
const (
	FieldLineID       = "lineID"
	FieldCharacterID  = "charID"
	FieldMovieID      = "movieID"
	FieldCharacter    = "char"
	FieldText         = "text"
	FieldCharacter1ID = "char1ID"
	FieldCharacter2ID = "char2ID"
	FieldUtteranceIDs = "utteranceIDs"
)

// Delimiter separates fields on every line of the source corpus files
const Delimiter = " +++$+++ "

// Record represents one parsed line of the movie lines file
type Record struct {
	LineID      string `json:"line_id"`
	CharacterID string `json:"character_id"`
	MovieID     string `json:"movie_id"`
	Character   string `json:"character"`
	Text        string `json:"text"`
}

// Set binds a value to the record field declared under name
func (r *Record) Set(name, value string) error {
	switch name {
	case FieldLineID:
		r.LineID = value
	case FieldCharacterID:
		r.CharacterID = value
	case FieldMovieID:
		r.MovieID = value
	case FieldCharacter:
		r.Character = value
	case FieldText:
		r.Text = value
	default:
		return fmt.Errorf("unknown record field %q", name)
	}
	return nil
}

// RecordTable maps a record identifier to its record
type RecordTable map[string]Record

// Conversation is an ordered resolution of referenced records
type Conversation struct {
	Character1ID string   `json:"character1_id"`
	Character2ID string   `json:"character2_id"`
	MovieID      string   `json:"movie_id"`
	UtteranceIDs []string `json:"utterance_ids"`
	Lines        []Record `json:"lines"`
}

// Set binds a value to the conversation metadata field declared under name.
// The utterance list is kept raw here; the assembler parses it.
func (c *Conversation) Set(name, value string) error {
	switch name {
	case FieldCharacter1ID:
		c.Character1ID = value
	case FieldCharacter2ID:
		c.Character2ID = value
	case FieldMovieID:
		c.MovieID = value
	case FieldUtteranceIDs:
	default:
		return fmt.Errorf("unknown conversation field %q", name)
	}
	return nil
}

// Pair is one (input, response) training example
type Pair struct {
	Input    string `json:"input"`
	Response string `json:"response"`
}

// Valid reports whether both sides carry text after trimming
func (p Pair) Valid() bool {
	return strings.TrimSpace(p.Input) != "" && strings.TrimSpace(p.Response) != ""
}
