package vocab

import (
	"encoding/json"
	"fmt"
	"io"
)

type wordEntry struct {
	Word  string `json:"word"`
	Index int    `json:"index"`
	Count int    `json:"count"`
}

type snapshot struct {
	Name    string      `json:"name"`
	Trimmed bool        `json:"trimmed"`
	Words   []wordEntry `json:"words"` // index order
}

// WriteJSON serializes the vocabulary with words in index order
func (v *Vocabulary) WriteJSON(w io.Writer) error {
	snap := snapshot{Name: v.name, Trimmed: v.trimmed, Words: make([]wordEntry, 0, v.numWords-firstWordIndex)}
	for _, word := range v.Words() {
		snap.Words = append(snap.Words, wordEntry{Word: word, Index: v.wordToIndex[word], Count: v.wordToCount[word]})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ReadJSON restores a vocabulary written by WriteJSON
func ReadJSON(r io.Reader) (*Vocabulary, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}

	v := New(snap.Name)
	for i, entry := range snap.Words {
		if want := firstWordIndex + i; entry.Index != want {
			return nil, fmt.Errorf("vocabulary word %q has index %d, expected %d", entry.Word, entry.Index, want)
		}
		if _, dup := v.wordToIndex[entry.Word]; dup {
			return nil, fmt.Errorf("vocabulary word %q listed twice", entry.Word)
		}
		if entry.Count < 1 {
			return nil, fmt.Errorf("vocabulary word %q has count %d", entry.Word, entry.Count)
		}
		v.AddWord(entry.Word)
		v.wordToCount[entry.Word] = entry.Count
	}
	v.trimmed = snap.Trimmed
	return v, nil
}
