// Package vocab implements the word/index frequency structure consumed by
// downstream tokenization and embedding.
package vocab

import (
	"strings"
)

// Reserved indices, present before any word is added
const (
	PadToken = 0
	SOSToken = 1
	EOSToken = 2

	firstWordIndex = 3
)

var sentinels = map[int]string{
	PadToken: "PAD",
	SOSToken: "SOS",
	EOSToken: "EOS",
}

// TrimReport describes the outcome of Trim
type TrimReport struct {
	Kept    int     `json:"kept"`
	Total   int     `json:"total"`
	Ratio   float64 `json:"ratio"`
	Skipped bool    `json:"skipped"` // vocabulary was already trimmed
}

// Vocabulary is a dense, incremental word index with occurrence counts.
// It is not safe for concurrent mutation.
type Vocabulary struct {
	name        string
	trimmed     bool
	wordToIndex map[string]int
	wordToCount map[string]int
	indexToWord map[int]string
	numWords    int
}

// New creates an empty vocabulary holding only the sentinels
func New(name string) *Vocabulary {
	v := &Vocabulary{name: name}
	v.reset()
	return v
}

func (v *Vocabulary) reset() {
	v.wordToIndex = make(map[string]int)
	v.wordToCount = make(map[string]int)
	v.indexToWord = make(map[int]string, len(sentinels))
	for idx, word := range sentinels {
		v.indexToWord[idx] = word
	}
	v.numWords = firstWordIndex
}

// AddSentence adds every whitespace separated token in order
func (v *Vocabulary) AddSentence(sentence string) {
	for _, word := range strings.Fields(sentence) {
		v.AddWord(word)
	}
}

// AddWord assigns the next index to an unseen word or increments its count
func (v *Vocabulary) AddWord(word string) {
	if _, ok := v.wordToIndex[word]; ok {
		v.wordToCount[word]++
		return
	}
	v.wordToIndex[word] = v.numWords
	v.wordToCount[word] = 1
	v.indexToWord[v.numWords] = word
	v.numWords++
}

// Trim keeps words seen at least minCount times and rebuilds the index over them
// in first-seen order. Retained words are re-added once, so their counts restart
// at 1. Only the first call has any effect.
func (v *Vocabulary) Trim(minCount int) TrimReport {
	if v.trimmed {
		return TrimReport{Skipped: true}
	}
	v.trimmed = true

	words := v.Words()
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if v.wordToCount[word] >= minCount {
			kept = append(kept, word)
		}
	}

	report := TrimReport{Kept: len(kept), Total: len(words)}
	if report.Total > 0 {
		report.Ratio = float64(report.Kept) / float64(report.Total)
	}

	v.reset()
	for _, word := range kept {
		v.AddWord(word)
	}
	return report
}

// Index returns the index of word
func (v *Vocabulary) Index(word string) (int, bool) {
	idx, ok := v.wordToIndex[word]
	return idx, ok
}

// Word returns the word at index, including the sentinels
func (v *Vocabulary) Word(index int) (string, bool) {
	word, ok := v.indexToWord[index]
	return word, ok
}

// Count returns how many times word was added, 0 if unseen
func (v *Vocabulary) Count(word string) int {
	return v.wordToCount[word]
}

// Words returns the real words in index order, which is first-seen order
func (v *Vocabulary) Words() []string {
	words := make([]string, 0, v.numWords-firstWordIndex)
	for idx := firstWordIndex; idx < v.numWords; idx++ {
		words = append(words, v.indexToWord[idx])
	}
	return words
}

// Encode maps a normalized sentence to indices terminated by EOS.
// Words missing from the vocabulary are skipped.
func (v *Vocabulary) Encode(sentence string) []int {
	fields := strings.Fields(sentence)
	ids := make([]int, 0, len(fields)+1)
	for _, word := range fields {
		if idx, ok := v.wordToIndex[word]; ok {
			ids = append(ids, idx)
		}
	}
	return append(ids, EOSToken)
}

// Len returns the number of indices in use, sentinels included
func (v *Vocabulary) Len() int {
	return v.numWords
}

// Trimmed reports whether Trim has run
func (v *Vocabulary) Trimmed() bool {
	return v.trimmed
}

// Name returns the vocabulary name
func (v *Vocabulary) Name() string {
	return v.name
}
