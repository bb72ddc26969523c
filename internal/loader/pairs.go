package loader

import (
	"strings"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
)

// PairStats counts candidate and emitted pairs
type PairStats struct {
	Conversations int `json:"conversations"`
	Candidates    int `json:"candidates"`
	Emitted       int `json:"emitted"`
	Skipped       int `json:"skipped"` // a side was empty after trimming
}

// ExtractPairs emits adjacent (input, response) pairs from each conversation
func ExtractPairs(conversations []corpus.Conversation) []corpus.Pair {
	pairs, _ := ExtractPairsWithStats(conversations)
	return pairs
}

// ExtractPairsWithStats is ExtractPairs plus counters for the skipped pairs.
// Pairs never cross a conversation boundary.
func ExtractPairsWithStats(conversations []corpus.Conversation) ([]corpus.Pair, PairStats) {
	stats := PairStats{Conversations: len(conversations)}
	pairs := make([]corpus.Pair, 0)

	for _, conv := range conversations {
		for i := 0; i+1 < len(conv.Lines); i++ {
			stats.Candidates++
			input := strings.TrimSpace(conv.Lines[i].Text)
			response := strings.TrimSpace(conv.Lines[i+1].Text)
			if input == "" || response == "" {
				stats.Skipped++
				continue
			}
			pairs = append(pairs, corpus.Pair{Input: input, Response: response})
		}
	}

	stats.Emitted = len(pairs)
	return pairs, stats
}
