// Package processing canonicalizes utterances into the lowercase ASCII letter and
// punctuation form the vocabulary is built from.
package processing

import (
	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/Caia-Tech/caia-corpus/pkg/pipeline"
)

// Rule is a single pure text transformation step
type Rule interface {
	Name() string
	Description() string
	Apply(content string) string
}

// NormalizeStats summarises a batch normalization
type NormalizeStats struct {
	Pairs          int `json:"pairs"`           // pairs kept
	Skipped        int `json:"skipped"`         // pairs dropped because a side normalized to ""
	EmptyInputs    int `json:"empty_inputs"`    // input side normalized to ""
	EmptyResponses int `json:"empty_responses"` // response side normalized to ""
}

// Normalizer applies an ordered chain of rules
type Normalizer struct {
	rules        []Rule
	enabledRules map[string]bool
}

// NewNormalizer creates the default chain:
// lowercase_trim, diacritic_strip, punctuation_spacing, non_letter_collapse, edge_trim.
// markup_strip runs first when enabled and is disabled by default.
func NewNormalizer() *Normalizer {
	n := &Normalizer{
		rules:        make([]Rule, 0),
		enabledRules: make(map[string]bool),
	}

	n.AddRule(&MarkupStripRule{})
	n.AddRule(&LowercaseTrimRule{})
	n.AddRule(&DiacriticStripRule{})
	n.AddRule(&PunctuationSpacingRule{})
	n.AddRule(&NonLetterCollapseRule{})
	n.AddRule(&EdgeTrimRule{})

	n.DisableRule("markup_strip")
	return n
}

// NewNormalizerFromConfig returns the default chain with the optional rules the
// processing config turns on. Vocabulary building and lookups must share it.
func NewNormalizerFromConfig(cfg *pipeline.ProcessingConfig) *Normalizer {
	n := NewNormalizer()
	if cfg != nil && cfg.StripMarkup {
		n.EnableRule("markup_strip")
	}
	return n
}

// AddRule appends a rule to the end of the chain, enabled
func (n *Normalizer) AddRule(rule Rule) {
	n.rules = append(n.rules, rule)
	n.enabledRules[rule.Name()] = true
}

// EnableRule enables a specific rule by name
func (n *Normalizer) EnableRule(ruleName string) {
	n.enabledRules[ruleName] = true
}

// DisableRule disables a specific rule by name
func (n *Normalizer) DisableRule(ruleName string) {
	n.enabledRules[ruleName] = false
}

// Normalize runs every enabled rule in order. Same input, same output.
func (n *Normalizer) Normalize(s string) string {
	for _, rule := range n.rules {
		if !n.enabledRules[rule.Name()] {
			continue
		}
		s = rule.Apply(s)
	}
	return s
}

// NormalizePair normalizes both sides of a pair
func (n *Normalizer) NormalizePair(p corpus.Pair) corpus.Pair {
	return corpus.Pair{
		Input:    n.Normalize(p.Input),
		Response: n.Normalize(p.Response),
	}
}

// NormalizePairs normalizes pairs in order. A pair with a side that normalizes
// to "" is dropped and counted as skipped.
func (n *Normalizer) NormalizePairs(pairs []corpus.Pair) ([]corpus.Pair, NormalizeStats) {
	out := make([]corpus.Pair, 0, len(pairs))
	var stats NormalizeStats
	for _, p := range pairs {
		normalized := n.NormalizePair(p)
		if normalized.Input == "" {
			stats.EmptyInputs++
		}
		if normalized.Response == "" {
			stats.EmptyResponses++
		}
		if normalized.Input == "" || normalized.Response == "" {
			stats.Skipped++
			continue
		}
		out = append(out, normalized)
	}
	stats.Pairs = len(out)
	return out, stats
}

// EnabledRules returns the names of enabled rules in chain order
func (n *Normalizer) EnabledRules() []string {
	enabled := make([]string, 0)
	for _, rule := range n.rules {
		if n.enabledRules[rule.Name()] {
			enabled = append(enabled, rule.Name())
		}
	}
	return enabled
}

// AvailableRules returns all rules with descriptions
func (n *Normalizer) AvailableRules() map[string]string {
	rules := make(map[string]string)
	for _, rule := range n.rules {
		rules[rule.Name()] = rule.Description()
	}
	return rules
}
