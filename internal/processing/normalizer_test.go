package processing

import (
	"testing"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "diacritics and punctuation", input: "Café?!", expected: "cafe ? !"},
		{name: "sentence", input: "  Can we make this quick?  ", expected: "can we make this quick ?"},
		{name: "apostrophe and digits", input: "I'm 21 years old.", expected: "i m years old ."},
		{name: "leading symbol", input: "'Hi", expected: "hi"},
		{name: "tabs and newlines", input: "one\ttwo\nthree", expected: "one two three"},
		{name: "uppercase accent", input: "ÉCOLE", expected: "ecole"},
		{name: "undecomposable letter", input: "straße", expected: "stra e"},
		{name: "only digits", input: "1234", expected: ""},
		{name: "empty", input: "", expected: ""},
		{name: "ellipsis", input: "Well...", expected: "well . . ."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer()
	inputs := []string{
		"Café?!",
		"They do not!",
		"  'Hi', she said -- twice...  ",
		"Über naïve résumé!",
		"<i>tags</i> stay literal",
		"",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestIndividualRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		input    string
		expected string
	}{
		{name: "LowercaseTrim", rule: &LowercaseTrimRule{}, input: "  Hello World ", expected: "hello world"},
		{name: "DiacriticStrip", rule: &DiacriticStripRule{}, input: "naïve café", expected: "naive cafe"},
		{name: "PunctuationSpacing", rule: &PunctuationSpacingRule{}, input: "hi!ok?yes.", expected: "hi !ok ?yes ."},
		{name: "NonLetterCollapse", rule: &NonLetterCollapseRule{}, input: "a, b -- 42 c", expected: "a b c"},
		{name: "EdgeTrim", rule: &EdgeTrimRule{}, input: " a ", expected: "a"},
		{name: "MarkupStrip", rule: &MarkupStripRule{}, input: "<i>Hello</i> &amp; bye", expected: " Hello  & bye"},
		{name: "MarkupStripPlain", rule: &MarkupStripRule{}, input: "no markup", expected: "no markup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rule.Apply(tt.input))
		})
	}
}

func TestMarkupStripOptIn(t *testing.T) {
	n := NewNormalizer()
	assert.NotContains(t, n.EnabledRules(), "markup_strip")
	assert.Equal(t, "i hello i", n.Normalize("<i>Hello</i>"))

	n.EnableRule("markup_strip")
	assert.Equal(t, "markup_strip", n.EnabledRules()[0])
	assert.Equal(t, "hello", n.Normalize("<i>Hello</i>"))
	assert.Equal(t, "tom jerry", n.Normalize("Tom &amp; Jerry"))
}

func TestNormalizerRuleManagement(t *testing.T) {
	n := NewNormalizer()
	assert.Equal(t, []string{"lowercase_trim", "diacritic_strip", "punctuation_spacing", "non_letter_collapse", "edge_trim"}, n.EnabledRules())
	assert.Len(t, n.AvailableRules(), 6)

	n.DisableRule("punctuation_spacing")
	assert.Equal(t, "cafe?!", n.Normalize("Café?!"))
}

func TestNormalizePairs(t *testing.T) {
	n := NewNormalizer()
	pairs := []corpus.Pair{
		{Input: "Hi!", Response: "Bye."},
		{Input: "42", Response: "Forty-two?"},
	}

	out, stats := n.NormalizePairs(pairs)
	assert.Equal(t, []corpus.Pair{
		{Input: "hi !", Response: "bye ."},
	}, out)
	assert.Equal(t, NormalizeStats{Pairs: 1, Skipped: 1, EmptyInputs: 1, EmptyResponses: 0}, stats)
	assert.Equal(t, "Hi!", pairs[0].Input, "input slice is not modified")
}

func TestNormalizePairsDropsEmptySides(t *testing.T) {
	n := NewNormalizer()
	pairs := []corpus.Pair{
		{Input: "1984", Response: "Good year."},
		{Input: "Good year.", Response: "$$$"},
		{Input: "#1", Response: "..."},
		{Input: "Really?", Response: "Really."},
	}

	out, stats := n.NormalizePairs(pairs)
	assert.Equal(t, []corpus.Pair{{Input: "really ?", Response: "really ."}}, out)
	assert.Equal(t, NormalizeStats{Pairs: 1, Skipped: 3, EmptyInputs: 2, EmptyResponses: 1}, stats)
	for _, p := range out {
		assert.True(t, p.Valid())
	}
}
