package processing

import (
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowercaseTrimRule lowercases text and trims surrounding whitespace
type LowercaseTrimRule struct{}

func (r *LowercaseTrimRule) Name() string {
	return "lowercase_trim"
}

func (r *LowercaseTrimRule) Description() string {
	return "Lowercases text and trims leading and trailing whitespace"
}

func (r *LowercaseTrimRule) Apply(content string) string {
	return strings.TrimSpace(strings.ToLower(content))
}

// DiacriticStripRule decomposes Unicode text and drops combining marks
type DiacriticStripRule struct{}

func (r *DiacriticStripRule) Name() string {
	return "diacritic_strip"
}

func (r *DiacriticStripRule) Description() string {
	return "Applies NFD decomposition and removes nonspacing marks (é -> e)"
}

func (r *DiacriticStripRule) Apply(content string) string {
	// transformers keep state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, content)
	if err != nil {
		return content
	}
	return stripped
}

var sentencePunctuation = regexp.MustCompile(`([.!?])`)

// PunctuationSpacingRule separates sentence punctuation into its own token
type PunctuationSpacingRule struct{}

func (r *PunctuationSpacingRule) Name() string {
	return "punctuation_spacing"
}

func (r *PunctuationSpacingRule) Description() string {
	return "Inserts a space before each '.', '!' and '?'"
}

func (r *PunctuationSpacingRule) Apply(content string) string {
	return sentencePunctuation.ReplaceAllString(content, " $1")
}

var nonLetterRun = regexp.MustCompile(`[^a-zA-Z.!?]+`)

// NonLetterCollapseRule replaces every run outside [a-zA-Z.!?] with one space
type NonLetterCollapseRule struct{}

func (r *NonLetterCollapseRule) Name() string {
	return "non_letter_collapse"
}

func (r *NonLetterCollapseRule) Description() string {
	return "Collapses runs of characters outside letters and .!? into a single space"
}

func (r *NonLetterCollapseRule) Apply(content string) string {
	return nonLetterRun.ReplaceAllString(content, " ")
}

// EdgeTrimRule removes the spaces the collapse can leave at either end
type EdgeTrimRule struct{}

func (r *EdgeTrimRule) Name() string {
	return "edge_trim"
}

func (r *EdgeTrimRule) Description() string {
	return "Trims leading and trailing spaces left by earlier rules"
}

func (r *EdgeTrimRule) Apply(content string) string {
	return strings.TrimSpace(content)
}

// MarkupStripRule keeps only the text nodes of HTML-ish utterances
type MarkupStripRule struct{}

func (r *MarkupStripRule) Name() string {
	return "markup_strip"
}

func (r *MarkupStripRule) Description() string {
	return "Removes HTML tags and decodes entities such as &amp;"
}

func (r *MarkupStripRule) Apply(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return b.String()
			}
			return content
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
