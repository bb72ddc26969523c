package loader

import "regexp"

// IDListParser recovers record identifiers from the serialized list embedded in a
// conversation line, e.g. "['L194', 'L195']".
type IDListParser interface {
	ParseIDs(field string) []string
}

// IDListParserFunc adapts a function to IDListParser
type IDListParserFunc func(field string) []string

func (f IDListParserFunc) ParseIDs(field string) []string {
	return f(field)
}

var lineIDPattern = regexp.MustCompile(`L[0-9]+`)

// LineIDParser matches tokens of the shape "L" followed by digits, in order of appearance
type LineIDParser struct{}

func (LineIDParser) ParseIDs(field string) []string {
	return lineIDPattern.FindAllString(field, -1)
}
