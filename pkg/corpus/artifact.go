package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PairSeparator splits input from response in pair artifacts
const PairSeparator = "\t"

const maxArtifactLine = 1024 * 1024

// WritePairs writes one pair per line as input<TAB>response<LF>.
// Fields are never escaped: a field containing a tab or line break is rejected
// so that ReadPairs always reproduces exactly what was written.
func WritePairs(w io.Writer, pairs []Pair) error {
	bw := bufio.NewWriter(w)
	for i, p := range pairs {
		if err := checkEncodable(p); err != nil {
			return &Error{Kind: KindUnencodablePair, Line: i + 1, Err: err}
		}
		if _, err := bw.WriteString(p.Input + PairSeparator + p.Response + "\n"); err != nil {
			return fmt.Errorf("failed to write pair %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// ReadPairs parses an artifact written by WritePairs. WritePairs never emits an
// empty line, so one is reported as malformed.
func ReadPairs(r io.Reader) ([]Pair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxArtifactLine)

	var pairs []Pair
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			return nil, &Error{
				Kind: KindMalformedRecord,
				Line: lineNo,
				Err:  fmt.Errorf("empty line"),
			}
		}
		input, response, ok := strings.Cut(line, PairSeparator)
		if !ok || strings.Contains(response, PairSeparator) {
			return nil, &Error{
				Kind: KindMalformedRecord,
				Line: lineNo,
				Err:  fmt.Errorf("expected exactly one %q separator", PairSeparator),
			}
		}
		pairs = append(pairs, Pair{Input: input, Response: response})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}
	return pairs, nil
}

func checkEncodable(p Pair) error {
	for _, field := range []string{p.Input, p.Response} {
		if strings.ContainsAny(field, "\t\r\n") {
			return fmt.Errorf("field %q contains a tab or line break", field)
		}
	}
	return nil
}
