package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const maxLineSize = 1024 * 1024

// lookupEncoding returns the decoder for name. A nil encoding means strict UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// scanLines opens path, decodes it and calls fn for every non-blank line with its
// 1-based line number. The file is closed on every return path.
func scanLines(ctx context.Context, path string, o options, fn func(lineNo int, line string) error) error {
	enc, err := lookupEncoding(o.encoding)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if enc != nil {
		r = enc.NewDecoder().Reader(f)
	}

	file := filepath.Base(path)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if enc == nil && !utf8.ValidString(line) {
			return &corpus.Error{
				Kind: corpus.KindEncodingError,
				File: file,
				Line: lineNo,
				Err:  fmt.Errorf("invalid %s byte sequence", o.encoding),
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return &corpus.Error{
				Kind: corpus.KindMalformedRecord,
				File: file,
				Line: lineNo + 1,
				Err:  fmt.Errorf("line exceeds %d bytes: %w", maxLineSize, err),
			}
		}
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	return nil
}

// splitFields splits a line into exactly len(fields) values. The last field keeps
// any further delimiter occurrences verbatim.
func splitFields(line, delimiter string, want int) ([]string, bool) {
	values := strings.SplitN(line, delimiter, want)
	return values, len(values) == want
}
