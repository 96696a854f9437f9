package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFile decodes one export file into records. The whole
// file is tried as a single JSON array first; anything else
// falls back to newline-delimited JSON, one document per
// non-blank line.
func ParseFile(data []byte) ([]Record, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrMalformed)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	text := string(data)

	if gjson.Valid(text) {
		doc := gjson.Parse(text)
		if doc.IsArray() {
			var records []Record
			doc.ForEach(func(_, v gjson.Result) bool {
				records = append(records, Record{raw: v})
				return true
			})
			return records, nil
		}
	}
	return parseLines(text)
}

func parseLines(text string) ([]Record, error) {
	lr := newLineReader(strings.NewReader(text), maxLineSize)
	var records []Record
	for {
		line, ok, err := lr.next()
		if err != nil {
			return nil, &ParseError{
				Line: lr.lineNo + 1,
				Err:  fmt.Errorf("%w: %v", ErrMalformed, err),
			}
		}
		if !ok {
			return records, nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, &ParseError{
				Line: lr.lineNo,
				Err: fmt.Errorf(
					"%w: invalid JSON document", ErrMalformed,
				),
			}
		}
		records = append(records, NewRecord(line))
	}
}

// ParseFiles parses every payload concurrently and returns the
// concatenated records in file order, then in-file order. Any
// malformed file fails the whole batch; the reported
// *ParseError names the lowest-indexed one.
func ParseFiles(
	ctx context.Context, payloads [][]byte,
) ([]Record, error) {
	results := make([][]Record, len(payloads))
	errs := make([]error, len(payloads))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, data := range payloads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			records, err := ParseFile(data)
			if err != nil {
				errs[i] = withFile(err, i)
				return errs[i]
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	combined := make([]Record, 0, total)
	for _, r := range results {
		combined = append(combined, r...)
	}
	return combined, nil
}

// withFile attaches a file index to a parse failure.
func withFile(err error, file int) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.File = file
		return pe
	}
	return &ParseError{File: file, Err: err}
}
