package parser

import (
	"bufio"
	"fmt"
	"io"
)

const (
	initialScanBufSize = 64 * 1024        // 64KB
	maxLineSize        = 20 * 1024 * 1024 // 20MB
)

// lineReader reads newline-delimited input line by line,
// tracking 1-based line numbers. The buffer starts small and
// grows on demand up to maxLen; longer lines are an error
// since a dropped line would silently lose records.
type lineReader struct {
	r      *bufio.Reader
	maxLen int
	buf    []byte
	lineNo int
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, initialScanBufSize),
		maxLen: maxLen,
		buf:    make([]byte, 0, initialScanBufSize),
	}
}

// next returns the next line (without trailing newline or
// carriage return) and true, or ("", false, nil) at EOF.
// Blank lines are returned as-is; the caller decides what to
// skip.
func (lr *lineReader) next() (string, bool, error) {
	lr.buf = lr.buf[:0]
	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if err == io.EOF {
				if len(lr.buf) > 0 {
					break
				}
				return "", false, nil
			}
			return "", false, err
		}
		lr.buf = append(lr.buf, chunk...)
		if len(lr.buf) > lr.maxLen {
			return "", false, fmt.Errorf(
				"line %d exceeds %d bytes", lr.lineNo+1, lr.maxLen,
			)
		}
		if !isPrefix {
			break
		}
	}
	lr.lineNo++
	return string(lr.buf), true, nil
}
