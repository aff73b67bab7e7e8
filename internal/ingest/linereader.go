package ingest

import (
	"bufio"
	"io"
)

const (
	initialScanBufSize = 64 * 1024 // 64KB
	maxLineSize        = 1 << 20   // 1MiB; a session line is ~200 bytes
)

// lineReader reads JSONL files line by line, skipping lines that
// exceed maxLen rather than aborting. The buffer starts small and
// grows on demand up to maxLen.
type lineReader struct {
	r         *bufio.Reader
	maxLen    int
	buf       []byte
	err       error
	lineNo    int
	oversized int
}

func newLineReader(r io.Reader, maxLen int) *lineReader {
	return &lineReader{
		r:      bufio.NewReaderSize(r, min(initialScanBufSize, maxLen+1)),
		maxLen: maxLen,
		buf:    make([]byte, 0, min(initialScanBufSize, maxLen+1)),
	}
}

// next returns the next non-blank line (without trailing newline)
// and true, or ("", false) at EOF or on a read error. Lines
// exceeding maxLen are skipped and counted.
func (lr *lineReader) next() (string, bool) {
	for {
		line, err := lr.readLine()
		if err != nil {
			if err != io.EOF {
				lr.err = err
			}
			return "", false
		}
		if line != "" {
			return line, true
		}
	}
}

// Err returns the first non-EOF read error.
func (lr *lineReader) Err() error {
	return lr.err
}

// readLine reads a full line, returning "" for blank/oversized
// lines and a non-nil error only at EOF or read failure.
func (lr *lineReader) readLine() (string, error) {
	lr.buf = lr.buf[:0]
	oversized := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if len(lr.buf) > 0 && err == io.EOF {
				break
			}
			return "", err
		}

		if oversized {
			if !isPrefix {
				lr.lineNo++
				return "", nil
			}
			continue
		}

		lr.buf = append(lr.buf, chunk...)

		if len(lr.buf) > lr.maxLen {
			oversized = true
			lr.oversized++
			lr.buf = lr.buf[:0]
			if !isPrefix {
				lr.lineNo++
				return "", nil
			}
			continue
		}

		if !isPrefix {
			break
		}
	}

	lr.lineNo++
	return string(lr.buf), nil
}
