package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

// DefaultSniffLen is the number of leading bytes inspected for binary detection
const DefaultSniffLen = 1024

// readBufferSize is the chunk size used when streaming a text file to count lines
const readBufferSize = 32 * 1024

// Result holds the classification of a single regular file
type Result struct {
	Size          int64
	IsBinary      bool
	NumberOfLines int
	ModTime       time.Time
}

// Classifier decides binary vs. text for a file and counts lines of text files.
//
// Binary detection is a heuristic: only the first SniffLen bytes are inspected,
// so a file with a NUL byte or invalid UTF-8 further in is still reported as
// text.
type Classifier struct {
	SniffLen int
}

// New creates a Classifier with the default prefix length
func New() *Classifier {
	return &Classifier{SniffLen: DefaultSniffLen}
}

// Classify classifies the file at path with the default settings
func Classify(path string) (*Result, error) {
	return New().Classify(path)
}

// Classify inspects the regular file at path. Size and modification time come
// from file metadata; the content is read once, prefix first.
func (c *Classifier) Classify(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s: not a regular file", types.ErrUnreadableEntry, path)
	}

	result := &Result{
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	sniffLen := c.SniffLen
	if sniffLen <= 0 {
		sniffLen = DefaultSniffLen
	}

	// One byte past the sniff window tells whether the file continues
	prefix := make([]byte, sniffLen+1)
	n, err := io.ReadFull(f, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}
	prefix = prefix[:n]

	truncated := n > sniffLen
	sniff := prefix
	if truncated {
		sniff = prefix[:sniffLen]
	}
	if IsBinaryContent(sniff, truncated) {
		result.IsBinary = true
		return result, nil
	}

	lines, err := countLines(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}
	result.NumberOfLines = bytes.Count(prefix, []byte{'\n'}) + lines

	return result, nil
}

// IsBinaryContent reports whether data looks like binary content: it contains
// a NUL byte or is not valid UTF-8. When truncated is true, data is a prefix of
// a longer file and an incomplete multi-byte rune at the end is ignored.
func IsBinaryContent(data []byte, truncated bool) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if truncated {
		data = trimPartialRune(data)
	}
	return !utf8.Valid(data)
}

// trimPartialRune drops a trailing incomplete UTF-8 sequence
func trimPartialRune(data []byte) []byte {
	// A rune is at most utf8.UTFMax bytes, so only the tail needs checking
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		start := len(data) - i
		if !utf8.RuneStart(data[start]) {
			continue
		}
		if !utf8.FullRune(data[start:]) {
			return data[:start]
		}
		break
	}
	return data
}

// countLines counts '\n' terminators in the remainder of r
func countLines(r io.Reader) (int, error) {
	buf := make([]byte, readBufferSize)
	count := 0
	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}
