package core

// streaming.go reads upload bodies while enforcing the size ceiling.
//
// The whole file is needed in memory (XLSX is a zip archive and the parser
// sniffs content), so the body is buffered. The limit is checked while
// reading so an oversized upload is rejected as soon as it crosses the
// ceiling instead of after it has been fully received.

import (
	"bytes"
	"fmt"
	"io"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// CountingReader wraps an io.Reader to track bytes read and stops with
// bom.ErrFileTooLarge once more than Limit bytes have been seen.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64 // 0 means unlimited
}

// NewCountingReader creates a counting reader. limit <= 0 disables the check.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	if limit < 0 {
		limit = 0
	}
	return &CountingReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	if r.Limit > 0 && int64(len(p)) > r.Limit-r.BytesRead+1 {
		// Never read more than one byte past the limit.
		p = p[:r.Limit-r.BytesRead+1]
	}
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", bom.ErrFileTooLarge, r.Limit)
	}
	return n, err
}

// ReadUpload buffers r, failing with bom.ErrFileTooLarge past limit bytes.
// sizeHint preallocates the buffer when the client declared a size.
func ReadUpload(r io.Reader, limit, sizeHint int64) ([]byte, error) {
	var buf bytes.Buffer
	if sizeHint > 0 && (limit <= 0 || sizeHint <= limit) {
		buf.Grow(int(sizeHint))
	}
	if _, err := buf.ReadFrom(NewCountingReader(r, limit)); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return buf.Bytes(), nil
}
