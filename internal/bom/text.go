package bom

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText returns delimited text as UTF-8. A leading byte order mark is
// dropped. Input that is not valid UTF-8 is read as Windows-1250, which is
// what Excel writes for Central European locales when saving "CSV".
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode windows-1250: %w", err)
	}
	return string(out), nil
}

// splitLines splits text into physical lines, accepting \n, \r\n and \r.
func splitLines(s string) []string {
	lines := make([]string, 0, 64)
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
