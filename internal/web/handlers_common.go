package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/core"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// rowParams extracts the session ID and row index from the URL.
func rowParams(r *http.Request) (string, int, error) {
	row, err := bom.ParseRowIndex(chi.URLParam(r, "row"))
	if err != nil {
		return "", 0, err
	}
	return chi.URLParam(r, "sessionID"), row, nil
}

// extensionTypes is used when the client sends no usable part Content-Type.
var extensionTypes = map[string]string{
	".csv":  bom.MimeCSV,
	".txt":  bom.MimeCSV,
	".xls":  bom.MimeXLS,
	".xlsx": bom.MimeXLSX,
}

// mimeFor returns the declared type of an uploaded part. Browsers and curl
// often send application/octet-stream, in which case the file extension
// decides.
func mimeFor(fh *multipart.FileHeader) string {
	declared := fh.Header.Get("Content-Type")
	mt, _, err := mime.ParseMediaType(declared)
	if err == nil && mt != "application/octet-stream" {
		return declared
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(fh.Filename))]; ok {
		return t
	}
	return declared
}

// invalidRequest wraps a parsing failure so it maps to REQ001.
func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// transitionResponse is the JSON form of a row state change.
type transitionResponse struct {
	Row    int    `json:"row"`
	Action string `json:"action"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func toTransitionResponse(tr bom.Transition) transitionResponse {
	return transitionResponse{
		Row:    tr.Row,
		Action: tr.Action,
		From:   string(tr.From),
		To:     string(tr.To),
	}
}
