package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/core"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/web/templates"
)

const (
	// multipartOverhead allows for boundaries and part headers around the file.
	multipartOverhead = 64 << 10

	// multipartMemory is kept in memory before parts spill to disk.
	multipartMemory = 1 << 20
)

// handleUpload accepts a multipart form with a "file" field and returns the
// new session with its matched rows.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.Options().MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: request over %d bytes", bom.ErrFileTooLarge, tooLarge.Limit))
			return
		}
		respondError(w, r, invalidRequest("multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	ctx := WithRequestMetadata(r.Context(), r)
	sess, err := s.service.Upload(ctx, core.UploadRequest{
		FileName: header.Filename,
		MimeType: mimeFor(header),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// handleDownloadTemplate serves an empty BOM file in the requested format.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := bom.ParseTemplateFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, r, invalidRequest("format must be csv or xlsx"))
		return
	}

	data, err := bom.Template(format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("write template", "error", err)
	}
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Result(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStats returns the tier counts, as a fragment for HTMX requests.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	stats, err := s.service.Stats(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !isHTMX(r) {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.UploadStats(id, stats).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload stats", "error", err)
	}
}

// handleExport returns the cart items for every accepted row.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	items, err := s.service.Export(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []bom.CartItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": id,
		"items":     items,
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
