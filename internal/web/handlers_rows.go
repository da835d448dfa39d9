package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// maxMapBody bounds the JSON body of a mapping request.
const maxMapBody = 4 << 10

// rowAction is a single-row service operation.
type rowAction func(ctx context.Context, id string, row int) (bom.Transition, error)

// handleRowAction adapts a rowAction to an HTTP handler.
func (s *Server) handleRowAction(action rowAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, row, err := rowParams(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		tr, err := action(WithRequestMetadata(r.Context(), r), id, row)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionResponse(tr))
	}
}

func (s *Server) handleAcceptRow(w http.ResponseWriter, r *http.Request) {
	s.handleRowAction(s.service.AcceptRow)(w, r)
}

func (s *Server) handleRejectRow(w http.ResponseWriter, r *http.Request) {
	s.handleRowAction(s.service.RejectRow)(w, r)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	s.handleRowAction(s.service.DeleteRow)(w, r)
}

// MapRowRequest is the body of a manual mapping.
type MapRowRequest struct {
	ProductID string `json:"productId"`
}

func (s *Server) handleMapRow(w http.ResponseWriter, r *http.Request) {
	var req MapRowRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMapBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, invalidRequest("mapping body: %v", err))
		return
	}

	s.handleRowAction(func(ctx context.Context, id string, row int) (bom.Transition, error) {
		return s.service.MapRow(ctx, id, row, req.ProductID)
	})(w, r)
}

// handleAcceptAll accepts every automatic match at or above ?min=
// (default high).
func (s *Server) handleAcceptAll(w http.ResponseWriter, r *http.Request) {
	floor := bom.ConfidenceHigh
	if v := strings.TrimSpace(r.URL.Query().Get("min")); v != "" {
		c, err := bom.ParseConfidence(v)
		if err != nil || c == bom.ConfidenceNone {
			respondError(w, r, invalidRequest("min must be low, medium or high"))
			return
		}
		floor = c
	}

	ctx := WithRequestMetadata(r.Context(), r)
	out, err := s.service.AcceptAll(ctx, chi.URLParam(r, "sessionID"), floor)
	if err != nil {
		respondError(w, r, err)
		return
	}

	transitions := make([]transitionResponse, len(out))
	for i, tr := range out {
		transitions[i] = toTransitionResponse(tr)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"min":         floor,
		"accepted":    len(out),
		"transitions": transitions,
	})
}

// handleSuggestions lists candidate products for a manual mapping.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	id, row, err := rowParams(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	suggestions, err := s.service.Suggestions(r.Context(), id, row, parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []bom.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"row":         row,
		"suggestions": suggestions,
	})
}
