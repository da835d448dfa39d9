package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/bomquote/internal/bom"
)

// Result returns the current state of an upload.
func (s *Service) Result(ctx context.Context, id string) (*bom.UploadResult, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.result, nil
}

// Stats returns the tier and transition counts of an upload.
func (s *Service) Stats(ctx context.Context, id string) (bom.Stats, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return bom.Stats{}, err
	}
	return sess.result.Stats(), nil
}

// Suggestions returns up to limit candidate products for a row, best first.
// limit <= 0 selects the configured default.
func (s *Service) Suggestions(ctx context.Context, id string, row, limit int) ([]bom.Suggestion, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	r, ok := sess.result.Row(row)
	if !ok {
		return nil, fmt.Errorf("%w: %d", bom.ErrRowNotFound, row)
	}
	if r.State == bom.StateDeleted {
		return nil, fmt.Errorf("%w: %d", bom.ErrRowDeleted, row)
	}

	if limit <= 0 {
		limit = s.opts.SuggestionLimit
	}
	limit = min(limit, MaxSuggestions)

	return s.engine.Matcher().Suggest(r.Line, sess.catalog, limit), nil
}

// Export returns the cart items for every accepted row.
func (s *Service) Export(ctx context.Context, id string) ([]bom.CartItem, error) {
	sess, _, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.result.CartItems(), nil
}
