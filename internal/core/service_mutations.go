package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

// AcceptRow confirms the product currently matched to a row.
func (s *Service) AcceptRow(ctx context.Context, id string, row int) (bom.Transition, error) {
	return s.transition(ctx, id, func(res *bom.UploadResult, _ *bom.Catalog) (bom.Transition, error) {
		return res.AcceptRow(row)
	})
}

// RejectRow discards the automatic match of a row.
func (s *Service) RejectRow(ctx context.Context, id string, row int) (bom.Transition, error) {
	return s.transition(ctx, id, func(res *bom.UploadResult, _ *bom.Catalog) (bom.Transition, error) {
		return res.RejectRow(row)
	})
}

// MapRow assigns a catalog product chosen by the user. The product must
// exist in the catalog snapshot the upload was matched against.
func (s *Service) MapRow(ctx context.Context, id string, row int, productID string) (bom.Transition, error) {
	productID = strings.TrimSpace(productID)
	return s.transition(ctx, id, func(res *bom.UploadResult, c *bom.Catalog) (bom.Transition, error) {
		if productID == "" {
			return bom.Transition{}, bom.ErrEmptyProductID
		}
		if _, ok := c.Product(productID); !ok {
			return bom.Transition{}, fmt.Errorf("%w: %q", ErrUnknownProduct, productID)
		}
		return res.ManuallyMap(row, productID)
	})
}

// DeleteRow removes a row from the upload.
func (s *Service) DeleteRow(ctx context.Context, id string, row int) (bom.Transition, error) {
	return s.transition(ctx, id, func(res *bom.UploadResult, _ *bom.Catalog) (bom.Transition, error) {
		return res.DeleteRow(row)
	})
}

// AcceptAll accepts every automatic match at or above floor.
func (s *Service) AcceptAll(ctx context.Context, id string, floor bom.Confidence) ([]bom.Transition, error) {
	sess, ctx, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	out := sess.result.AcceptAll(floor)
	for _, tr := range out {
		s.metrics.RecordTransition(tr.Action)
	}
	logging.WithFields(ctx, clientFields(ctx)...).Info("bulk accept",
		"floor", floor.String(),
		"accepted", len(out),
	)
	return out, nil
}

func (s *Service) transition(ctx context.Context, id string, fn func(*bom.UploadResult, *bom.Catalog) (bom.Transition, error)) (bom.Transition, error) {
	sess, ctx, err := s.session(ctx, id)
	if err != nil {
		return bom.Transition{}, err
	}

	tr, err := fn(sess.result, sess.catalog)
	if err != nil {
		logging.FromContext(ctx).Debug("row transition refused", "error", err)
		return bom.Transition{}, err
	}

	s.metrics.RecordTransition(tr.Action)
	logging.WithFields(ctx, clientFields(ctx)...).Info("row transition",
		"row", tr.Row,
		"action", tr.Action,
		"from", string(tr.From),
		"to", string(tr.To),
	)
	return tr, nil
}

// clientFields returns the request origin recorded by ContextWithClient.
func clientFields(ctx context.Context) []any {
	var fields []any
	if ip := GetIPAddressFromContext(ctx); ip != "" {
		fields = append(fields, "ip", ip)
	}
	if ua := GetUserAgentFromContext(ctx); ua != "" {
		fields = append(fields, "user_agent", ua)
	}
	return fields
}
