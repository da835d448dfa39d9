package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/logging"
	"github.com/JonMunkholm/bomquote/internal/metrics"
)

// Upload reads one BOM file, runs it through the engine against the current
// catalog snapshot and opens a session for the result.
//
// File-level problems (size, type, empty, unreadable workbook) fail the
// upload with the bom sentinel error; row problems are reported inside the
// result. At most Options.MaxConcurrent uploads are processed at once.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadSession, error) {
	start := s.now()
	logger := logging.WithFields(ctx,
		"file", req.FileName,
		"mime", req.MimeType,
		"size", req.Size,
	)

	var out *UploadSession
	err := s.validateRequest(req)
	if err == nil {
		err = s.limiter.Run(ctx, func() error {
			var runErr error
			out, runErr = s.process(ctx, req)
			return runErr
		})
	}
	duration := s.now().Sub(start)

	if err != nil {
		outcome := uploadOutcome(err)
		s.metrics.RecordUpload(outcome, duration, bom.Stats{})
		if outcome == metrics.OutcomeError {
			logger.Error("upload failed", "error", err)
		} else {
			logger.Warn("upload rejected", "outcome", outcome, "error", err)
		}
		return nil, err
	}

	stats := out.Result.Stats()
	s.metrics.RecordUpload(metrics.OutcomeOK, duration, stats)
	logger.Info("upload processed",
		"session_id", out.ID,
		"rows", stats.Rows,
		"row_errors", stats.ParseErrors,
		"high", stats.Tiers.High,
		"medium", stats.Tiers.Medium,
		"low", stats.Tiers.Low,
		"unmatched", stats.Tiers.None,
		"header_warning", out.Result.HeaderWarning != "",
		"duration_ms", duration.Milliseconds(),
	)
	return out, nil
}

// validateRequest rejects what can be decided before taking a slot.
func (s *Service) validateRequest(req UploadRequest) error {
	if req.Body == nil {
		return ErrNoFile
	}
	if req.Size > s.opts.MaxFileSize {
		return fmt.Errorf("%w: %d bytes, limit %d", bom.ErrFileTooLarge, req.Size, s.opts.MaxFileSize)
	}
	if !bom.AcceptedMimeType(req.MimeType) {
		return fmt.Errorf("%w: %q", bom.ErrUnsupportedType, req.MimeType)
	}
	return nil
}

func (s *Service) process(ctx context.Context, req UploadRequest) (*UploadSession, error) {
	data, err := ReadUpload(req.Body, s.opts.MaxFileSize, req.Size)
	if err != nil {
		return nil, err
	}

	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.ProcessIndexed(req.FileName, data, req.MimeType, cat)
	if err != nil {
		return nil, err
	}
	return s.store(res, cat)
}

// fileErrors are the errors caused by the uploaded file itself.
var fileErrors = []error{
	ErrNoFile,
	bom.ErrFileTooLarge,
	bom.ErrUnsupportedType,
	bom.ErrEmptyFile,
	bom.ErrLegacyWorkbook,
	bom.ErrUnreadableWorkbook,
}

func uploadOutcome(err error) string {
	if errors.Is(err, ErrTooManyUploads) || errors.Is(err, ErrTooManySessions) {
		return metrics.OutcomeBusy
	}
	for _, target := range fileErrors {
		if errors.Is(err, target) {
			return metrics.OutcomeRejected
		}
	}
	return metrics.OutcomeError
}
