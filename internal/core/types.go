package core

import (
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/config"
)

// Service errors. File and row errors come from package bom.
var (
	ErrSessionNotFound = errors.New("upload session not found or expired")
	ErrTooManySessions = errors.New("too many upload sessions")
	ErrUnknownProduct  = errors.New("unknown product")
	ErrNoFile          = errors.New("no file provided")
	ErrInvalidRequest  = errors.New("invalid request")
)

// MaxSuggestions caps the suggestion list regardless of the requested limit.
const MaxSuggestions = 50

// Options tunes the service.
type Options struct {
	MaxFileSize     int64
	MaxConcurrent   int
	MaxWaitTime     time.Duration
	SessionTTL      time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	SuggestionLimit int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:     bom.MaxFileSize,
		MaxConcurrent:   DefaultMaxConcurrentUploads,
		MaxWaitTime:     DefaultMaxWaitTime,
		SessionTTL:      2 * time.Hour,
		CleanupInterval: 5 * time.Minute,
		MaxSessions:     1000,
		SuggestionLimit: 5,
	}
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFileSize:     cfg.Upload.MaxFileSize,
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWaitTime:     cfg.Upload.MaxWaitTime,
		SessionTTL:      cfg.Upload.SessionTTL,
		CleanupInterval: cfg.Upload.CleanupInterval,
		MaxSessions:     cfg.Upload.MaxSessions,
		SuggestionLimit: cfg.Matching.SuggestionLimit,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxFileSize <= 0 || o.MaxFileSize > bom.MaxFileSize {
		o.MaxFileSize = d.MaxFileSize
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = d.MaxConcurrent
	}
	if o.MaxWaitTime <= 0 {
		o.MaxWaitTime = d.MaxWaitTime
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = d.SessionTTL
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = d.CleanupInterval
	}
	if o.MaxSessions <= 0 {
		o.MaxSessions = d.MaxSessions
	}
	if o.SuggestionLimit <= 0 {
		o.SuggestionLimit = d.SuggestionLimit
	}
	return o
}

// UploadRequest is one file handed to Service.Upload.
type UploadRequest struct {
	FileName string
	MimeType string
	// Size is the declared size, or 0 when unknown.
	Size int64
	Body io.Reader
}

// UploadSession is the handle returned for a processed upload.
type UploadSession struct {
	ID        string            `json:"sessionId"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Result    *bom.UploadResult `json:"result"`
}

// HealthStatus reports service load for the health endpoint.
type HealthStatus struct {
	Sessions int                 `json:"sessions"`
	Uploads  UploadLimiterStatus `json:"uploads"`
}
