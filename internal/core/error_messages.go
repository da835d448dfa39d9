package core

// error_messages.go maps technical errors to user-facing messages with codes
// for support reference. Users can quote the code to support staff.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the upload exceeds the size limit (10 MiB)
//	FILE002 - Unsupported type: only CSV and XLSX are accepted
//	FILE003 - Empty file: nothing but a header or whitespace
//	FILE004 - No file: the multipart form carried no "file" field
//	FILE005 - Legacy workbook: binary .xls must be re-saved as .xlsx
//	FILE006 - Unreadable workbook: the XLSX archive is corrupt
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: unknown or expired upload session
//	SES002 - Too many sessions: the server holds its session limit
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Row not found: no row with that index in the upload
//	ROW002 - Row deleted: deleted rows accept no further actions
//	ROW003 - Not matched: the row has no product to accept or reject
//	ROW004 - Invalid transition: e.g. rejecting a manually mapped row
//	ROW005 - Missing product: a mapping needs a product id
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Catalog unavailable: the product catalog could not be loaded
//	CAT002 - Unknown product: the product id is not in the catalog
//
// # Upload and Request Errors
//
//	UPL002 - System busy: every upload slot is taken
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//	REQ001 - Invalid request: malformed parameters or body
//	RATE001 - Too many requests
//
// Sentinel errors are matched with errors.Is first; the text patterns catch
// errors that reach the service without a sentinel.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/catalog"
)

// UserMessage is what a user sees for an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		target: bom.ErrFileTooLarge,
		msg: UserMessage{
			Message: "File exceeds maximum size limit (10 MiB)",
			Action:  "Split the bill of materials into smaller files",
			Code:    "FILE001",
		},
	},
	{
		target: bom.ErrUnsupportedType,
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload a CSV or XLSX file",
			Code:    "FILE002",
		},
	},
	{
		target: bom.ErrEmptyFile,
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Download the template and fill in at least one row",
			Code:    "FILE003",
		},
	},
	{
		target:  ErrNoFile,
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or XLSX file to upload",
			Code:    "FILE004",
		},
	},
	{
		target: bom.ErrLegacyWorkbook,
		msg: UserMessage{
			Message: "Legacy Excel files (.xls) are not supported",
			Action:  "Save the file as .xlsx or .csv and upload it again",
			Code:    "FILE005",
		},
	},
	{
		target: bom.ErrUnreadableWorkbook,
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Open the file in Excel, save it again and retry",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		target: ErrSessionNotFound,
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The upload may have expired. Please upload the file again",
			Code:    "SES001",
		},
	},
	{
		target: ErrTooManySessions,
		msg: UserMessage{
			Message: "Too many open uploads",
			Action:  "Please try again in a few minutes",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Row Errors (ROW001-ROW005)
	// =========================================================================
	{
		target: bom.ErrRowNotFound,
		msg: UserMessage{
			Message: "Row not found",
			Action:  "Refresh the results and try again",
			Code:    "ROW001",
		},
	},
	{
		target: bom.ErrRowDeleted,
		msg: UserMessage{
			Message: "This row has been deleted",
			Action:  "Upload the file again to restore deleted rows",
			Code:    "ROW002",
		},
	},
	{
		target: bom.ErrNotMatched,
		msg: UserMessage{
			Message: "This row has no matched product",
			Action:  "Choose a product from the suggestions first",
			Code:    "ROW003",
		},
	},
	{
		target: bom.ErrInvalidTransition,
		msg: UserMessage{
			Message: "This action is not allowed for the row",
			Action:  "Map the row to a different product instead",
			Code:    "ROW004",
		},
	},
	{
		target: bom.ErrEmptyProductID,
		msg: UserMessage{
			Message: "No product was selected",
			Action:  "Select a product to map the row to",
			Code:    "ROW005",
		},
	},

	// =========================================================================
	// Catalog Errors (CAT001-CAT002)
	// =========================================================================
	{
		target: catalog.ErrUnavailable,
		msg: UserMessage{
			Message: "The product catalog is temporarily unavailable",
			Action:  "Please try again in a few moments",
			Code:    "CAT001",
		},
	},
	{
		target: ErrUnknownProduct,
		msg: UserMessage{
			Message: "Product not found in the catalog",
			Action:  "Pick a product from the suggestions list",
			Code:    "CAT002",
		},
	},

	// =========================================================================
	// Upload and Request Errors
	// =========================================================================
	{
		target:  ErrTooManyUploads,
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},
	{
		target: ErrInvalidRequest,
		msg: UserMessage{
			Message: "The request is invalid",
			Action:  "Check the request parameters and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error into a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ep := range errorPatterns {
		if ep.target != nil && errors.Is(err, ep.target) {
			return ep.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.pattern != "" && strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders MapError as a single line.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err with its mapped message.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
