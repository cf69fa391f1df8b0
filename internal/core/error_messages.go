package core

// error_messages.go maps technical errors to messages an operator uploading
// an export can act on. Each message carries a code to quote to support.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Too many imports in progress       ("too many imports")
//	IMP002 - Request was cancelled              ("context canceled")
//	IMP003 - Request timed out                  ("context deadline exceeded")
//	IMP004 - Building not found                 ("building not found")
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds the size limit       ("file too large")
//	FILE002 - Encoding could not be read        ("encoding error")
//	FILE003 - No file was selected              ("no file provided")
//	FILE004 - The uploaded file is empty        ("empty file")
//	FILE005 - Upload form could not be parsed   ("multipart")
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key                       ("duplicate key", "violates unique")
//	DB002 - Referenced record missing           ("foreign key")
//	DB003 - Database unreachable                ("connection refused")
//	DB004 - Connection interrupted              ("connection reset", "conn closed")
//	DB005 - Operation timed out                 ("timeout")
//	DB006 - Deadlock                            ("deadlock")
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests                 ("rate limit")
//
// Anything else maps to ERR000. Patterns are matched case-insensitively
// in order; the first match wins, so specific patterns come first.

import (
	"fmt"
	"strings"
)

// UserMessage is the user-facing rendition of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Import
	{"too many imports", UserMessage{"Another import is still running", "Wait a moment and try again", "IMP001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "IMP002"}},
	{"context deadline exceeded", UserMessage{"Import took too long", "Split the export into smaller files and retry", "IMP003"}},
	{"building not found", UserMessage{"Building not found", "Check the building id; it may not have been imported yet", "IMP004"}},

	// File
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the export into smaller files", "FILE001"}},
	{"encoding error", UserMessage{"File encoding could not be read", "Save the export as CSV UTF-8 and upload it again", "FILE002"}},
	{"no file provided", UserMessage{"No file was selected", "Select the AssetPlan CSV export to upload", "FILE003"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Upload an export with a header and at least one row", "FILE004"}},
	{"multipart", UserMessage{"The upload form could not be read", "Upload the file again using the import form", "FILE005"}},

	// Database
	{"duplicate key", UserMessage{"A record with this id already exists", "Re-run the import; buildings are replaced by id", "DB001"}},
	{"violates unique", UserMessage{"A record with this id already exists", "Re-run the import; buildings are replaced by id", "DB001"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Re-run the import so buildings are saved before units", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to the database", "Please try again in a few moments", "DB003"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB004"}},
	{"conn closed", UserMessage{"Database connection was interrupted", "Please try again", "DB004"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB006"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the user message for err, or ERR000 when no pattern
// matches. A nil error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message. Error returns
// the user message; Unwrap returns the original for logging and errors.Is.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }
func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError wraps err, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
