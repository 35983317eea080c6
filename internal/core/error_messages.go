// Package core provides the business logic for spreadsheet import operations.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Typed errors are matched first (errors.As / errors.Is); anything else falls
// back to case-insensitive pattern matching on the error text.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	FILE002 - Invalid format: File is not a readable XLSX or CSV workbook
//	FILE003 - Encoding error: File contains invalid characters
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The workbook has no sheets, rows, or data rows
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Header mismatch: Unknown, missing, or duplicate columns
//	         Action: Download the template and match its header row exactly
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Commit blocked: Some rows failed validation under a strict policy
//	IMP002 - Unknown import: Import type is not configured
//	IMP003 - Batch not found: No committed batch with this id
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	DB003 - Foreign key: Referenced record does not exist
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//	DB008 - Persistence failure: Commit was rolled back
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many imports in progress
//	UPL004 - Request cancelled: Request was cancelled
//	UPL005 - Request timeout: Request timed out
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check
// application logs for the original technical error.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgCommitBlocked = UserMessage{
		Message: "Commit blocked: some rows failed validation",
		Action:  "Fix the rows marked FAIL in the preview and upload the file again",
		Code:    "IMP001",
	}
	msgUnknownImport = UserMessage{
		Message: "Unknown import type",
		Action:  "Choose one of the configured import types",
		Code:    "IMP002",
	}
	msgBatchNotFound = UserMessage{
		Message: "Import batch not found",
		Action:  "Check the batch id from the commit result",
		Code:    "IMP003",
	}
	msgSchema = UserMessage{
		Message: "The header row does not match the expected columns",
		Action:  "Download the template and match its header row exactly",
		Code:    "SCH001",
	}
	msgBadFormat = UserMessage{
		Message: "File is not a readable spreadsheet",
		Action:  "Upload an .xlsx workbook or a UTF-8 .csv file",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file has no data",
		Action:  "Add data rows below the header and upload again",
		Code:    "FILE005",
	}
	msgPersistence = UserMessage{
		Message: "The import could not be saved; nothing was written",
		Action:  "Please try again or contact support",
		Code:    "DB008",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL005",
	}
)

// errorPatterns is consulted, in order, for errors that are not one of the
// typed import errors. Matching is case-insensitive on the error text.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{Message: "A record with this key already exists", Action: "Preview the file again to see which rows are duplicates", Code: "DB001"}},
	{"violates foreign key", UserMessage{Message: "Referenced record does not exist", Action: "Import vessels and cadets before their assignments", Code: "DB003"}},
	{"connection refused", UserMessage{Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB004"}},
	{"connection reset", UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB005"}},
	{"deadline exceeded", msgDeadline},
	{"timeout", UserMessage{Message: "Operation timed out", Action: "Try a smaller file or try again later", Code: "DB006"}},
	{"deadlock", UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"}},
	{"file too large", UserMessage{Message: "File exceeds the maximum upload size", Action: "Split the file into smaller workbooks", Code: "FILE001"}},
	{"encoding error", UserMessage{Message: "File contains invalid characters", Action: "Save the file as UTF-8", Code: "FILE003"}},
	{"no file provided", UserMessage{Message: "No file was selected", Action: "Please select a spreadsheet to upload", Code: "FILE004"}},
	{"too many imports", msgBusy},
	{"context canceled", msgCancelled},
	{"rate limit", UserMessage{Message: "Too many requests", Action: "Please wait a moment before trying again", Code: "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&SchemaError{ImportType: "cadets", Missing: []string{"email"}})
//	// msg.Code == "SCH001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		fileErr    *FileFormatError
		schemaErr  *SchemaError
		abortErr   *CommitAbortedError
		persistErr *PersistenceError
	)
	switch {
	case errors.As(err, &schemaErr):
		return msgSchema
	case errors.As(err, &fileErr):
		if errors.Is(fileErr, ErrEmptyWorkbook) {
			return msgEmptyFile
		}
		return msgBadFormat
	case errors.As(err, &abortErr):
		return msgCommitBlocked
	case errors.Is(err, ErrUnknownImport):
		return msgUnknownImport
	case errors.Is(err, ErrBatchNotFound):
		return msgBatchNotFound
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, context.DeadlineExceeded):
		return msgDeadline
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.As(err, &persistErr):
		if m, ok := matchPattern(persistErr.Err); ok {
			return m
		}
		return msgPersistence
	}

	if m, ok := matchPattern(err); ok {
		return m
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	if err == nil {
		return UserMessage{}, false
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
