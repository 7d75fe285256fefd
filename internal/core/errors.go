package core

// # Error Codes Reference
//
// Every failed pipeline run is mapped to a code that is returned in the
// X-Error-Code header and written to the log, so operators can tell "no data
// published" from "NEMweb is down" without reading the body.
//
//	NEMWEB001 - No archives: the listing had no archive links
//	NEMWEB002 - Upstream unreachable: network failure talking to NEMweb
//	NEMWEB003 - Upstream status: NEMweb answered with a non-2xx status
//	NEMWEB004 - Upstream timeout: NEMweb did not answer in time
//	NEMWEB005 - Content type: the archive was not served as a zip
//	NEMWEB006 - Archive too large: the archive exceeded the size limit
//	NEMWEB007 - Empty archive: the zip had no entries
//	NEMWEB008 - Corrupt archive: the zip could not be opened
//	NEMWEB009 - Invalid CSV: the first entry is not readable CSV
//	NEMWEB010 - Cancelled: the client went away mid-run
//	ERR000    - Unknown error: check the log for the technical error
//
// Errors are matched with errors.Is first. Errors that lost their chain
// (plain strings from third-party code) fall back to case-insensitive
// substring patterns. The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/nemfeed/internal/nemweb"
	"github.com/JonMunkholm/nemfeed/internal/table"
)

// ErrNoArchives is returned when the listing holds no archive links.
var ErrNoArchives = errors.New("no archives listed")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is ordered: timeouts before generic upstream failures, and
// StatusError before ErrUpstream since a StatusError is also an ErrUpstream.
var errorKinds = []errorKind{
	{ErrNoArchives, UserMessage{
		Message: "No forecast archives are listed",
		Action:  "NEMweb may be between publications; try again shortly",
		Code:    "NEMWEB001",
	}},
	{nemweb.ErrTimeout, timeoutMessage},
	{context.DeadlineExceeded, timeoutMessage},
	{context.Canceled, cancelledMessage},
	{nemweb.ErrUnexpectedContentType, UserMessage{
		Message: "The archive was not served as a zip file",
		Action:  "Check UPSTREAM_CONTENT_TYPES against what NEMweb sends",
		Code:    "NEMWEB005",
	}},
	{nemweb.ErrArchiveTooLarge, UserMessage{
		Message: "The archive exceeds the size limit",
		Action:  "Raise UPSTREAM_MAX_ARCHIVE_BYTES if the archive is legitimate",
		Code:    "NEMWEB006",
	}},
	{nemweb.ErrEmptyArchive, UserMessage{
		Message: "The archive contains no files",
		Action:  "Try again after the next publication",
		Code:    "NEMWEB007",
	}},
	{nemweb.ErrMalformedArchive, corruptMessage},
	{table.ErrMalformed, UserMessage{
		Message: "The archived file is not valid CSV",
		Action:  "Check UPSTREAM_LAYOUT matches the report format",
		Code:    "NEMWEB009",
	}},
}

var (
	timeoutMessage = UserMessage{
		Message: "NEMweb did not respond in time",
		Action:  "Try again later",
		Code:    "NEMWEB004",
	}
	cancelledMessage = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "NEMWEB010",
	}
	corruptMessage = UserMessage{
		Message: "The archive is corrupt",
		Action:  "Try again after the next publication",
		Code:    "NEMWEB008",
	}
)

var statusMessage = UserMessage{
	Message: "NEMweb returned an error status",
	Action:  "Check UPSTREAM_LISTING_URL, or try again later",
	Code:    "NEMWEB003",
}

var upstreamMessage = UserMessage{
	Message: "Unable to reach NEMweb",
	Action:  "Please try again in a few moments",
	Code:    "NEMWEB002",
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors whose chain was flattened into a string.
var errorPatterns = []errorPattern{
	{"timeout", timeoutMessage},
	{"deadline exceeded", timeoutMessage},
	{"context canceled", cancelledMessage},
	{"connection refused", upstreamMessage},
	{"connection reset", upstreamMessage},
	{"no such host", upstreamMessage},
	{"zip: not a valid zip file", corruptMessage},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
//
// Example:
//
//	msg := MapError(fmt.Errorf("listing: %w", ErrNoArchives))
//	// msg.Code == "NEMWEB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	var se *nemweb.StatusError
	if errors.As(err, &se) {
		return statusMessage
	}
	if errors.Is(err, nemweb.ErrUpstream) {
		return upstreamMessage
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
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

// IsTimeout reports whether err maps to the timeout code.
func IsTimeout(err error) bool {
	return MapError(err).Code == timeoutMessage.Code
}
