package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// The error kinds an operation may fail with; match them using errors.Is
var (
	ErrAuth         = errors.New("invalid credentials")
	ErrUnauthorized = errors.New("not authenticated")
	ErrForbidden    = errors.New("not permitted")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid submission")
	ErrRequest      = errors.New("request failed")
)

// The kinds each group of operations may surface; any other non-success status becomes ErrRequest
var (
	taxonomyList   = []error{ErrUnauthorized}
	taxonomySubmit = []error{ErrUnauthorized, ErrForbidden, ErrValidation}
	taxonomyLookup = []error{ErrUnauthorized, ErrForbidden, ErrNotFound}
)

// detailNotAuthenticated is the detail message the backend sends when no or an unusable bearer token was presented
const detailNotAuthenticated = "Not authenticated"

// Error represents a failed backend operation
type Error struct {
	// Kind is one of the ErrX sentinels of this package
	Kind error

	// Status is the HTTP status code the backend responded with; 0 if no response was received
	Status int

	// Message is the human-readable message to show to the user
	Message string

	// Cause is the underlying transport error, if any
	Cause error
}

func (err *Error) Error() string {
	return err.Message
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (err *Error) Unwrap() []error {
	if err.Cause == nil {
		return []error{err.Kind}
	}
	return []error{err.Kind, err.Cause}
}

// Message returns the message to show to the user for any error returned by the client
func Message(err error) string {
	if err == nil {
		return ""
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Message
	}
	return err.Error()
}

func statusMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func requestError(err error) *Error {
	return &Error{
		Kind:    ErrRequest,
		Message: "Could not reach the ticketing service.",
		Cause:   err,
	}
}

// classify builds the error for a non-success response
func classify(status int, body []byte, taxonomy []error) *Error {
	detail := parseDetail(body)

	kind := ErrRequest
	switch {
	case status == http.StatusUnauthorized || strings.EqualFold(detail, detailNotAuthenticated):
		kind = ErrUnauthorized
	case status == http.StatusForbidden:
		kind = ErrForbidden
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusUnprocessableEntity:
		kind = ErrValidation
	}
	if !slices.Contains(taxonomy, kind) {
		kind = ErrRequest
	}

	message := detail
	if message == "" {
		message = statusMessage(status)
	}
	return &Error{
		Kind:    kind,
		Status:  status,
		Message: message,
	}
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail extracts the 'detail' field of an error body.
// The field is either a plain string or a list of validation issues. Absent or unparseable bodies yield "".
func parseDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(parsed.Detail, &text); err == nil {
		return text
	}

	var issues []validationIssue
	if err := json.Unmarshal(parsed.Detail, &issues); err == nil {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			if field := issueField(issue.Loc); field != "" {
				parts = append(parts, field+": "+issue.Msg)
			} else {
				parts = append(parts, issue.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(parsed.Detail)
}

// issueField turns a location like ["body", "priority"] into "priority"
func issueField(loc []any) string {
	if len(loc) > 1 {
		if first, ok := loc[0].(string); ok && (first == "body" || first == "query" || first == "path") {
			loc = loc[1:]
		}
	}
	parts := make([]string, 0, len(loc))
	for _, elem := range loc {
		parts = append(parts, fmt.Sprint(elem))
	}
	return strings.Join(parts, ".")
}
