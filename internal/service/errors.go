package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failure reported by a remote service.
// Backends convert their SDK errors into it so callers can branch on Code.
type APIError struct {
	Service string // "notion" or "calendar"
	Code    int    // HTTP status
	Reason  string // service-specific error code, if any
	Message string
	Body    string // raw response payload, if any
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Service, e.Code, e.Reason, msg)
	}
	return fmt.Sprintf("%s: %d: %s", e.Service, e.Code, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from a remote service.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound)
}

// IsGone reports whether err is a 410 from a remote service.
func IsGone(err error) bool {
	return hasCode(err, http.StatusGone)
}

func hasCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Details returns the structured payload carried by err, or "".
func Details(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

// SchemaError reports a record lacking required properties.
type SchemaError struct {
	RecordID string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("record %s is missing required properties: %s", e.RecordID, strings.Join(e.Missing, ", "))
}

// ErrNoDataSource is returned when a collection exposes no queryable data source.
var ErrNoDataSource = errors.New("no data source")

// ConfigurationError reports a collection that cannot be synced at all.
type ConfigurationError struct {
	CollectionID string
	Err          error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("collection %s: %v", e.CollectionID, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
