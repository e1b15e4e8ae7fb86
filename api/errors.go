package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
)

const genericMessage = "request failed"

// Keys of an error body that carry a single human-readable message,
// in order of preference.
var messageKeys = []string{"detail", "message", "error"}

const nonFieldErrorsKey = "non_field_errors"

// HTTPError is a 4xx/5xx response from the API.
type HTTPError struct {
	Status  int                 // HTTP status code
	Message string              // Server-provided detail, or a generic text when Generic is set
	Fields  map[string][]string // Field-level validation messages, if the body was a field map
	Generic bool                // True when the server supplied no usable message
	Method  string              // Request method
	Path    string              // Request path relative to the base URL, including any query
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Is lets callers classify the failure with errors.Is against the shared
// sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case apperrors.ErrServer:
		return true
	case apperrors.ErrValidation:
		return len(e.Fields) > 0
	case apperrors.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// NetworkError means no response was received.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == apperrors.ErrNetwork
}

// Message returns the text a slice stores in its error field: the server's
// own message when it sent one, otherwise fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if apperrors.As(err, &httpErr) && !httpErr.Generic {
		return httpErr.Message
	}
	return fallback
}

// FlattenFields renders field errors as "field: message; field: message"
// with fields in sorted order.
func FlattenFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(fields[name], " "))
	}
	return strings.Join(parts, "; ")
}

func parseHTTPError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{Status: status}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range messageKeys {
			if msg := decodeString(obj[key]); msg != "" {
				httpErr.Message = msg
				break
			}
		}
		if httpErr.Message == "" {
			if nonField := decodeStrings(obj[nonFieldErrorsKey]); len(nonField) > 0 {
				httpErr.Message = nonField[0]
			}
		}
		httpErr.Fields = fieldErrors(obj)
	}

	if httpErr.Message == "" && len(httpErr.Fields) > 0 {
		httpErr.Message = FlattenFields(httpErr.Fields)
	}
	if httpErr.Message == "" {
		httpErr.Generic = true
		httpErr.Message = http.StatusText(status)
		if httpErr.Message == "" {
			httpErr.Message = genericMessage
		}
	}
	return httpErr
}

// fieldErrors picks out keys whose value is a string or list of strings,
// the shape of a DRF serializer error.
func fieldErrors(obj map[string]json.RawMessage) map[string][]string {
	var fields map[string][]string
	for key, raw := range obj {
		if key == nonFieldErrorsKey || key == "code" || contains(messageKeys, key) {
			continue
		}
		msgs := decodeStrings(raw)
		if len(msgs) == 0 {
			continue
		}
		if fields == nil {
			fields = make(map[string][]string)
		}
		fields[key] = msgs
	}
	return fields
}

func decodeString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func decodeStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s := decodeString(raw); s != "" {
		return []string{s}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
