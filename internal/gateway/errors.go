package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes request failures.
type ErrorCode string

const (
	// ErrCodeRequestFailed covers transport errors and non-2xx statuses.
	ErrCodeRequestFailed ErrorCode = "REQUEST_FAILED"

	// ErrCodeUnauthorized is a 401 that persisted after the one refresh.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// APIError is one entry of the remote error payload, kept verbatim.
type APIError struct {
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
}

// RequestError reports a failed call.
type RequestError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Method and Path identify the call.
	Method string
	Path   string

	// Status is the HTTP status, or 0 for transport errors.
	Status int

	// APIErrors is the parsed remote error payload, if any.
	APIErrors []APIError

	// Body is the raw response body.
	Body []byte

	// Err is the transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s %s", e.Code, e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&sb, ": status %d", e.Status)
	}
	for _, ae := range e.APIErrors {
		fmt.Fprintf(&sb, ": %s: %s", ae.ErrorCode, ae.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap returns the transport error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// HasAPIErrorCode reports whether the remote payload carries code.
func (e *RequestError) HasAPIErrorCode(code string) bool {
	for _, ae := range e.APIErrors {
		if ae.ErrorCode == code {
			return true
		}
	}
	return false
}

// IsRequestFailed returns true for any RequestError, including a
// persistent 401.
func IsRequestFailed(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// IsUnauthorized returns true if err is a 401 that persisted after refresh.
func IsUnauthorized(err error) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnauthorized
	}
	return false
}

// HasAPIErrorCode returns true if err is a RequestError whose remote payload
// carries code.
func HasAPIErrorCode(err error, code string) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.HasAPIErrorCode(code)
	}
	return false
}

// parseAPIErrors reads the remote error payload: normally an array of
// {errorCode, message}, occasionally a single object.
func parseAPIErrors(body []byte) []APIError {
	if len(body) == 0 {
		return nil
	}
	var list []APIError
	if err := json.Unmarshal(body, &list); err == nil {
		return nonEmpty(list)
	}
	var single APIError
	if err := json.Unmarshal(body, &single); err == nil {
		return nonEmpty([]APIError{single})
	}
	return nil
}

func nonEmpty(list []APIError) []APIError {
	var out []APIError
	for _, ae := range list {
		if ae.ErrorCode != "" || ae.Message != "" {
			out = append(out, ae)
		}
	}
	return out
}
