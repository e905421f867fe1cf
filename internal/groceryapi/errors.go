package groceryapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Defaults for fields the server did not supply.
const (
	DefaultErrorCode = "INTERNAL_SERVER_ERROR"
	DefaultMessage   = "Something went wrong on our end."
	DefaultDetails   = "No additional details provided."
	StatusError      = "error"
)

// APIError is the single error shape returned by every Client call, whether
// the server answered with a structured body or the request never completed.
type APIError struct {
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Status     string `json:"status"`
	HTTPStatus int    `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return e.Message
	}
	return e.ErrorCode + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError returns a fully populated error. Any empty field of partial is
// replaced by its default; partial may be nil.
func NewAPIError(partial *APIError) *APIError {
	e := APIError{}
	if partial != nil {
		e = *partial
	}
	if strings.TrimSpace(e.ErrorCode) == "" {
		e.ErrorCode = DefaultErrorCode
	}
	if strings.TrimSpace(e.Message) == "" {
		e.Message = DefaultMessage
	}
	if strings.TrimSpace(e.Details) == "" {
		e.Details = DefaultDetails
	}
	e.Status = StatusError
	return &e
}

// errorBody is the wire shape of a server error. The backend has emitted both
// "details" and "detail", and details may be a string or a field->messages map.
type errorBody struct {
	ErrorCode string          `json:"error_code"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details"`
	Detail    json.RawMessage `json:"detail"`
}

// parseErrorBody normalizes a non-2xx response body. Bodies that are empty or
// not a JSON object yield the defaults.
func parseErrorBody(httpStatus int, body []byte) *APIError {
	partial := &APIError{HTTPStatus: httpStatus}

	var eb errorBody
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &eb) != nil {
		return NewAPIError(partial)
	}

	partial.ErrorCode = eb.ErrorCode
	if partial.ErrorCode == "" {
		partial.ErrorCode = eb.Code
	}
	partial.Message = eb.Message
	partial.Details = rawText(eb.Details)
	if partial.Details == "" {
		partial.Details = rawText(eb.Detail)
	}
	return NewAPIError(partial)
}

func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// transportError wraps a failure that produced no response body.
func transportError(cause error) *APIError {
	e := NewAPIError(nil)
	e.cause = cause
	return e
}
