package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// FetchError is a failed read (network error or non-2xx on GET). Consumers
// keep serving their last-known-good data when they see one of these.
type FetchError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: http %d: %s", e.Op, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError is a failed create/update/delete/action. The affected state is
// guaranteed unchanged on the client; the backend's own state is re-derived
// from the next refresh.
type WriteError struct {
	Op         string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *WriteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: http %d: %s", e.Op, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NewFetchError classifies a read failure. Exactly one of resp/err may be nil.
func NewFetchError(op, endpoint string, resp *resty.Response, err error) *FetchError {
	fe := &FetchError{Op: op, Endpoint: endpoint, Err: err}
	if resp != nil && resp.RawResponse != nil {
		fe.StatusCode = resp.StatusCode()
		fe.Message = backendMessage(resp)
	}
	return fe
}

// NewWriteError classifies a write failure. Exactly one of resp/err may be nil.
func NewWriteError(op, endpoint string, resp *resty.Response, err error) *WriteError {
	we := &WriteError{Op: op, Endpoint: endpoint, Err: err}
	if resp != nil && resp.RawResponse != nil {
		we.StatusCode = resp.StatusCode()
		we.Message = backendMessage(resp)
	}
	return we
}

// NewWriteErrorFromHTTP classifies a write failure observed on a raw
// net/http response (the streamed upload path). Exactly one of resp/err may
// be nil; the body, when read, is consumed up to a small limit.
func NewWriteErrorFromHTTP(op, endpoint string, resp *http.Response, err error) *WriteError {
	we := &WriteError{Op: op, Endpoint: endpoint, Err: err}
	if resp != nil {
		we.StatusCode = resp.StatusCode
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		we.Message = messageFromBody(body, resp.Status)
	}
	return we
}

// backendMessage extracts the human-readable message from an error response.
// The status API uses {"error": ...} for most failures and {"message": ...}
// for a few; fall back to the status line.
func backendMessage(resp *resty.Response) string {
	return messageFromBody(resp.Body(), resp.Status())
}

func messageFromBody(body []byte, fallback string) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return fallback
}
