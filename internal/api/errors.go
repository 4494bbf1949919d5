package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NetworkErrorPrefix starts the message of every status-0 RequestError.
const NetworkErrorPrefix = "Network error"

// RequestError is returned for non-2xx responses and for transport failures.
// Status is 0 when the server was never reached or the request timed out.
type RequestError struct {
	Message string
	Status  int
	Details map[string]any
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or -1 when err is not a RequestError.
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return -1
}

// MessageOf returns the human-readable message for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsColdStart reports whether err looks like a dormant backend waking up:
// no response at all, a gateway 503/504, or a timeout/refused/fetch failure message.
func IsColdStart(err error) bool {
	if err == nil {
		return false
	}
	switch StatusOf(err) {
	case 0, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	msg := MessageOf(err)
	return strings.Contains(strings.ToLower(msg), "timeout") ||
		strings.Contains(msg, "ECONNREFUSED") ||
		strings.Contains(msg, "fetch failed")
}

func networkError(ctx context.Context, timeout time.Duration, cause error) *RequestError {
	msg := NetworkErrorPrefix + ": unable to reach server"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s: request timeout after %v", NetworkErrorPrefix, timeout)
	}
	return &RequestError{Message: msg, Status: 0, Err: cause}
}

func responseError(resp *http.Response) *RequestError {
	details := map[string]any{}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)); err == nil && len(data) > 0 {
		if jsonErr := json.Unmarshal(data, &details); jsonErr != nil || details == nil {
			details = map[string]any{}
		}
	}
	return &RequestError{
		Message: errorMessage(details, resp.StatusCode),
		Status:  resp.StatusCode,
		Details: details,
	}
}

// errorMessage picks the server-provided message, FastAPI's "detail" first.
func errorMessage(details map[string]any, status int) string {
	for _, key := range []string{"detail", "message", "error"} {
		switch v := details[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok {
					if msg, ok := first["msg"].(string); ok && msg != "" {
						return msg
					}
				}
			}
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
