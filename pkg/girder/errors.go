package girder

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx response. Message is Girder's "message" field when
// the body carries one, otherwise the raw body.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s /%s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{Method: method, Path: strings.TrimLeft(path, "/"), StatusCode: status, Message: msg}
}

// HasStatus reports whether err is an HTTPError with one of the codes.
func HasStatus(err error, codes ...int) bool {
	var herr *HTTPError
	if !errors.As(err, &herr) {
		return false
	}
	for _, c := range codes {
		if herr.StatusCode == c {
			return true
		}
	}
	return false
}
