// Package netx holds HTTP helpers shared by the HashDrive API client.
package netx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error body is read.
const maxErrorBody = 64 << 10

// HTTPError is a non-2xx response with its decoded detail.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// ReadError consumes resp.Body and returns it as an HTTPError. The content
// type is not trusted: error bodies labelled as binary are read as text too.
func ReadError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{StatusCode: resp.StatusCode, Detail: Detail(body)}
}

// Detail extracts "detail" from a JSON error envelope and falls back to the
// trimmed text of body.
func Detail(body []byte) string {
	var envelope struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != nil {
		switch d := envelope.Detail.(type) {
		case string:
			return d
		default:
			b, _ := json.Marshal(d)
			return string(b)
		}
	}
	return strings.TrimSpace(string(body))
}
