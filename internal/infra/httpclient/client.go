package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// New returns an http.Client with a bounded per-request timeout so a stuck
// upstream cannot hold an invocation indefinitely.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
