package httpx

import (
	"net/http"
	"time"
)

const DefaultTimeout = 90 * time.Second

// Timeout converts a configured number of seconds; zero or less means the default.
func Timeout(seconds int) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return DefaultTimeout
}

// NewClient returns the client used for calls to Slack and Anthropic.
func NewClient(timeoutSeconds int) *http.Client {
	return &http.Client{Timeout: Timeout(timeoutSeconds)}
}
