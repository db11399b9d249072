package core

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBodyBytes bounds how much of a failed response body is kept for diagnostics.
const maxErrorBodyBytes = 512

// ProviderError is a non-success answer from an external provider.
type ProviderError struct {
	Provider   string `json:"provider"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// NewProviderError drains up to maxErrorBodyBytes of resp.Body into a ProviderError.
func NewProviderError(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
