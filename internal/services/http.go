package services

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDoer is the subset of *http.Client the provider clients use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxErrorBody = 512

// StatusError classifies a non-2xx provider response. The first bytes of the
// body are kept in the message to aid debugging.
func StatusError(component, operation string, resp *http.Response) error {
	snippet := ""
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		snippet = strings.TrimSpace(string(data))
	}
	message := fmt.Sprintf("http %d", resp.StatusCode)
	if snippet != "" {
		message += ": " + snippet
	}
	code := resp.StatusCode
	switch {
	case code == http.StatusTooManyRequests:
		return Wrap(ErrRateLimited, component, operation, message, nil)
	case code == http.StatusRequestTimeout || code >= http.StatusInternalServerError:
		return Wrap(ErrTransient, component, operation, message, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Wrap(ErrConfiguration, component, operation, message+" (check the api key)", nil)
	case code == http.StatusNotFound:
		return Wrap(ErrNotFound, component, operation, message, nil)
	default:
		return Wrap(ErrTerminal, component, operation, message, nil)
	}
}

// RequestError wraps a transport failure. Network errors are transient.
func RequestError(component, operation string, err error) error {
	return Wrap(ErrTransient, component, operation, "request failed", err)
}
