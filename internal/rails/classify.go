package rails

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ClassifyHTTPStatus maps a provider HTTP response status onto the
// normalized taxonomy. 429/503/504 are transient; other 4xx are client
// rejections surfaced immediately; remaining 5xx are internal, whose
// retryability depends on the operation (see NewRailError).
func ClassifyHTTPStatus(provider string, op Operation, status int, message string) *RailError {
	var category ErrorCategory
	switch {
	case status == http.StatusTooManyRequests:
		category = ErrorRateLimited
	case status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		category = ErrorProviderOutage
	case status >= 500:
		category = ErrorInternal
	case status >= 400:
		category = ErrorProviderRejected
	default:
		category = ErrorInternal
	}
	if message == "" {
		message = fmt.Sprintf("http %d", status)
	}
	return NewRailError(category, provider, op, message, nil)
}

// WrapTransportError normalizes network-level failures: timeouts and
// connection resets never carry a provider verdict, so they are transient.
func WrapTransportError(provider string, op Operation, err error) *RailError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewRailError(ErrorTimeout, provider, op, "request deadline exceeded", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewRailError(ErrorTimeout, provider, op, "network timeout", err)
	default:
		return NewRailError(ErrorProviderOutage, provider, op, "transport failure", err)
	}
}
