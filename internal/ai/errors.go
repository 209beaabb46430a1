package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error kinds returned by model invokers. Match them with errors.Is.
var (
	ErrAuthentication = errors.New("model provider rejected the credentials")
	ErrRateLimit      = errors.New("model provider rate limit exceeded")
	ErrTimeout        = errors.New("model call timed out")
	ErrNetwork        = errors.New("model provider unreachable")
	ErrUpstream       = errors.New("model provider returned an error")
)

// InvokeError is a classified failure of a single model call.
type InvokeError struct {
	Kind       error
	Provider   string
	StatusCode int
	Err        error
}

func (e *InvokeError) Error() string {
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *InvokeError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindForStatus maps a non-2xx HTTP status to an error kind.
func KindForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return ErrUpstream
	}
}

// Classify wraps err into an InvokeError. statusCode is zero when the
// provider did not answer. Errors that are already classified are returned as is.
func Classify(provider string, statusCode int, err error) error {
	if err == nil {
		return nil
	}

	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) {
		return err
	}

	return &InvokeError{
		Kind:       kindOf(statusCode, err),
		Provider:   provider,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Upstream reports a response that arrived but cannot be used.
func Upstream(provider, format string, args ...any) error {
	return &InvokeError{Kind: ErrUpstream, Provider: provider, Err: fmt.Errorf(format, args...)}
}

func kindOf(statusCode int, err error) error {
	if statusCode != 0 {
		return KindForStatus(statusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	}

	if errors.Is(err, context.Canceled) {
		return ErrNetwork
	}

	return ErrUpstream
}
