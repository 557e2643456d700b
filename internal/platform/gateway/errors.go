package gateway

import (
	"errors"
	"fmt"

	"github.com/fatflowers/payportal/pkg/types"
)

var (
	// ErrNotImplemented marks an adapter that lacks an endpoint or mapping a flow needs.
	ErrNotImplemented = errors.New("not implemented")
	// ErrAlreadyRegistered is returned when a backend key is registered twice.
	ErrAlreadyRegistered = errors.New("backend already registered")
	// ErrNotRegistered is returned when a backend key is unknown to the registry.
	ErrNotRegistered = errors.New("backend not registered")
	// ErrGatewayUnavailable wraps transport failures (timeouts, refused connections, ...).
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrInvalidCallbackURL is returned before any allocation or network call.
	ErrInvalidCallbackURL = errors.New("callback URL is incorrect")
	// ErrInvalidFlag is returned when a request flag fails validation.
	ErrInvalidFlag = errors.New("invalid request flag")
	// ErrMalformedResponse is returned when a gateway payload cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed gateway response")
)

// PaymentError is a failed payment operation carrying the offending code/status pair.
type PaymentError struct {
	Code   string
	Status types.Status
	Detail string
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("an error occurred while processing your transaction (%s, %s)", e.Code, e.Status)
}

func (e *PaymentError) Unwrap() error { return e.Err }

// HardFailure builds the error raised when the gateway answers with a hard-failure status.
func HardFailure(code string, status types.Status) *PaymentError {
	return &PaymentError{Code: code, Status: status, Detail: status.FailMessage()}
}

// NotOK builds the error raised when the gateway could not be reached or answered non-2xx.
func NotOK(resp *Response, err error) *PaymentError {
	if err != nil {
		return &PaymentError{Code: "transport", Err: err}
	}
	code := "no_response"
	if resp != nil {
		code = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return &PaymentError{Code: code, Err: ErrGatewayUnavailable}
}
