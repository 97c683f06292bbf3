// Package results holds the asynchronous result-fetch controller: request
// supersession, error classification and the committed fetch status.
package results

import (
	"context"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/eveview/internal/backend"
)

// Kind is the closed taxonomy of fetch failures.
type Kind string

const (
	KindCancelled    Kind = "cancelled"
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindServerError  Kind = "server_error"
	KindValidation   Kind = "validation"
	KindUnknown      Kind = "unknown"
)

const (
	msgNetwork      = "Unable to reach the server. Check your connection and try again."
	msgUnauthorized = "Your session has expired. Please log in again."
	msgNotFound     = "No results found for the selected filters."
	msgServerError  = "The server encountered an error. Please try again later."
	msgUnknown      = "An unexpected error occurred. Please try again."
)

// ClassifiedError is a failure ready to be shown to the user.
type ClassifiedError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e ClassifiedError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Classify maps any failed outcome to exactly one Kind. The first matching rule wins.
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Kind: KindUnknown, Message: msgUnknown}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, backend.ErrCancelled) {
		return ClassifiedError{Kind: KindCancelled}
	}

	if errors.Is(err, backend.ErrUnreachable) || errors.Is(err, backend.ErrTimeout) {
		return ClassifiedError{Kind: KindNetwork, Message: msgNetwork}
	}

	var se *backend.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized:
			return ClassifiedError{Kind: KindUnauthorized, Message: msgUnauthorized}
		case se.StatusCode == http.StatusNotFound:
			return ClassifiedError{Kind: KindNotFound, Message: msgNotFound}
		case se.StatusCode >= 500 && se.StatusCode <= 599:
			return ClassifiedError{Kind: KindServerError, Message: msgServerError}
		case se.Message != "":
			return ClassifiedError{Kind: KindValidation, Message: se.Message}
		}
	}

	return ClassifiedError{Kind: KindUnknown, Message: msgUnknown}
}
