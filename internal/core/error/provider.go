package errx

import (
	"context"
	"errors"
	"net/http"
)

// WrapProvider maps model backend errors to the unified AppError type.
// Deadline and cancellation errors become provider timeouts so the caller can
// distinguish "the model was too slow" from "the model misbehaved".
func WrapProvider(err error) *AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(err, KindProviderTimeout, http.StatusGatewayTimeout, ProviderTimeoutMessage)
	}

	return New(err, KindProviderError, http.StatusBadGateway, ProviderErrorMessage)
}
