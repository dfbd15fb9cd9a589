package server

import (
	"errors"
	"net/http"

	"github.com/serpwatch/serpwatch/internal/core/engine"
	"github.com/serpwatch/serpwatch/internal/core/provider"
	apperrors "github.com/serpwatch/serpwatch/internal/errors"
)

// HandleError central handler for all errors. Domain errors from the access
// layer are mapped to their envelope codes before the response is written.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, mapDomainError(err))
}

// mapDomainError translates typed access-layer errors into envelopes so the
// taxonomy reaches callers with the right status codes and retry hints.
func mapDomainError(err error) error {
	var quotaErr *engine.QuotaExhaustedError
	if errors.As(err, &quotaErr) {
		return apperrors.NewQuotaExhaustedError(quotaErr.Error(), quotaErr.NextResetAt)
	}

	var openErr *engine.CircuitOpenError
	if errors.As(err, &openErr) {
		return apperrors.NewCircuitOpenError(openErr.Error(), openErr.RetryAfter)
	}

	var authErr *engine.AuthUnavailableError
	if errors.As(err, &authErr) {
		return apperrors.NewAuthUnavailableError(authErr.Error())
	}

	var callErr *provider.CallError
	if errors.As(err, &callErr) {
		return apperrors.NewProviderError(callErr.Error())
	}

	return err
}
