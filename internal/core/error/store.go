package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapStore maps storage errors to the unified AppError type with appropriate
// status codes. sql.ErrNoRows becomes a domain not-found; everything else is a
// storage failure the caller should not retry blindly.
func WrapStore(err error) *AppError {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return New(err, KindNotFound, http.StatusNotFound, "record not found")
	}

	return New(err, KindStore, http.StatusInternalServerError, StoreErrorMessage)
}
