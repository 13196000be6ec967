package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// SQLiteErrorMessage describes SQLite related failures.
const SQLiteErrorMessage = "sqlite operation failed"

// WrapSQLite maps database/sql errors to the unified Error type.
func WrapSQLite(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, SQLiteErrorMessage)
	}
	return New(err, http.StatusBadGateway, SQLiteErrorMessage)
}
