package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/webedmilson/bancoCred/internal/apierror"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"

	constraintAccountNumber = "accounts_number_key"
	constraintUserEmail     = "users_email_key"
	constraintUserCPF       = "users_cpf_key"
)

// ErrAccountNumberTaken is returned when a generated account number collides
// with an existing one. Callers draw a new number and try again.
var ErrAccountNumberTaken = errors.New("account number already in use")

// storeError wraps err with context and maps it onto the error taxonomy.
// Unique violations become CONFLICT, missing rows NOT_FOUND, everything else
// STORE_FAILURE.
func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound, msg+": not found", nil)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		switch pqErr.Constraint {
		case constraintAccountNumber:
			return ErrAccountNumberTaken
		case constraintUserEmail:
			return apierror.NewAPIError(apierror.ErrConflict, "a user with this email already exists", nil)
		case constraintUserCPF:
			return apierror.NewAPIError(apierror.ErrConflict, "a user with this CPF already exists", nil)
		}
		return apierror.NewAPIError(apierror.ErrConflict, msg+": duplicate record", pkgerrors.Wrap(err, msg))
	}
	if errors.As(err, &pqErr) && string(pqErr.Code) == checkViolation {
		return apierror.NewAPIError(apierror.ErrStoreFailure, msg+": constraint "+pqErr.Constraint+" violated", pkgerrors.Wrap(err, msg))
	}

	return apierror.NewAPIError(apierror.ErrStoreFailure, msg, pkgerrors.Wrap(err, msg))
}
