package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/webedmilson/bancoCred/internal/apierror"
)

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apierror.ErrorCode
	}{
		{"no rows", sql.ErrNoRows, apierror.ErrNotFound},
		{"duplicate email", &pq.Error{Code: "23505", Constraint: "users_email_key"}, apierror.ErrConflict},
		{"duplicate cpf", &pq.Error{Code: "23505", Constraint: "users_cpf_key"}, apierror.ErrConflict},
		{"other unique", &pq.Error{Code: "23505", Constraint: "transactions_transaction_id_key"}, apierror.ErrConflict},
		{"check violation", &pq.Error{Code: "23514", Constraint: "accounts_balances_non_negative"}, apierror.ErrStoreFailure},
		{"driver error", errors.New("broken pipe"), apierror.ErrStoreFailure},
		{"already classified", apierror.NewAPIError(apierror.ErrForbidden, "nope", nil), apierror.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apierror.CodeOf(storeError(tt.err, "op")))
		})
	}
}

func TestStoreError_AccountNumber(t *testing.T) {
	err := storeError(&pq.Error{Code: "23505", Constraint: "accounts_number_key"}, "op")
	assert.ErrorIs(t, err, ErrAccountNumberTaken)
}

func TestStoreError_Nil(t *testing.T) {
	assert.NoError(t, storeError(nil, "op"))
}
