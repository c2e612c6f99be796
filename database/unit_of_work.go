package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/model"
)

// sqlUnit is a UnitOfWork backed by a *sql.Tx. Row locks taken with
// FOR UPDATE are held until Commit or Rollback.
type sqlUnit struct {
	tx *sql.Tx
}

// BeginUnit starts a database transaction.
func (d Datasource) BeginUnit(ctx context.Context) (UnitOfWork, error) {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, storeError(err, "failed to begin transaction")
	}
	return &sqlUnit{tx: tx}, nil
}

// LockAccounts row-locks every distinct id in ascending order. A missing
// account yields NOT_FOUND.
func (u *sqlUnit) LockAccounts(ctx context.Context, ids []string) (map[string]*model.Account, error) {
	sorted := sortedUnique(ids)

	rows, err := u.tx.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM bancocred.accounts
		WHERE account_id = ANY($1)
		ORDER BY account_id
		FOR UPDATE
	`, pq.Array(sorted))
	if err != nil {
		return nil, storeError(err, "failed to lock accounts")
	}
	defer rows.Close()

	locked := make(map[string]*model.Account, len(sorted))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storeError(err, "failed to scan account")
		}
		locked[account.AccountID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "failed to lock accounts")
	}

	for _, id := range sorted {
		if _, ok := locked[id]; !ok {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("account with ID '%s' not found", id), nil)
		}
	}
	return locked, nil
}

// LockPrimaryAccount row-locks the user's oldest account.
func (u *sqlUnit) LockPrimaryAccount(ctx context.Context, userID string) (*model.Account, error) {
	row := u.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM bancocred.accounts
		WHERE user_id = $1
		ORDER BY created_at ASC, account_id ASC
		LIMIT 1
		FOR UPDATE
	`, userID)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("account for user '%s'", userID))
	}
	return account, nil
}

// SaveAccount writes the three balances. The version column guards against a
// write that slipped past the row lock; the version is bumped on success.
func (u *sqlUnit) SaveAccount(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	result, err := u.tx.ExecContext(ctx, `
		UPDATE bancocred.accounts
		SET balance = $2, balance_usd = $3, balance_eur = $4, updated_at = $5, version = version + 1
		WHERE account_id = $1 AND version = $6
	`, account.AccountID, account.Balance.String(), account.BalanceUSD.String(), account.BalanceEUR.String(), now, account.Version)
	if err != nil {
		return storeError(err, "failed to update account")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Optimistic locking failure: account with ID '%s' may have been updated by another transaction", account.AccountID), nil)
	}

	account.Version++
	account.UpdatedAt = now
	return nil
}

func (u *sqlUnit) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := insertTransaction(ctx, u.tx, txn); err != nil {
		return storeError(err, "failed to record transaction")
	}
	return nil
}

func (u *sqlUnit) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return storeError(err, "failed to commit transaction")
	}
	return nil
}

// Rollback aborts the unit. Calling it after Commit is a no-op.
func (u *sqlUnit) Rollback() error {
	err := u.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return storeError(err, "failed to roll back transaction")
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
