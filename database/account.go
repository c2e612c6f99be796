/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/webedmilson/bancoCred/model"
)

const accountColumns = "account_id, user_id, agency, number, balance, balance_usd, balance_eur, type, version, created_at, updated_at"

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account     model.Account
		accountType string
	)
	err := row.Scan(
		&account.AccountID,
		&account.UserID,
		&account.Agency,
		&account.Number,
		&account.Balance,
		&account.BalanceUSD,
		&account.BalanceEUR,
		&accountType,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.Type = model.AccountType(accountType)
	return &account, nil
}

// insertAccount assigns the ID and timestamps and writes account with zero
// balances.
func insertAccount(ctx context.Context, q queryer, account *model.Account) error {
	now := time.Now().UTC()
	account.AccountID = model.GenerateUUIDWithSuffix("acc")
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Version = 0

	_, err := q.ExecContext(ctx, `
		INSERT INTO bancocred.accounts (account_id, user_id, agency, number, balance, balance_usd, balance_eur, type, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, account.AccountID, account.UserID, account.Agency, account.Number,
		account.Balance.String(), account.BalanceUSD.String(), account.BalanceEUR.String(),
		string(account.Type), account.Version, account.CreatedAt, account.UpdatedAt)
	return err
}

// CreateAccount inserts a new account. A colliding number is reported as
// ErrAccountNumberTaken.
func (d Datasource) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := insertAccount(ctx, d.Conn, account); err != nil {
		return storeError(err, "failed to create account")
	}
	return nil
}

// GetAccountByID retrieves an account by its ID.
func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bancocred.accounts WHERE account_id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("account with ID '%s'", id))
	}
	return account, nil
}

// GetAccountsByUserID lists a user's accounts, oldest first.
func (d Datasource) GetAccountsByUserID(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM bancocred.accounts
		WHERE user_id = $1
		ORDER BY created_at ASC, account_id ASC
	`, userID)
	if err != nil {
		return nil, storeError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storeError(err, "failed to scan account")
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "failed to list accounts")
	}
	return accounts, nil
}

// GetPrimaryAccount retrieves the user's oldest account.
func (d Datasource) GetPrimaryAccount(ctx context.Context, userID string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM bancocred.accounts
		WHERE user_id = $1
		ORDER BY created_at ASC, account_id ASC
		LIMIT 1
	`, userID)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("account for user '%s'", userID))
	}
	return account, nil
}
