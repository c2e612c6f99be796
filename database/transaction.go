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

	"github.com/shopspring/decimal"
	"github.com/webedmilson/bancoCred/model"
)

const transactionColumns = "transaction_id, amount, type, COALESCE(source_account_id, ''), COALESCE(target_account_id, ''), COALESCE(description, ''), COALESCE(foreign_currency, ''), foreign_amount, rate, created_at"

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn             model.Transaction
		txnType         string
		foreignCurrency string
		foreignAmount   decimal.NullDecimal
		rate            decimal.NullDecimal
	)
	err := row.Scan(
		&txn.TransactionID,
		&txn.Amount,
		&txnType,
		&txn.SourceAccountID,
		&txn.TargetAccountID,
		&txn.Description,
		&foreignCurrency,
		&foreignAmount,
		&rate,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Type = model.TransactionType(txnType)
	txn.ForeignCurrency = model.Currency(foreignCurrency)
	if foreignAmount.Valid {
		txn.ForeignAmount = &foreignAmount.Decimal
	}
	if rate.Valid {
		txn.Rate = &rate.Decimal
	}
	return &txn, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer rows.Close()

	transactions := []model.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

// insertTransaction appends a ledger entry. Entries are never updated.
func insertTransaction(ctx context.Context, q queryer, txn *model.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO bancocred.transactions (transaction_id, amount, type, source_account_id, target_account_id, description, foreign_currency, foreign_amount, rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, txn.TransactionID, txn.Amount.String(), string(txn.Type),
		nullString(txn.SourceAccountID), nullString(txn.TargetAccountID), nullString(txn.Description),
		nullString(string(txn.ForeignCurrency)), nullDecimal(txn.ForeignAmount), nullDecimal(txn.Rate),
		txn.CreatedAt)
	return err
}

// GetTransaction retrieves a transaction by its ID.
func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM bancocred.transactions WHERE transaction_id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("transaction with ID '%s'", id))
	}
	return txn, nil
}

// GetTransactionsByUserID lists transactions touching any of the user's
// accounts, newest first.
func (d Datasource) GetTransactionsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM bancocred.transactions
		WHERE source_account_id IN (SELECT account_id FROM bancocred.accounts WHERE user_id = $1)
		   OR target_account_id IN (SELECT account_id FROM bancocred.accounts WHERE user_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, "failed to list transactions")
	}
	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, storeError(err, "failed to scan transactions")
	}
	return transactions, nil
}

// GetTransactionsByAccountID returns the full history of an account in commit
// order.
func (d Datasource) GetTransactionsByAccountID(ctx context.Context, accountID string) ([]model.Transaction, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM bancocred.transactions
		WHERE source_account_id = $1 OR target_account_id = $1
		ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, storeError(err, "failed to load account history")
	}
	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, storeError(err, "failed to scan transactions")
	}
	return transactions, nil
}
