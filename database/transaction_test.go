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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/model"
)

var transactionRowColumns = []string{"transaction_id", "amount", "type", "source_account_id", "target_account_id", "description", "foreign_currency", "foreign_amount", "rate", "created_at"}

func TestGetTransaction_Exchange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT transaction_id, amount, type").
		WithArgs("txn_1").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("txn_1", "100.00", "EXCHANGE_BUY", "acc_1", "", "Purchase of 20.00 USD (rate: 5.0000)", "USD", "20.00", "5.000000", time.Now()))

	txn, err := ds.GetTransaction(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, model.ExchangeBuy, txn.Type)
	assert.Equal(t, model.USD, txn.ForeignCurrency)
	require.NotNil(t, txn.ForeignAmount)
	assert.Equal(t, "20", txn.ForeignAmount.String())
	require.NotNil(t, txn.Rate)
	assert.Equal(t, "5", txn.Rate.String())
	assert.Empty(t, txn.TargetAccountID)
}

func TestGetTransaction_Plain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT transaction_id").
		WithArgs("txn_2").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("txn_2", "40.00", "TRANSFER", "acc_1", "acc_2", "", "", nil, nil, time.Now()))

	txn, err := ds.GetTransaction(context.Background(), "txn_2")
	require.NoError(t, err)
	assert.Nil(t, txn.ForeignAmount)
	assert.Nil(t, txn.Rate)
	assert.Equal(t, "acc_2", txn.TargetAccountID)
}

func TestGetTransaction_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	mock.ExpectQuery("SELECT transaction_id").WithArgs("txn_x").WillReturnError(sql.ErrNoRows)

	_, err = ds.GetTransaction(context.Background(), "txn_x")
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(err))
}

func TestGetTransactionsByUserID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM bancocred.transactions WHERE (.+) ORDER BY created_at DESC, id DESC LIMIT \\$2 OFFSET \\$3").
		WithArgs("usr_1", 10, 0).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("txn_2", "5.00", "WITHDRAW", "acc_1", "", "", "", nil, nil, now).
			AddRow("txn_1", "10.00", "DEPOSIT", "", "acc_1", "", "", nil, nil, now.Add(-time.Minute)))

	txns, err := ds.GetTransactionsByUserID(context.Background(), "usr_1", 10, 0)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "txn_2", txns[0].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionsByAccountID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM bancocred.transactions WHERE source_account_id = \\$1 OR target_account_id = \\$1 ORDER BY id ASC").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns))

	txns, err := ds.GetTransactionsByAccountID(context.Background(), "acc_1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}
