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

	"github.com/webedmilson/bancoCred/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	user        // Interface for user-related operations
	account     // Interface for account-related operations
	transaction // Interface for transaction-related operations
	unitOfWork  // Interface for atomic balance mutations
}

// user defines methods for handling users.
type user interface {
	CreateUserWithAccount(ctx context.Context, user *model.User, account *model.Account) error // Inserts a user and its first account atomically
	GetUserByID(ctx context.Context, id string) (*model.User, error)                           // Retrieves a user by ID
}

// account defines read and create methods for accounts. Balance fields are
// only ever written through a UnitOfWork.
type account interface {
	CreateAccount(ctx context.Context, account *model.Account) error                 // Inserts an account with zero balances
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)           // Retrieves an account by ID
	GetAccountsByUserID(ctx context.Context, userID string) ([]model.Account, error) // Retrieves a user's accounts, oldest first
	GetPrimaryAccount(ctx context.Context, userID string) (*model.Account, error)    // Retrieves a user's oldest account
}

// transaction defines read methods for ledger entries. Entries are only ever
// inserted through a UnitOfWork and never updated or deleted.
type transaction interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)                                  // Retrieves a transaction by ID
	GetTransactionsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) // Retrieves a user's transactions, newest first
	GetTransactionsByAccountID(ctx context.Context, accountID string) ([]model.Transaction, error)              // Retrieves an account's full history, oldest first
}

// unitOfWork opens atomic units.
type unitOfWork interface {
	BeginUnit(ctx context.Context) (UnitOfWork, error) // Starts a database transaction
}

// UnitOfWork is one atomic mutation of accounts plus the ledger entry that
// records it. Rollback after Commit is a no-op, so callers always defer it.
type UnitOfWork interface {
	LockAccounts(ctx context.Context, ids []string) (map[string]*model.Account, error) // Row-locks accounts in ascending ID order
	LockPrimaryAccount(ctx context.Context, userID string) (*model.Account, error)     // Row-locks a user's oldest account
	SaveAccount(ctx context.Context, account *model.Account) error                     // Persists balances, guarded by version
	InsertTransaction(ctx context.Context, txn *model.Transaction) error               // Appends a ledger entry
	Commit() error
	Rollback() error
}
