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

package bancocred

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/webedmilson/bancoCred/database/mocks"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/internal/events"
	"github.com/webedmilson/bancoCred/model"
)

type recordingPublisher struct {
	events chan events.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.LedgerEvent) error {
	p.events <- event
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestExecute_Deposit(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	publisher := &recordingPublisher{events: make(chan events.LedgerEvent, 1)}
	b.SetPublisher(publisher)

	userID, accountID := seedUser(t, store, "10.50")

	txn, err := b.Execute(context.Background(), model.Operation{
		Type:            model.Deposit,
		Amount:          dec("25.25"),
		TargetAccountID: accountID,
		Description:     "salary",
	}, userID)
	require.NoError(t, err)

	assert.True(t, dec("35.75").Equal(store.account(t, accountID).Balance))
	assert.Equal(t, 1, store.transactionCount())
	assert.Equal(t, model.Deposit, txn.Type)
	assert.Equal(t, accountID, txn.TargetAccountID)
	assert.Empty(t, txn.SourceAccountID)
	assert.True(t, dec("25.25").Equal(txn.Amount))
	assert.Equal(t, int64(1), store.account(t, accountID).Version)

	select {
	case event := <-publisher.events:
		assert.Equal(t, EventTransactionApplied, event.Event)
		assert.Equal(t, []string{accountID}, event.AccountIDs)
	case <-time.After(2 * time.Second):
		t.Fatal("ledger event was not published")
	}
}

func TestExecute_DepositIntoAnotherUsersAccount(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	_, accountID := seedUser(t, store, "0")
	otherUser, _ := seedUser(t, store, "0")

	_, err := b.Execute(context.Background(), model.Operation{Type: model.Deposit, Amount: dec("5"), TargetAccountID: accountID}, otherUser)
	require.NoError(t, err)
	assert.True(t, dec("5").Equal(store.account(t, accountID).Balance))
}

func TestExecute_WithdrawInsufficientFunds(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userID, accountID := seedUser(t, store, "50")

	_, err := b.Execute(context.Background(), model.Operation{
		Type:            model.Withdraw,
		Amount:          dec("50.01"),
		SourceAccountID: accountID,
	}, userID)
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds))

	account := store.account(t, accountID)
	assert.True(t, dec("50").Equal(account.Balance))
	assert.Equal(t, int64(0), account.Version)
	assert.Equal(t, 0, store.transactionCount())
}

func TestExecute_WithdrawWholeBalance(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userID, accountID := seedUser(t, store, "50")

	_, err := b.Execute(context.Background(), model.Operation{Type: model.Withdraw, Amount: dec("50"), SourceAccountID: accountID}, userID)
	require.NoError(t, err)
	assert.True(t, store.account(t, accountID).Balance.IsZero())
}

func TestExecute_Transfer(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userX, accountX := seedUser(t, store, "100")
	_, accountY := seedUser(t, store, "0")

	txn, err := b.Execute(context.Background(), model.Operation{
		Type:            model.Transfer,
		Amount:          dec("40"),
		SourceAccountID: accountX,
		TargetAccountID: accountY,
	}, userX)
	require.NoError(t, err)

	x, y := store.account(t, accountX), store.account(t, accountY)
	assert.True(t, dec("60").Equal(x.Balance))
	assert.True(t, dec("40").Equal(y.Balance))
	assert.True(t, dec("100").Equal(x.Balance.Add(y.Balance)))
	assert.Equal(t, accountX, txn.SourceAccountID)
	assert.Equal(t, accountY, txn.TargetAccountID)
	assert.Equal(t, 1, store.transactionCount())
}

func TestExecute_TransferToSameAccount(t *testing.T) {
	for _, balance := range []string{"0", "1000"} {
		store := newMemStore()
		b := newTestBancoCred(t, store)
		userID, accountID := seedUser(t, store, balance)

		_, err := b.Execute(context.Background(), model.Operation{
			Type:            model.Transfer,
			Amount:          dec("10"),
			SourceAccountID: accountID,
			TargetAccountID: accountID,
		}, userID)
		assert.True(t, apierror.Is(err, apierror.ErrInvalidInput), "balance %s", balance)
		assert.Equal(t, 0, store.transactionCount())
	}
}

func TestExecute_NonOwnerIsForbidden(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	_, victimAccount := seedUser(t, store, "100")
	intruder, intruderAccount := seedUser(t, store, "0")

	ops := []model.Operation{
		{Type: model.Withdraw, Amount: dec("10"), SourceAccountID: victimAccount},
		{Type: model.Transfer, Amount: dec("10"), SourceAccountID: victimAccount, TargetAccountID: intruderAccount},
	}
	for _, op := range ops {
		_, err := b.Execute(context.Background(), op, intruder)
		assert.True(t, apierror.Is(err, apierror.ErrForbidden), "%s", op.Type)
	}
	assert.True(t, dec("100").Equal(store.account(t, victimAccount).Balance))
	assert.True(t, store.account(t, intruderAccount).Balance.IsZero())
	assert.Equal(t, 0, store.transactionCount())
}

func TestExecute_Validation(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userID, accountID := seedUser(t, store, "100")

	tests := []struct {
		name string
		op   model.Operation
	}{
		{"zero amount", model.Operation{Type: model.Deposit, Amount: dec("0"), TargetAccountID: accountID}},
		{"negative amount", model.Operation{Type: model.Deposit, Amount: dec("-1"), TargetAccountID: accountID}},
		{"three decimals", model.Operation{Type: model.Deposit, Amount: dec("1.001"), TargetAccountID: accountID}},
		{"deposit without target", model.Operation{Type: model.Deposit, Amount: dec("1")}},
		{"deposit with source", model.Operation{Type: model.Deposit, Amount: dec("1"), SourceAccountID: accountID, TargetAccountID: "acc_x"}},
		{"withdraw without source", model.Operation{Type: model.Withdraw, Amount: dec("1")}},
		{"withdraw with target", model.Operation{Type: model.Withdraw, Amount: dec("1"), SourceAccountID: accountID, TargetAccountID: "acc_x"}},
		{"transfer without target", model.Operation{Type: model.Transfer, Amount: dec("1"), SourceAccountID: accountID}},
		{"exchange through execute", model.Operation{Type: model.ExchangeBuy, Amount: dec("1"), SourceAccountID: accountID}},
		{"unknown type", model.Operation{Type: "REFUND", Amount: dec("1"), TargetAccountID: accountID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Execute(context.Background(), tt.op, userID)
			assert.True(t, apierror.Is(err, apierror.ErrInvalidInput), "got %v", err)
		})
	}
	assert.Equal(t, 0, store.transactionCount())
}

func TestExecute_UnknownAccount(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userID, accountID := seedUser(t, store, "100")

	_, err := b.Execute(context.Background(), model.Operation{
		Type:            model.Transfer,
		Amount:          dec("1"),
		SourceAccountID: accountID,
		TargetAccountID: "acc_missing",
	}, userID)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
	assert.True(t, dec("100").Equal(store.account(t, accountID).Balance))
}

func runAlternatingTransfers(t *testing.T, b *BancoCred, store *memStore, rounds int) {
	t.Helper()
	userX, accountX := seedUser(t, store, "500")
	userY, accountY := seedUser(t, store, "500")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			op := model.Operation{Type: model.Transfer, Amount: dec("7.5"), SourceAccountID: accountX, TargetAccountID: accountY}
			actor := userX
			if i%2 == 1 {
				op.SourceAccountID, op.TargetAccountID = accountY, accountX
				actor = userY
			}
			_, err := b.Execute(context.Background(), op, actor)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds), "unexpected error %v", err)
		}(i)
	}
	wg.Wait()

	x, y := store.account(t, accountX), store.account(t, accountY)
	assert.True(t, dec("1000").Equal(x.Balance.Add(y.Balance)), "sum changed: %s + %s", x.Balance, y.Balance)
	assert.False(t, x.Balance.IsNegative())
	assert.False(t, y.Balance.IsNegative())
	assert.Equal(t, succeeded, store.transactionCount())
	assert.Equal(t, int64(succeeded), x.Version)
	assert.Equal(t, int64(succeeded), y.Version)

	for _, id := range []string{accountX, accountY} {
		r, err := b.ReplayAccount(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, r.Computed.BRL.Add(dec("500")).Equal(r.Stored.BRL))
	}
}

func TestExecute_ConcurrentAlternatingTransfers(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	runAlternatingTransfers(t, b, store, 100)
}

func TestExecute_ConcurrentAlternatingTransfersWithRedisLocks(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	b := newTestBancoCred(t, store)
	b.redis = client
	runAlternatingTransfers(t, b, store, 20)

	assert.Empty(t, mr.Keys(), "advisory locks must be released")
}

func TestExecute_AccountBusy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	b := newTestBancoCred(t, store)
	b.redis = client
	b.config.Transaction.LockWaitTimeoutSec = 1
	userID, accountID := seedUser(t, store, "100")

	require.NoError(t, client.Set(context.Background(), lockKey(accountID), "someone-else", time.Minute).Err())

	_, err := b.Execute(context.Background(), model.Operation{Type: model.Withdraw, Amount: dec("1"), SourceAccountID: accountID}, userID)
	assert.True(t, apierror.Is(err, apierror.ErrServiceUnavailable))
	assert.True(t, dec("100").Equal(store.account(t, accountID).Balance))
}

func TestExecute_StoreFailureRollsBack(t *testing.T) {
	ds := &mocks.MockDataSource{}
	unit := &mocks.MockUnitOfWork{}
	b := newTestBancoCred(t, ds)

	account := &model.Account{AccountID: "acc_1", UserID: "usr_1", Balance: dec("100")}
	ds.On("BeginUnit", mock.Anything).Return(unit, nil)
	unit.On("LockAccounts", mock.Anything, []string{"acc_1"}).Return(map[string]*model.Account{"acc_1": account}, nil)
	unit.On("SaveAccount", mock.Anything, account).Return(nil)
	unit.On("InsertTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).
		Return(apierror.NewAPIError(apierror.ErrStoreFailure, "failed to insert transaction", errors.New("disk full")))
	unit.On("Rollback").Return(nil)

	_, err := b.Execute(context.Background(), model.Operation{Type: model.Withdraw, Amount: dec("10"), SourceAccountID: "acc_1"}, "usr_1")
	assert.True(t, apierror.Is(err, apierror.ErrStoreFailure))
	unit.AssertNotCalled(t, "Commit")
	unit.AssertCalled(t, "Rollback")
}

func TestExecute_VersionConflict(t *testing.T) {
	ds := &mocks.MockDataSource{}
	unit := &mocks.MockUnitOfWork{}
	b := newTestBancoCred(t, ds)

	account := &model.Account{AccountID: "acc_1", UserID: "usr_1"}
	ds.On("BeginUnit", mock.Anything).Return(unit, nil)
	unit.On("LockAccounts", mock.Anything, []string{"acc_1"}).Return(map[string]*model.Account{"acc_1": account}, nil)
	unit.On("SaveAccount", mock.Anything, account).Return(apierror.NewAPIError(apierror.ErrConflict, "account was modified concurrently", nil))
	unit.On("Rollback").Return(nil)

	_, err := b.Execute(context.Background(), model.Operation{Type: model.Deposit, Amount: dec("10"), TargetAccountID: "acc_1"}, "usr_1")
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	unit.AssertNotCalled(t, "InsertTransaction", mock.Anything, mock.Anything)
}

func TestGetTransaction(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userX, accountX := seedUser(t, store, "100")
	userY, accountY := seedUser(t, store, "0")
	outsider, _ := seedUser(t, store, "0")

	txn, err := b.Execute(context.Background(), model.Operation{Type: model.Transfer, Amount: dec("1"), SourceAccountID: accountX, TargetAccountID: accountY}, userX)
	require.NoError(t, err)

	for _, actor := range []string{userX, userY} {
		got, err := b.GetTransaction(context.Background(), actor, txn.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, txn.TransactionID, got.TransactionID)
	}

	_, err = b.GetTransaction(context.Background(), outsider, txn.TransactionID)
	assert.True(t, apierror.Is(err, apierror.ErrForbidden))

	_, err = b.GetTransaction(context.Background(), userX, "txn_missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestListTransactions(t *testing.T) {
	store := newMemStore()
	b := newTestBancoCred(t, store)
	userID, accountID := seedUser(t, store, "0")

	for _, amount := range []string{"1", "2", "3"} {
		_, err := b.Execute(context.Background(), model.Operation{Type: model.Deposit, Amount: dec(amount), TargetAccountID: accountID}, userID)
		require.NoError(t, err)
	}

	all, err := b.ListTransactions(context.Background(), userID, 0, -5)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, dec("3").Equal(all[0].Amount), "newest first")

	page, err := b.ListTransactions(context.Background(), userID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, dec("2").Equal(page[0].Amount))
}

func TestInsertEntry_RefusesMalformedEntry(t *testing.T) {
	unit := &mocks.MockUnitOfWork{}

	malformed := &model.Transaction{TransactionID: "txn_1", Type: model.ExchangeBuy, Amount: dec("100"), SourceAccountID: "acc_1"}
	err := insertEntry(context.Background(), unit, malformed)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
	unit.AssertNotCalled(t, "InsertTransaction", mock.Anything, mock.Anything)

	valid := &model.Transaction{TransactionID: "txn_2", Type: model.Deposit, Amount: dec("10"), TargetAccountID: "acc_1"}
	unit.On("InsertTransaction", mock.Anything, valid).Return(nil)
	require.NoError(t, insertEntry(context.Background(), unit, valid))
	assert.False(t, valid.CreatedAt.IsZero())
	unit.AssertExpectations(t)
}
