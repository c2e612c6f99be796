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
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/internal/events"
	redlock "github.com/webedmilson/bancoCred/internal/lock"
	"github.com/webedmilson/bancoCred/internal/metrics"
	"github.com/webedmilson/bancoCred/internal/notification"
	"github.com/webedmilson/bancoCred/model"
)

var (
	tracer = otel.Tracer("bancocred.ledger")
)

const (
	EventTransactionApplied = "transaction.applied"
	EventExchangeBuy        = "exchange.buy"
	EventExchangeSell       = "exchange.sell"
	EventUserCreated        = "user.created"
	EventAccountOpened      = "account.opened"

	defaultTransactionLimit = 20
	maxTransactionLimit     = 100
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

func invalidArgument(format string, args ...interface{}) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf(format, args...), nil)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidArgument("amount must be greater than zero")
	}
	if !model.HasMoneyPrecision(amount) {
		return invalidArgument("amount must have at most %d decimal places", model.MoneyPlaces)
	}
	return nil
}

// validateOperation runs every check that needs no store access.
func validateOperation(op model.Operation) error {
	if err := validateAmount(op.Amount); err != nil {
		return err
	}

	switch op.Type {
	case model.Deposit:
		if op.TargetAccountID == "" {
			return invalidArgument("target account is required for %s", op.Type)
		}
		if op.SourceAccountID != "" {
			return invalidArgument("%s does not take a source account", op.Type)
		}
	case model.Withdraw:
		if op.SourceAccountID == "" {
			return invalidArgument("source account is required for %s", op.Type)
		}
		if op.TargetAccountID != "" {
			return invalidArgument("%s does not take a target account", op.Type)
		}
	case model.Transfer:
		if op.SourceAccountID == "" || op.TargetAccountID == "" {
			return invalidArgument("source and target accounts are required for %s", op.Type)
		}
		if op.SourceAccountID == op.TargetAccountID {
			return invalidArgument("source and target accounts must be different")
		}
	case model.ExchangeBuy, model.ExchangeSell:
		return invalidArgument("%s transactions are created by the exchange desk", op.Type)
	default:
		return invalidArgument("unsupported transaction type %q", string(op.Type))
	}
	return nil
}

// authorizeDebit checks that actor owns account and that it covers amount in
// currency. Callers hold the account lock.
func authorizeDebit(account *model.Account, actingUserID string, currency model.Currency, amount decimal.Decimal) error {
	if account.UserID != actingUserID {
		return apierror.NewAPIError(apierror.ErrForbidden, "you do not own this account", nil)
	}
	if !account.HasFunds(currency, amount) {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("insufficient %s balance", currency), nil)
	}
	return nil
}

// applyOperation mutates the locked accounts. It returns the accounts that
// changed, in ascending ID order.
func applyOperation(op model.Operation, accounts map[string]*model.Account, actingUserID string) ([]*model.Account, error) {
	switch op.Type {
	case model.Deposit:
		target := accounts[op.TargetAccountID]
		if err := target.Credit(model.BRL, op.Amount); err != nil {
			return nil, err
		}
		return []*model.Account{target}, nil

	case model.Withdraw:
		source := accounts[op.SourceAccountID]
		if err := authorizeDebit(source, actingUserID, model.BRL, op.Amount); err != nil {
			return nil, err
		}
		if err := source.Debit(model.BRL, op.Amount); err != nil {
			return nil, err
		}
		return []*model.Account{source}, nil

	case model.Transfer:
		source := accounts[op.SourceAccountID]
		target := accounts[op.TargetAccountID]
		if err := authorizeDebit(source, actingUserID, model.BRL, op.Amount); err != nil {
			return nil, err
		}
		if err := source.Debit(model.BRL, op.Amount); err != nil {
			return nil, err
		}
		if err := target.Credit(model.BRL, op.Amount); err != nil {
			return nil, err
		}
		changed := []*model.Account{source, target}
		sort.Slice(changed, func(i, j int) bool { return changed[i].AccountID < changed[j].AccountID })
		return changed, nil

	case model.ExchangeBuy, model.ExchangeSell:
		return nil, invalidArgument("%s transactions are created by the exchange desk", op.Type)
	}
	return nil, invalidArgument("unsupported transaction type %q", string(op.Type))
}

func operationAccountIDs(op model.Operation) []string {
	ids := make([]string, 0, 2)
	if op.SourceAccountID != "" {
		ids = append(ids, op.SourceAccountID)
	}
	if op.TargetAccountID != "" {
		ids = append(ids, op.TargetAccountID)
	}
	sort.Strings(ids)
	return ids
}

func lockKey(accountID string) string {
	return "lock:account:" + accountID
}

// withAccountLocks holds the Redis advisory locks of accountIDs, taken in
// ascending order, while fn runs.
func (b *BancoCred) withAccountLocks(ctx context.Context, accountIDs []string, fn func() error) error {
	if b.redis == nil || b.config.Transaction.DisableRedisLock {
		return fn()
	}

	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = lockKey(id)
	}
	lockDuration := time.Duration(b.config.Transaction.LockDurationSec) * time.Second
	waitTimeout := time.Duration(b.config.Transaction.LockWaitTimeoutSec) * time.Second

	locks, err := redlock.AcquireOrdered(ctx, b.redis, keys, model.GenerateUUIDWithSuffix("loc"), lockDuration, waitTimeout)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrServiceUnavailable, "account is busy, try again", err)
	}
	defer func() {
		if err := locks.Release(context.WithoutCancel(ctx)); err != nil {
			logrus.WithError(err).Warn("failed to release account locks")
		}
	}()
	return fn()
}

// insertEntry stamps txn and persists it inside unit. An entry that breaks
// the ledger shape is refused before it reaches the store.
func insertEntry(ctx context.Context, unit database.UnitOfWork, txn *model.Transaction) error {
	txn.CreatedAt = time.Now().UTC()
	if err := txn.Validate(); err != nil {
		return apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}
	return unit.InsertTransaction(ctx, txn)
}

// inUnit runs fn inside one unit of work and commits it. Any error rolls the
// unit back and is returned unchanged.
func (b *BancoCred) inUnit(ctx context.Context, fn func(unit database.UnitOfWork) error) error {
	unit, err := b.datasource.BeginUnit(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = unit.Rollback()
	}()

	if err := fn(unit); err != nil {
		return err
	}
	return unit.Commit()
}

// recordFailure counts a failed operation and escalates store failures.
func (b *BancoCred) recordFailure(span trace.Span, txnType model.TransactionType, err error) error {
	code := apierror.CodeOf(err)
	metrics.ObserveFailure(string(txnType), string(code))
	if code == apierror.ErrStoreFailure || code == apierror.ErrInternalServer {
		notification.NotifyError(err)
	}
	return logAndRecordError(span, fmt.Sprintf("%s failed: ", txnType), err)
}

// Execute applies a DEPOSIT, WITHDRAW or TRANSFER atomically. Accounts are
// locked in ascending ID order and funds are checked while the locks are
// held. On any failure nothing is persisted.
func (b *BancoCred) Execute(ctx context.Context, op model.Operation, actingUserID string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Executing transaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.type", string(op.Type)))

	if err := validateOperation(op); err != nil {
		return nil, b.recordFailure(span, op.Type, err)
	}

	started := time.Now()
	ids := operationAccountIDs(op)
	txn := &model.Transaction{
		TransactionID:   model.GenerateUUIDWithSuffix("txn"),
		Amount:          op.Amount,
		Type:            op.Type,
		SourceAccountID: op.SourceAccountID,
		TargetAccountID: op.TargetAccountID,
		Description:     op.Description,
	}

	err := b.withAccountLocks(ctx, ids, func() error {
		return b.inUnit(ctx, func(unit database.UnitOfWork) error {
			accounts, err := unit.LockAccounts(ctx, ids)
			if err != nil {
				return err
			}

			changed, err := applyOperation(op, accounts, actingUserID)
			if err != nil {
				return err
			}
			for _, account := range changed {
				if err := unit.SaveAccount(ctx, account); err != nil {
					return err
				}
			}

			return insertEntry(ctx, unit, txn)
		})
	})
	if err != nil {
		return nil, b.recordFailure(span, op.Type, err)
	}

	metrics.ObserveTransaction(string(txn.Type), txn.Amount, time.Since(started).Seconds())
	span.SetAttributes(attribute.String("transaction.id", txn.TransactionID))
	b.postTransactionActions(ctx, EventTransactionApplied, txn, ids)
	return txn, nil
}

// postTransactionActions fans a committed entry out to webhooks and Kafka.
// Failures here never affect the committed result.
func (b *BancoCred) postTransactionActions(ctx context.Context, event string, payload interface{}, accountIDs []string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   event,
			Payload: payload,
		})
		if err != nil {
			notification.NotifyError(err)
		}

		key := ""
		if len(accountIDs) > 0 {
			key = accountIDs[0]
		}
		err = b.publisher.Publish(ctx, key, events.LedgerEvent{
			Event:      event,
			AccountIDs: accountIDs,
			Data:       payload,
		})
		if err != nil {
			logrus.WithError(err).WithField("event", event).Warn("failed to publish ledger event")
		}
	}()
}

// GetTransaction returns a ledger entry the actor is party to.
func (b *BancoCred) GetTransaction(ctx context.Context, actingUserID, id string) (*model.Transaction, error) {
	txn, err := b.datasource.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, accountID := range []string{txn.SourceAccountID, txn.TargetAccountID} {
		if accountID == "" {
			continue
		}
		account, err := b.datasource.GetAccountByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account.UserID == actingUserID {
			return txn, nil
		}
	}
	return nil, apierror.NewAPIError(apierror.ErrForbidden, "you are not a party to this transaction", nil)
}

// ListTransactions returns the user's entries, newest first.
func (b *BancoCred) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}
	return b.datasource.GetTransactionsByUserID(ctx, userID, limit, offset)
}
