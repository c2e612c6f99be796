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
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/internal/metrics"
	"github.com/webedmilson/bancoCred/model"
)

// exchangeLeg describes which balance a trade debits and which it credits.
type exchangeLeg struct {
	txnType     model.TransactionType
	event       string
	debit       model.Currency
	debitAmount decimal.Decimal
	credit      model.Currency
}

func validateExchange(amount decimal.Decimal, currency model.Currency) error {
	if !currency.IsExchangeable() {
		return invalidArgument("currency must be one of %v", model.ExchangeCurrencies)
	}
	return validateAmount(amount)
}

// quote asks the oracle for a rate. Any failure is reported as
// SERVICE_UNAVAILABLE.
func (b *BancoCred) quote(ctx context.Context, currency model.Currency) (model.Quote, error) {
	q, err := b.oracle.GetRate(ctx, currency)
	if err != nil {
		if apierror.CodeOf(err) == apierror.ErrServiceUnavailable {
			return model.Quote{}, err
		}
		return model.Quote{}, apierror.NewAPIError(apierror.ErrServiceUnavailable, fmt.Sprintf("exchange rate unavailable for %s", currency), err)
	}
	if !q.Value.IsPositive() {
		return model.Quote{}, apierror.NewAPIError(apierror.ErrServiceUnavailable, fmt.Sprintf("invalid exchange rate for %s", currency), nil)
	}
	return q, nil
}

// Buy converts amountLocal BRL from the actor's primary account into
// currency at the current rate.
func (b *BancoCred) Buy(ctx context.Context, actingUserID string, amountLocal decimal.Decimal, currency model.Currency) (*model.ExchangeResult, error) {
	ctx, span := tracer.Start(ctx, "Buying currency")
	defer span.End()
	span.SetAttributes(attribute.String("exchange.currency", string(currency)))

	if err := validateExchange(amountLocal, currency); err != nil {
		return nil, b.recordFailure(span, model.ExchangeBuy, err)
	}

	account, err := b.datasource.GetPrimaryAccount(ctx, actingUserID)
	if err != nil {
		return nil, b.recordFailure(span, model.ExchangeBuy, err)
	}
	if !account.HasFunds(model.BRL, amountLocal) {
		return nil, b.recordFailure(span, model.ExchangeBuy, apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient BRL balance", nil))
	}

	q, err := b.quote(ctx, currency)
	if err != nil {
		return nil, b.recordFailure(span, model.ExchangeBuy, err)
	}

	purchased := model.RoundMoney(amountLocal.Div(q.Value))
	if !purchased.IsPositive() {
		return nil, b.recordFailure(span, model.ExchangeBuy, invalidArgument("amount is too small to buy any %s", currency))
	}

	leg := exchangeLeg{txnType: model.ExchangeBuy, event: EventExchangeBuy, debit: model.BRL, debitAmount: amountLocal, credit: currency}
	txn := &model.Transaction{
		TransactionID:   model.GenerateUUIDWithSuffix("txn"),
		Amount:          amountLocal,
		Type:            model.ExchangeBuy,
		SourceAccountID: account.AccountID,
		Description:     fmt.Sprintf("Purchase of %s %s (rate: %s)", purchased.StringFixed(2), currency, q.Value.StringFixed(4)),
		ForeignCurrency: currency,
		ForeignAmount:   &purchased,
		Rate:            &q.Value,
	}

	return b.settleExchange(ctx, span, actingUserID, account.AccountID, leg, purchased, txn, q)
}

// Sell converts amountForeign of currency from the actor's primary account
// back into BRL at the current rate.
func (b *BancoCred) Sell(ctx context.Context, actingUserID string, amountForeign decimal.Decimal, currency model.Currency) (*model.ExchangeResult, error) {
	ctx, span := tracer.Start(ctx, "Selling currency")
	defer span.End()
	span.SetAttributes(attribute.String("exchange.currency", string(currency)))

	if err := validateExchange(amountForeign, currency); err != nil {
		return nil, b.recordFailure(span, model.ExchangeSell, err)
	}

	account, err := b.datasource.GetPrimaryAccount(ctx, actingUserID)
	if err != nil {
		return nil, b.recordFailure(span, model.ExchangeSell, err)
	}
	if !account.HasFunds(currency, amountForeign) {
		return nil, b.recordFailure(span, model.ExchangeSell, apierror.NewAPIError(apierror.ErrInsufficientFunds, fmt.Sprintf("insufficient %s balance", currency), nil))
	}

	q, err := b.quote(ctx, currency)
	if err != nil {
		return nil, b.recordFailure(span, model.ExchangeSell, err)
	}

	credited := model.RoundMoney(amountForeign.Mul(q.Value))
	if !credited.IsPositive() {
		return nil, b.recordFailure(span, model.ExchangeSell, invalidArgument("amount is too small to sell for BRL"))
	}

	leg := exchangeLeg{txnType: model.ExchangeSell, event: EventExchangeSell, debit: currency, debitAmount: amountForeign, credit: model.BRL}
	sold := amountForeign
	txn := &model.Transaction{
		TransactionID:   model.GenerateUUIDWithSuffix("txn"),
		Amount:          credited,
		Type:            model.ExchangeSell,
		TargetAccountID: account.AccountID,
		Description:     fmt.Sprintf("Sale of %s %s (rate: %s)", sold.StringFixed(2), currency, q.Value.StringFixed(4)),
		ForeignCurrency: currency,
		ForeignAmount:   &sold,
		Rate:            &q.Value,
	}

	return b.settleExchange(ctx, span, actingUserID, account.AccountID, leg, credited, txn, q)
}

// settleExchange locks the primary account, re-checks funds and applies both
// legs together with the ledger entry in one unit.
func (b *BancoCred) settleExchange(ctx context.Context, span trace.Span, actingUserID, accountID string, leg exchangeLeg, creditAmount decimal.Decimal, txn *model.Transaction, q model.Quote) (*model.ExchangeResult, error) {
	started := time.Now()
	var settled *model.Account

	err := b.withAccountLocks(ctx, []string{accountID}, func() error {
		return b.inUnit(ctx, func(unit database.UnitOfWork) error {
			account, err := unit.LockPrimaryAccount(ctx, actingUserID)
			if err != nil {
				return err
			}
			if account.AccountID != accountID {
				return apierror.NewAPIError(apierror.ErrConflict, "primary account changed during exchange", nil)
			}
			if err := authorizeDebit(account, actingUserID, leg.debit, leg.debitAmount); err != nil {
				return err
			}
			if err := account.Debit(leg.debit, leg.debitAmount); err != nil {
				return err
			}
			if err := account.Credit(leg.credit, creditAmount); err != nil {
				return err
			}
			if err := unit.SaveAccount(ctx, account); err != nil {
				return err
			}

			if err := insertEntry(ctx, unit, txn); err != nil {
				return err
			}
			settled = account
			return nil
		})
	})
	if err != nil {
		return nil, b.recordFailure(span, leg.txnType, err)
	}

	metrics.ObserveTransaction(string(leg.txnType), txn.Amount, time.Since(started).Seconds())

	result := &model.ExchangeResult{
		Currency:    q.Currency,
		Rate:        q.Value,
		RateSource:  q.Source,
		Purchased:   creditAmount,
		Paid:        leg.debitAmount,
		Balances:    settled.Balances(),
		Transaction: txn,
	}
	if result.Currency == "" {
		result.Currency = txn.ForeignCurrency
	}

	b.postTransactionActions(ctx, leg.event, result, []string{accountID})
	return result, nil
}

// GetRates quotes every exchangeable currency. Nothing is persisted.
func (b *BancoCred) GetRates(ctx context.Context) (map[model.Currency]model.Quote, error) {
	ctx, span := tracer.Start(ctx, "Fetching rates")
	defer span.End()

	quotes := make(map[model.Currency]model.Quote, len(model.ExchangeCurrencies))
	for _, currency := range model.ExchangeCurrencies {
		q, err := b.quote(ctx, currency)
		if err != nil {
			return nil, logAndRecordError(span, "rate lookup failed: ", err)
		}
		quotes[currency] = q
	}
	return quotes, nil
}
