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

package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is a closed set. Code that dispatches on it must handle every
// member listed in TransactionTypes.
type TransactionType string

const (
	Deposit      TransactionType = "DEPOSIT"
	Withdraw     TransactionType = "WITHDRAW"
	Transfer     TransactionType = "TRANSFER"
	ExchangeBuy  TransactionType = "EXCHANGE_BUY"
	ExchangeSell TransactionType = "EXCHANGE_SELL"
)

var TransactionTypes = []TransactionType{Deposit, Withdraw, Transfer, ExchangeBuy, ExchangeSell}

var ErrUnknownTransactionType = errors.New("unknown transaction type")

// ParseTransactionType maps a wire value onto the closed set.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range TransactionTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
}

// Roles reports which account references a transaction of this type carries.
func (t TransactionType) Roles() (needsSource, needsTarget bool, err error) {
	switch t {
	case Deposit:
		return false, true, nil
	case Withdraw:
		return true, false, nil
	case Transfer:
		return true, true, nil
	case ExchangeBuy:
		return true, false, nil
	case ExchangeSell:
		return false, true, nil
	}
	return false, false, fmt.Errorf("%w: %q", ErrUnknownTransactionType, string(t))
}

// Transaction is an immutable ledger entry. Amount is always in BRL. Exchange
// entries also carry the foreign leg so history can be replayed exactly.
type Transaction struct {
	TransactionID   string           `json:"transaction_id"`
	Amount          decimal.Decimal  `json:"amount"`
	Type            TransactionType  `json:"type"`
	SourceAccountID string           `json:"source_account_id,omitempty"`
	TargetAccountID string           `json:"target_account_id,omitempty"`
	Description     string           `json:"description,omitempty"`
	ForeignCurrency Currency         `json:"foreign_currency,omitempty"`
	ForeignAmount   *decimal.Decimal `json:"foreign_amount,omitempty"`
	Rate            *decimal.Decimal `json:"rate,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Operation is the caller's request to the ledger engine.
type Operation struct {
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	TargetAccountID string          `json:"target_account_id,omitempty"`
	Description     string          `json:"description,omitempty"`
}

// Validate checks the shape invariants of a ledger entry.
func (t *Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	needsSource, needsTarget, err := t.Type.Roles()
	if err != nil {
		return err
	}
	if needsSource != (t.SourceAccountID != "") {
		return fmt.Errorf("%s requires source account: %t", t.Type, needsSource)
	}
	if needsTarget != (t.TargetAccountID != "") {
		return fmt.Errorf("%s requires target account: %t", t.Type, needsTarget)
	}
	if t.SourceAccountID != "" && t.SourceAccountID == t.TargetAccountID {
		return errors.New("source and target accounts must differ")
	}
	if t.Type == ExchangeBuy || t.Type == ExchangeSell {
		if !t.ForeignCurrency.IsExchangeable() || t.ForeignAmount == nil || t.Rate == nil {
			return errors.New("exchange entries must record currency, foreign amount and rate")
		}
	}
	return nil
}

// Effects returns the signed balance changes this entry applied to accountID.
// Target references credit, source references debit.
func (t *Transaction) Effects(accountID string) Balances {
	var b Balances
	if t.TargetAccountID == accountID {
		b.BRL = b.BRL.Add(t.Amount)
	}
	if t.SourceAccountID == accountID {
		b.BRL = b.BRL.Sub(t.Amount)
	}
	if t.ForeignAmount == nil {
		return b
	}
	var foreign decimal.Decimal
	switch t.Type {
	case ExchangeBuy:
		if t.SourceAccountID == accountID {
			foreign = *t.ForeignAmount
		}
	case ExchangeSell:
		if t.TargetAccountID == accountID {
			foreign = t.ForeignAmount.Neg()
		}
	}
	switch t.ForeignCurrency {
	case USD:
		b.USD = b.USD.Add(foreign)
	case EUR:
		b.EUR = b.EUR.Add(foreign)
	}
	return b
}

// Add returns the sum of two balance sets.
func (b Balances) Add(o Balances) Balances {
	return Balances{BRL: b.BRL.Add(o.BRL), USD: b.USD.Add(o.USD), EUR: b.EUR.Add(o.EUR)}
}

// Equal compares balances numerically.
func (b Balances) Equal(o Balances) bool {
	return b.BRL.Equal(o.BRL) && b.USD.Equal(o.USD) && b.EUR.Equal(o.EUR)
}
