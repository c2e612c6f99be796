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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCurrent AccountType = "CURRENT"
	AccountTypeSavings AccountType = "SAVINGS"

	DefaultAgency = "0001"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeCurrent || t == AccountTypeSavings
}

// Account holds the three balances of a customer. Only the ledger engine and
// the exchange desk mutate the balance fields.
type Account struct {
	AccountID  string          `json:"account_id"`
	UserID     string          `json:"user_id"`
	Agency     string          `json:"agency"`
	Number     string          `json:"number"`
	Balance    decimal.Decimal `json:"balance"`
	BalanceUSD decimal.Decimal `json:"balance_usd"`
	BalanceEUR decimal.Decimal `json:"balance_eur"`
	Type       AccountType     `json:"type"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Balances is a point-in-time copy of an account's three balances.
type Balances struct {
	BRL decimal.Decimal `json:"BRL"`
	USD decimal.Decimal `json:"USD"`
	EUR decimal.Decimal `json:"EUR"`
}

func (a *Account) Balances() Balances {
	return Balances{BRL: a.Balance, USD: a.BalanceUSD, EUR: a.BalanceEUR}
}

// BalanceIn returns the balance held in currency c.
func (a *Account) BalanceIn(c Currency) (decimal.Decimal, error) {
	switch c {
	case BRL:
		return a.Balance, nil
	case USD:
		return a.BalanceUSD, nil
	case EUR:
		return a.BalanceEUR, nil
	}
	return decimal.Zero, fmt.Errorf("account holds no %s balance", c)
}

// Credit adds amount to the balance held in currency c.
func (a *Account) Credit(c Currency, amount decimal.Decimal) error {
	return a.apply(c, amount)
}

// Debit removes amount from the balance held in currency c. It does not check
// for sufficient funds; callers do that while holding the account lock.
func (a *Account) Debit(c Currency, amount decimal.Decimal) error {
	return a.apply(c, amount.Neg())
}

func (a *Account) apply(c Currency, delta decimal.Decimal) error {
	switch c {
	case BRL:
		a.Balance = RoundMoney(a.Balance.Add(delta))
	case USD:
		a.BalanceUSD = RoundMoney(a.BalanceUSD.Add(delta))
	case EUR:
		a.BalanceEUR = RoundMoney(a.BalanceEUR.Add(delta))
	default:
		return fmt.Errorf("account holds no %s balance", c)
	}
	return nil
}

// HasFunds reports whether the balance in currency c covers amount.
func (a *Account) HasFunds(c Currency, amount decimal.Decimal) bool {
	bal, err := a.BalanceIn(c)
	if err != nil {
		return false
	}
	return bal.GreaterThanOrEqual(amount)
}
