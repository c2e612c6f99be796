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
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/webedmilson/bancoCred/model"
)

type RecordTransaction struct {
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID string          `json:"source_account_id"`
	TargetAccountID string          `json:"target_account_id"`
	Description     string          `json:"description"`
}

type Exchange struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type OpenAccount struct {
	Type string `json:"type"`
}

func positiveMoney(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal")
	}
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	if !model.HasMoneyPrecision(amount) {
		return errors.New("must have at most 2 decimal places")
	}
	return nil
}

func (t *RecordTransaction) ValidateRecordTransaction() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Type, validation.Required, validation.By(func(value interface{}) error {
			typ, err := model.ParseTransactionType(value.(string))
			if err == nil && isLedgerType(typ) {
				return nil
			}
			return errors.New("must be one of DEPOSIT, WITHDRAW or TRANSFER")
		})),
		validation.Field(&t.Amount, validation.By(positiveMoney)),
		validation.Field(&t.Description, validation.Length(0, 255)),
	)
}

// isLedgerType reports whether typ may be submitted directly. Exchange
// entries are only created by the exchange endpoints.
func isLedgerType(typ model.TransactionType) bool {
	switch typ {
	case model.Deposit, model.Withdraw, model.Transfer:
		return true
	}
	return false
}

// ToOperation converts a validated request. An unknown type is passed through
// as sent so the engine rejects it.
func (t *RecordTransaction) ToOperation() model.Operation {
	typ, err := model.ParseTransactionType(t.Type)
	if err != nil {
		typ = model.TransactionType(t.Type)
	}
	return model.Operation{
		Type:            typ,
		Amount:          t.Amount,
		SourceAccountID: strings.TrimSpace(t.SourceAccountID),
		TargetAccountID: strings.TrimSpace(t.TargetAccountID),
		Description:     strings.TrimSpace(t.Description),
	}
}

func (e *Exchange) ValidateExchange() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Amount, validation.By(positiveMoney)),
		validation.Field(&e.Currency, validation.Required, validation.By(func(value interface{}) error {
			if !model.ParseCurrency(value.(string)).IsExchangeable() {
				return errors.New("must be USD or EUR")
			}
			return nil
		})),
	)
}

func (e *Exchange) ToCurrency() model.Currency {
	return model.ParseCurrency(e.Currency)
}

func (a *OpenAccount) ValidateOpenAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Type, validation.By(func(interface{}) error {
			if a.Type != "" && !a.ToAccountType().Valid() {
				return errors.New("must be CURRENT or SAVINGS")
			}
			return nil
		})),
	)
}

func (a *OpenAccount) ToAccountType() model.AccountType {
	return model.AccountType(strings.ToUpper(strings.TrimSpace(a.Type)))
}
