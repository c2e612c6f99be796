package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	BRL Currency = "BRL" // local currency, the unit of Account.Balance
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// ExchangeCurrencies lists the foreign currencies an account can hold.
var ExchangeCurrencies = []Currency{USD, EUR}

// ParseCurrency normalises a user supplied code. It does not validate it.
func ParseCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

// IsExchangeable reports whether c is one of the foreign currencies held by accounts.
func (c Currency) IsExchangeable() bool {
	for _, ec := range ExchangeCurrencies {
		if c == ec {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// Quote is a price for one unit of Currency expressed in BRL.
type Quote struct {
	Currency  Currency        `json:"currency"`
	Value     decimal.Decimal `json:"value"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// ExchangeResult is returned by currency purchases and sales.
type ExchangeResult struct {
	Currency    Currency        `json:"currency"`
	Purchased   decimal.Decimal `json:"purchased"`
	Paid        decimal.Decimal `json:"paid"`
	Rate        decimal.Decimal `json:"rate"`
	RateSource  string          `json:"rate_source"`
	Balances    Balances        `json:"balances"`
	Transaction *Transaction    `json:"transaction"`
}
