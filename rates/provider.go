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

package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/webedmilson/bancoCred/internal/request"
	"github.com/webedmilson/bancoCred/model"
)

const (
	SourceAwesomeAPI      = "awesomeapi"
	SourceExchangeRateAPI = "exchangerate-api"
	SourceFloor           = "floor"
)

var (
	ErrMissingRate = errors.New("rate missing from provider response")
	ErrNoFloor     = errors.New("no safety floor configured")
)

// Provider returns the price of one unit of currency in BRL.
type Provider interface {
	GetName() string
	GetRate(ctx context.Context, currency model.Currency) (decimal.Decimal, error)
}

func validRate(name string, currency model.Currency, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s returned non-positive rate %s for %s", name, rate, currency)
	}
	return rate, nil
}

// AwesomeAPIProvider reads the bid of {CUR}-BRL from economia.awesomeapi.com.br.
type AwesomeAPIProvider struct {
	baseURL string
	timeout time.Duration
}

func NewAwesomeAPIProvider(baseURL string, timeout time.Duration) *AwesomeAPIProvider {
	return &AwesomeAPIProvider{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (p *AwesomeAPIProvider) GetName() string {
	return SourceAwesomeAPI
}

type awesomeQuote struct {
	Bid string `json:"bid"`
}

func (p *AwesomeAPIProvider) GetRate(ctx context.Context, currency model.Currency) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var body map[string]awesomeQuote
	url := fmt.Sprintf("%s/last/%s-BRL", p.baseURL, currency)
	if _, err := request.GetJSON(ctx, url, &body); err != nil {
		return decimal.Zero, err
	}

	quote, ok := body[string(currency)+"BRL"]
	if !ok || quote.Bid == "" {
		return decimal.Zero, ErrMissingRate
	}
	rate, err := decimal.NewFromString(quote.Bid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid bid %q: %w", quote.Bid, err)
	}
	return validRate(p.GetName(), currency, rate)
}

// ExchangeRateAPIProvider reads rates.BRL from api.exchangerate-api.com.
type ExchangeRateAPIProvider struct {
	baseURL string
	timeout time.Duration
}

func NewExchangeRateAPIProvider(baseURL string, timeout time.Duration) *ExchangeRateAPIProvider {
	return &ExchangeRateAPIProvider{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (p *ExchangeRateAPIProvider) GetName() string {
	return SourceExchangeRateAPI
}

type latestRates struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (p *ExchangeRateAPIProvider) GetRate(ctx context.Context, currency model.Currency) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var body latestRates
	url := fmt.Sprintf("%s/v4/latest/%s", p.baseURL, currency)
	if _, err := request.GetJSON(ctx, url, &body); err != nil {
		return decimal.Zero, err
	}

	rate, ok := body.Rates[string(model.BRL)]
	if !ok {
		return decimal.Zero, ErrMissingRate
	}
	return validRate(p.GetName(), currency, rate)
}

// FloorProvider answers from a fixed table of last-resort prices.
type FloorProvider struct {
	floors map[model.Currency]decimal.Decimal
}

func NewFloorProvider(floors map[string]decimal.Decimal) *FloorProvider {
	f := &FloorProvider{floors: make(map[model.Currency]decimal.Decimal, len(floors))}
	for code, v := range floors {
		f.floors[model.ParseCurrency(code)] = v
	}
	return f
}

func (f *FloorProvider) GetName() string {
	return SourceFloor
}

func (f *FloorProvider) GetRate(_ context.Context, currency model.Currency) (decimal.Decimal, error) {
	v, ok := f.floors[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w for %s", ErrNoFloor, currency)
	}
	return v, nil
}
