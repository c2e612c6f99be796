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
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/internal/apierror"
	"github.com/webedmilson/bancoCred/internal/cache"
	"github.com/webedmilson/bancoCred/internal/metrics"
	"github.com/webedmilson/bancoCred/model"
)

// Source is anything able to quote a currency in BRL.
type Source interface {
	GetRate(ctx context.Context, currency model.Currency) (model.Quote, error)
}

// Oracle walks its providers in order and falls back to the safety floor.
// Quotes from live providers may be cached; floor quotes never are.
type Oracle struct {
	providers []Provider
	floor     Provider
	cache     cache.Cache
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Oracle)

// WithCache enables caching of live quotes for ttl. A zero ttl disables it.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *Oracle) {
		if ttl > 0 {
			o.cache = c
			o.ttl = ttl
		}
	}
}

// WithFloor sets the last-resort provider.
func WithFloor(floor Provider) Option {
	return func(o *Oracle) {
		o.floor = floor
	}
}

func NewOracle(providers []Provider, opts ...Option) *Oracle {
	o := &Oracle{providers: providers, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewOracleFromConfig builds the AwesomeAPI, ExchangeRate-API and floor chain
// described by cfg. c may be nil.
func NewOracleFromConfig(cfg config.RatesConfig, c cache.Cache) *Oracle {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	opts := []Option{WithFloor(NewFloorProvider(cfg.FloorValues()))}
	if c != nil && cfg.CacheTTLSec != nil {
		opts = append(opts, WithCache(c, time.Duration(*cfg.CacheTTLSec)*time.Second))
	}
	return NewOracle([]Provider{
		NewAwesomeAPIProvider(cfg.PrimaryURL, timeout),
		NewExchangeRateAPIProvider(cfg.FallbackURL, timeout),
	}, opts...)
}

func cacheKey(currency model.Currency) string {
	return fmt.Sprintf("rates:%s", currency)
}

// cachedQuote keeps the rate as a string so the cache codec never has to deal
// with decimal internals.
type cachedQuote struct {
	Value     string    `json:"value"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (o *Oracle) fromCache(ctx context.Context, currency model.Currency) (model.Quote, bool) {
	var cached cachedQuote
	err := o.cache.Get(ctx, cacheKey(currency), &cached)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logrus.WithError(err).Warn("rate cache read failed")
		}
		return model.Quote{}, false
	}
	value, err := decimal.NewFromString(cached.Value)
	if err != nil || !value.IsPositive() {
		return model.Quote{}, false
	}
	return model.Quote{Currency: currency, Value: value, Source: cached.Source, FetchedAt: cached.FetchedAt}, true
}

func (o *Oracle) toCache(ctx context.Context, q model.Quote) {
	cached := cachedQuote{Value: q.Value.String(), Source: q.Source, FetchedAt: q.FetchedAt}
	if err := o.cache.Set(ctx, cacheKey(q.Currency), cached, o.ttl); err != nil {
		logrus.WithError(err).Warn("rate cache write failed")
	}
}

func (o *Oracle) GetRate(ctx context.Context, currency model.Currency) (model.Quote, error) {
	if o.cache != nil {
		if q, ok := o.fromCache(ctx, currency); ok {
			metrics.RateLookupsTotal.WithLabelValues(string(currency), q.Source).Inc()
			return q, nil
		}
	}

	var lastErr error
	for _, p := range o.providers {
		value, err := p.GetRate(ctx, currency)
		if err != nil {
			lastErr = err
			metrics.RateProviderFailuresTotal.WithLabelValues(p.GetName(), string(currency)).Inc()
			logrus.WithFields(logrus.Fields{
				"provider": p.GetName(),
				"currency": currency,
			}).WithError(err).Warn("exchange rate provider failed, trying next source")
			continue
		}

		quote := o.quote(currency, value, p.GetName())
		if o.cache != nil {
			o.toCache(ctx, quote)
		}
		return quote, nil
	}

	if o.floor != nil {
		value, err := o.floor.GetRate(ctx, currency)
		if err == nil {
			logrus.WithField("currency", currency).Warn("all exchange rate providers failed, using safety floor")
			return o.quote(currency, value, o.floor.GetName()), nil
		}
		lastErr = errors.Join(lastErr, err)
	}

	return model.Quote{}, apierror.NewAPIError(apierror.ErrServiceUnavailable,
		fmt.Sprintf("exchange rate unavailable for %s", currency), lastErr)
}

func (o *Oracle) quote(currency model.Currency, value decimal.Decimal, source string) model.Quote {
	metrics.RateLookupsTotal.WithLabelValues(string(currency), source).Inc()
	return model.Quote{Currency: currency, Value: value, Source: source, FetchedAt: o.now().UTC()}
}
