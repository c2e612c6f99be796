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
	"embed"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/webedmilson/bancoCred/config"
	"github.com/webedmilson/bancoCred/database"
	"github.com/webedmilson/bancoCred/internal/cache"
	"github.com/webedmilson/bancoCred/internal/events"
	"github.com/webedmilson/bancoCred/internal/notification"
	redis_db "github.com/webedmilson/bancoCred/internal/redis-db"
	"github.com/webedmilson/bancoCred/rates"
)

// BancoCred is the ledger service. It owns the account store, the Redis
// client used for advisory locks and rate caching, the rate oracle and the
// event publisher.
type BancoCred struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	oracle     rates.Source
	publisher  events.Publisher
	config     *config.Configuration
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewBancoCred wires the service from the loaded configuration. Kafka is only
// used when brokers are configured.
func NewBancoCred(db database.IDataSource) (*BancoCred, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	oracle := rates.NewOracleFromConfig(configuration.Rates, cache.NewRedisCache(redisClient.Client()))

	var publisher events.Publisher = events.NoopPublisher{}
	if len(configuration.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(configuration.Kafka.Brokers, configuration.Kafka.Topic)
	}

	notification.RegisterWebhookSender(func(event string, payload interface{}) error {
		return SendWebhook(NewWebhook{Event: event, Payload: payload})
	})

	return &BancoCred{
		datasource: db,
		redis:      redisClient.Client(),
		oracle:     oracle,
		publisher:  publisher,
		config:     configuration,
	}, nil
}

// SetRateSource replaces the rate oracle.
func (b *BancoCred) SetRateSource(source rates.Source) {
	b.oracle = source
}

// SetPublisher replaces the event publisher.
func (b *BancoCred) SetPublisher(publisher events.Publisher) {
	b.publisher = publisher
}

// Close releases the publisher and the Redis client.
func (b *BancoCred) Close() error {
	var redisErr error
	if b.redis != nil {
		redisErr = b.redis.Close()
	}
	return errors.Join(b.publisher.Close(), redisErr)
}
