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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"

	DefaultPrimaryRateURL  = "https://economia.awesomeapi.com.br"
	DefaultFallbackRateURL = "https://api.exchangerate-api.com"
	DefaultRateTimeoutSec  = 3
	DefaultRateCacheTTLSec = 60

	DefaultLockDurationSec    = 30
	DefaultLockWaitTimeoutSec = 10

	DefaultKafkaTopic = "bancocred.ledger"

	DefaultWorkerConcurrency = 5
	DefaultMonitoringPort    = "5004"
)

// DefaultRateFloors are the last-resort prices, in BRL, used when no live
// provider answers.
var DefaultRateFloors = map[string]string{
	"USD": "5.80",
	"EUR": "6.20",
}

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"BANCOCRED_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"BANCOCRED_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"BANCOCRED_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"BANCOCRED_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"BANCOCRED_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"BANCOCRED_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"BANCOCRED_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"BANCOCRED_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"BANCOCRED_REDIS_SKIP_TLS_VERIFY"`
}

// RatesConfig drives the rate oracle. Floors maps a currency code to a
// decimal string.
type RatesConfig struct {
	PrimaryURL  string            `json:"primary_url" envconfig:"BANCOCRED_RATES_PRIMARY_URL"`
	FallbackURL string            `json:"fallback_url" envconfig:"BANCOCRED_RATES_FALLBACK_URL"`
	TimeoutSec  int               `json:"timeout_sec" envconfig:"BANCOCRED_RATES_TIMEOUT_SEC"`
	CacheTTLSec *int              `json:"cache_ttl_sec" envconfig:"BANCOCRED_RATES_CACHE_TTL_SEC"`
	Floors      map[string]string `json:"floors" envconfig:"BANCOCRED_RATES_FLOORS"`
}

type TransactionConfig struct {
	LockDurationSec    int  `json:"lock_duration_sec" envconfig:"BANCOCRED_TRANSACTION_LOCK_DURATION_SEC"`
	LockWaitTimeoutSec int  `json:"lock_wait_timeout_sec" envconfig:"BANCOCRED_TRANSACTION_LOCK_WAIT_TIMEOUT_SEC"`
	DisableRedisLock   bool `json:"disable_redis_lock" envconfig:"BANCOCRED_TRANSACTION_DISABLE_REDIS_LOCK"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers" envconfig:"BANCOCRED_KAFKA_BROKERS"`
	Topic   string   `json:"topic" envconfig:"BANCOCRED_KAFKA_TOPIC"`
}

// WorkerConfig drives the asynq worker started by the workers command.
type WorkerConfig struct {
	Concurrency    int    `json:"concurrency" envconfig:"BANCOCRED_WORKER_CONCURRENCY"`
	MonitoringPort string `json:"monitoring_port" envconfig:"BANCOCRED_WORKER_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"BANCOCRED_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"BANCOCRED_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"BANCOCRED_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"BANCOCRED_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"BANCOCRED_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName     string            `json:"project_name" envconfig:"BANCOCRED_PROJECT_NAME"`
	Server          ServerConfig      `json:"server"`
	DataSource      DataSourceConfig  `json:"data_source"`
	Redis           RedisConfig       `json:"redis"`
	Rates           RatesConfig       `json:"rates"`
	Transaction     TransactionConfig `json:"transaction"`
	Kafka           KafkaConfig       `json:"kafka"`
	Worker          WorkerConfig      `json:"worker"`
	Notification    Notification      `json:"notification"`
	RateLimit       RateLimitConfig   `json:"rate_limit"`
	EnableTelemetry bool              `json:"enable_telemetry" envconfig:"BANCOCRED_ENABLE_TELEMETRY"`
	EnableMetrics   bool              `json:"enable_metrics" envconfig:"BANCOCRED_ENABLE_METRICS"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("bancocred", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called bancocred.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "BancoCred Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if err := cnf.Rates.addDefaults(); err != nil {
		return err
	}

	if cnf.Transaction.LockDurationSec <= 0 {
		cnf.Transaction.LockDurationSec = DefaultLockDurationSec
	}
	if cnf.Transaction.LockWaitTimeoutSec <= 0 {
		cnf.Transaction.LockWaitTimeoutSec = DefaultLockWaitTimeoutSec
	}

	if cnf.Worker.Concurrency <= 0 {
		cnf.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cnf.Worker.MonitoringPort == "" {
		cnf.Worker.MonitoringPort = DefaultMonitoringPort
	}
	if len(cnf.Kafka.Brokers) > 0 && cnf.Kafka.Topic == "" {
		cnf.Kafka.Topic = DefaultKafkaTopic
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (r *RatesConfig) addDefaults() error {
	if r.PrimaryURL == "" {
		r.PrimaryURL = DefaultPrimaryRateURL
	}
	if r.FallbackURL == "" {
		r.FallbackURL = DefaultFallbackRateURL
	}
	r.PrimaryURL = strings.TrimRight(strings.TrimSpace(r.PrimaryURL), "/")
	r.FallbackURL = strings.TrimRight(strings.TrimSpace(r.FallbackURL), "/")

	if r.TimeoutSec <= 0 {
		r.TimeoutSec = DefaultRateTimeoutSec
	}
	if r.CacheTTLSec == nil {
		ttl := DefaultRateCacheTTLSec
		r.CacheTTLSec = &ttl
	}
	if r.Floors == nil {
		r.Floors = make(map[string]string, len(DefaultRateFloors))
		for k, v := range DefaultRateFloors {
			r.Floors[k] = v
		}
	}
	for code, value := range r.Floors {
		d, err := decimal.NewFromString(value)
		if err != nil || !d.IsPositive() {
			return fmt.Errorf("invalid rate floor for %s: %q", code, value)
		}
	}
	return nil
}

// FloorValues returns the configured floors keyed by upper-case code. Invalid
// entries are skipped; validateAndAddDefaults rejects them at load time.
func (r RatesConfig) FloorValues() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Floors))
	for code, value := range r.Floors {
		d, err := decimal.NewFromString(value)
		if err != nil {
			continue
		}
		out[strings.ToUpper(code)] = d
	}
	return out
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
