package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/store-ledger/internal/queue"
	"github.com/nimasrn/store-ledger/pkg/logger"
	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"

var config *Config

// Config holds every setting the binaries read. Nothing else in the module
// reads the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=store_ledger"`
	AppDebug            bool   `env:"APP_DEBUG,default=1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogEncoding string `env:"LOG_ENCODING,default=json"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpServerReadTimeout     int           `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int           `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`
	HttpRequestTimeout        time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=5s"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	PostgresSSLMode         string        `env:"POSTGRES_SSLMODE,default=disable"`
	PostgresMaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS,default=25"`
	PostgresMaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS,default=10"`
	PostgresConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME,default=30m"`
	PostgresSlowQuery       time.Duration `env:"POSTGRES_SLOW_QUERY,default=200ms"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace  string `env:"PROM_NAMESPACE,default=store_ledger"`
	PromListenAddr string `env:"PROM_LISTEN_ADDR,default=:9100"`
	PromPath       string `env:"PROM_PATH,default=/metrics"`

	QueueName              string        `env:"QUEUE_NAME,default=stock-alerts"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=stock-alert-processors"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueConsumers         int           `env:"QUEUE_CONSUMERS,default=2"`
	QueueWorkers           int           `env:"QUEUE_WORKERS,default=8"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`

	AlertCooldown time.Duration `env:"ALERT_COOLDOWN,default=1h"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	if err = c.validate(); err != nil {
		return err
	}

	config = c
	return nil
}

func (c *Config) validate() error {
	if c.HttpListenAddr == "" {
		c.HttpListenAddr = ":8080"
	}
	if c.PostgresWriteHost == "" {
		return errors.New("POSTGRES_WRITE_HOST is required")
	}
	if c.PostgresReadHost == "" {
		c.PostgresReadHost = c.PostgresWriteHost
		c.PostgresReadPort = c.PostgresWritePort
		c.PostgresReadUser = c.PostgresWriteUser
		c.PostgresReadPassword = c.PostgresWritePassword
		c.PostgresReadDatabase = c.PostgresWriteDatabase
	}
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set installs c as the active configuration. Used by tests and tooling.
func Set(c *Config) {
	config = c
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:            c.PostgresReadUser,
		Host:            c.PostgresReadHost,
		Port:            c.PostgresReadPort,
		Password:        c.PostgresReadPassword,
		Database:        c.PostgresReadDatabase,
		SSLMode:         c.PostgresSSLMode,
		MaxOpenConns:    c.PostgresMaxOpenConns,
		MaxIdleConns:    c.PostgresMaxIdleConns,
		ConnMaxLifetime: c.PostgresConnMaxLifetime,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:            c.PostgresWriteUser,
		Host:            c.PostgresWriteHost,
		Port:            c.PostgresWritePort,
		Password:        c.PostgresWritePassword,
		Database:        c.PostgresWriteDatabase,
		SSLMode:         c.PostgresSSLMode,
		MaxOpenConns:    c.PostgresMaxOpenConns,
		MaxIdleConns:    c.PostgresMaxIdleConns,
		ConnMaxLifetime: c.PostgresConnMaxLifetime,
	}
}

// AlertQueue is the stream configuration shared by the api publisher and the
// processor consumers.
func (c *Config) AlertQueue() queue.QueueConfig {
	return queue.QueueConfig{
		Name:              c.QueueName,
		ConsumerGroup:     c.QueueConsumerGroup,
		ConsumerName:      c.QueueConsumerName,
		MaxRetries:        c.QueueMaxRetries,
		VisibilityTimeout: c.QueueVisibilityTimeout,
		PollInterval:      c.QueuePollInterval,
		BatchSize:         c.QueueBatchSize,
		MaxLen:            c.QueueMaxLen,
		EnableDLQ:         c.QueueEnableDLQ,
	}
}
