package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName    string `env:"APP_NAME" env-default:"firestore-connector"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// Firestore
	ProjectID       string `env:"FIRESTORE_PROJECT_ID" env-default:""`
	CredentialsPath string `env:"FIRESTORE_CREDENTIALS_PATH" env-default:""`

	// Store access
	StoreRetryAttempts uint          `env:"STORE_RETRY_ATTEMPTS" env-default:"1"`
	StoreRetryDelay    time.Duration `env:"STORE_RETRY_DELAY" env-default:"5s"`
	StoreFetchPageSize int           `env:"STORE_FETCH_PAGE_SIZE" env-default:"20000"`

	// Kafka Producer (history change events)
	KafkaEventsEnabled bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"false"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaTopic         string   `env:"KAFKA_TOPIC" env-default:"history-events"`
	KafkaBatchSize     int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout  int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks  int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression   string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
}

// Load reads configuration from the environment, honoring a local .env file
// when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
