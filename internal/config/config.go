package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values come from defaults, an optional config.yaml, a .env file and the
// environment, later sources winning.
type Config struct {
	Port             string        `mapstructure:"PORT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	OperationTimeout time.Duration `mapstructure:"OPERATION_TIMEOUT"`

	Store     StoreConfig     `mapstructure:"STORE"`
	Redis     RedisConfig     `mapstructure:"REDIS"`
	Kafka     KafkaConfig     `mapstructure:"KAFKA"`
	CORS      CORSConfig      `mapstructure:"CORS"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT"`
	Repair    RepairConfig    `mapstructure:"REPAIR"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend          string `mapstructure:"BACKEND"` // "memory", "mongo" or "firestore"
	MongoURI         string `mapstructure:"MONGO_URI"`
	MongoDatabase    string `mapstructure:"MONGO_DATABASE"`
	FirestoreProject string `mapstructure:"FIRESTORE_PROJECT"`
	CredentialsFile  string `mapstructure:"CREDENTIALS_FILE"`
}

// RedisConfig enables the shared status cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"ADDR"`
	Password string        `mapstructure:"PASSWORD"`
	DB       int           `mapstructure:"DB"`
	TTL      time.Duration `mapstructure:"TTL"`
}

// KafkaConfig enables relationship events when Brokers is not empty.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"BROKERS"`
	ClientID string   `mapstructure:"CLIENT_ID"`
	Protocol string   `mapstructure:"PROTOCOL"`
	Topic    string   `mapstructure:"TOPIC"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
}

// RateLimitConfig bounds mutating requests per user.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"PER_SECOND"`
	Burst     int     `mapstructure:"BURST"`
}

// RepairConfig schedules the reconciliation jobs. An empty Schedule keeps
// them manual.
type RepairConfig struct {
	Schedule string `mapstructure:"SCHEDULE"`
}

// LoadConfig reads configuration. path may name a config file; when empty,
// config.yaml is looked up in ./config and the working directory.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment")
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("OPERATION_TIMEOUT", 20*time.Second)

	v.SetDefault("STORE.BACKEND", "memory")
	v.SetDefault("STORE.MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("STORE.MONGO_DATABASE", "social_graph")
	v.SetDefault("STORE.FIRESTORE_PROJECT", "")
	v.SetDefault("STORE.CREDENTIALS_FILE", "")

	v.SetDefault("REDIS.ADDR", "")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.TTL", 5*time.Minute)

	v.SetDefault("KAFKA.BROKERS", []string{})
	v.SetDefault("KAFKA.CLIENT_ID", "social-graph")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.TOPIC", "social-graph-relationships")

	v.SetDefault("CORS.ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	v.SetDefault("RATE_LIMIT.PER_SECOND", 5.0)
	v.SetDefault("RATE_LIMIT.BURST", 10)

	v.SetDefault("REPAIR.SCHEDULE", "")
}
