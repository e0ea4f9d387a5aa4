package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sakashimaa/lesson-booking/pkg/utils"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env      string  `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP    `yaml:"http"`
	Store    Store   `yaml:"store"`
	Mongo    Mongo   `yaml:"mongo"`
	Postgres PG      `yaml:"postgres"`
	Redis    Redis   `yaml:"redis"`
	Kafka    Kafka   `yaml:"kafka"`
	Limiter  Limiter `yaml:"limiter"`
	Tracing  Tracing `yaml:"tracing"`
	Seed     Seed    `yaml:"seed"`
}

type HTTP struct {
	Port        string        `yaml:"port" env:"PORT" env-default:":3000"`
	Timeout     time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"4s"`
	CORSOrigins string        `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`
	ImagesDir   string        `yaml:"images_dir" env:"IMAGES_DIR" env-default:"./public/images"`
}

type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"mongo"`
}

type Mongo struct {
	URI                    string        `yaml:"uri" env:"MONGODB_URI"`
	Database               string        `yaml:"database" env:"DB_NAME" env-default:"cst3144"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env-default:"20s"`
	SocketTimeout          time.Duration `yaml:"socket_timeout" env-default:"30s"`
}

type PG struct {
	URL        string `yaml:"url" env:"DB_URL"`
	Migrations string `yaml:"migrations" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

type Redis struct {
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"1m"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_ORDER_TOPIC" env-default:"order_events"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

type Tracing struct {
	Enabled  bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"JAEGER_ENDPOINT" env-default:"localhost:4318"`
}

type Seed struct {
	File string `yaml:"file" env:"SEED_FILE" env-default:"./seed/lessons.json"`
}

// Load reads the YAML file named by CONFIG_PATH (if it exists) and applies
// environment overrides on top of it.
func Load() (*Config, error) {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("error reading env config: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", configPath, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load for one-shot commands that cannot run without config.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// validate rejects settings nothing can recover from. A missing
// MONGODB_URI is left to the store so the API can still start degraded.
func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMongo:
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DB_URL is missing, set it in your .env file")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	return nil
}
