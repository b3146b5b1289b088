// Package config описывает настройки gate-api и клиентской оболочки и загружает их из YAML-файла.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config настройки gate-api.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Gate                    `yaml:"gate"`
}

// ClientConfig настройки клиентской оболочки kuitter.
type ClientConfig struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Backend    `yaml:"backend"`
	LocalStore `yaml:"local_store"`
	Gate       `yaml:"gate"`
}

// HTTPServer настройки HTTP-сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"5"`
	RateBurst   int           `yaml:"rate_burst" env-default:"10"`
}

// RedisConnection настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	KeyPrefix    string        `yaml:"key_prefix" env-default:"kuitter"`
}

// JWTToken настройки проверки access-токенов.
type JWTToken struct {
	JWTSecretKey string `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	Issuer       string `yaml:"issuer"`
}

// RabbitMQ настройки публикации доменных событий. Пустой URL отключает публикацию.
type RabbitMQ struct {
	RabbitURL      string        `yaml:"url" env:"RABBITMQ_URL"`
	Exchange       string        `yaml:"exchange" env-default:"kuitter.events"`
	ConnectRetries int           `yaml:"connect_retries" env-default:"5"`
	ConnectDelay   time.Duration `yaml:"connect_delay" env-default:"2s"`
	Audit          bool          `yaml:"audit" env-default:"false"`
	AuditWorkers   int           `yaml:"audit_workers" env-default:"4"`
}

// Gate настройки роутера: длительность пробного периода и политики отказа гейтов.
type Gate struct {
	TrialDuration    time.Duration `yaml:"trial_duration" env-default:"72h"`
	ProfilePolicy    string        `yaml:"profile_policy" env-default:"fail_closed"`
	OnboardingPolicy string        `yaml:"onboarding_policy" env-default:"fail_closed"`
	GoalsPolicy      string        `yaml:"goals_policy" env-default:"fail_closed"`
}

// Backend настройки доступа клиента к хостинговому бэкенду.
type Backend struct {
	BackendURL     string        `yaml:"url" env:"KUITTER_API_URL"`
	AnonKey        string        `yaml:"anon_key" env:"KUITTER_ANON_KEY"`
	TimeoutBackend time.Duration `yaml:"timeout" env-default:"15s"`
	RefreshMargin  time.Duration `yaml:"refresh_margin" env-default:"60s"`
}

// LocalStore настройки локального key-value хранилища устройства.
type LocalStore struct {
	LocalStorePath  string `yaml:"path" env:"KUITTER_STORE_PATH" env-default:"kuitter.db"`
	DeviceNamespace string `yaml:"device_namespace" env-default:"device"`
}

// Load читает конфиг gate-api из файла path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("config.Load: jwt_secret_key is required")
	}
	return &cfg, nil
}

// LoadClient читает конфиг клиентской оболочки из файла path.
func LoadClient(path string) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := read(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("config.LoadClient: backend url is required")
	}
	return &cfg, nil
}

func read(path string, cfg any) error {
	const op = "config.read"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s: file %s does not exist", op, path)
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MustLoad загружает конфиг gate-api по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	cfg, err := Load(mustPath())
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func mustPath() string {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	return configPath
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  KeyPrefix: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"Gate:\n"+
			"  TrialDuration: %s\n"+
			"  Policies: profile=%s onboarding=%s goals=%s\n",
		c.Env,
		redact(c.StorageConnectionString),
		c.AddressRedis,
		c.DB,
		c.KeyPrefix,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Exchange,
		c.TrialDuration,
		c.ProfilePolicy,
		c.OnboardingPolicy,
		c.GoalsPolicy,
	)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
