package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Загрузка конфигурации из config.yaml через cleanenv

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Publication  PublicationConfig  `yaml:"publication"`
	Logger       LoggerConfig       `yaml:"logger"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"  env-default:"info"` // debug|info|warn|error
	Format string `yaml:"format" env-default:"text"` // text|json
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env-default:"localhost"`
	Port            int           `yaml:"port" env-default:"5432"`
	User            string        `yaml:"user" env-default:"postgres"`
	Password        string        `yaml:"password" env-default:"postgres"`
	DBName          string        `yaml:"dbname" env-default:"postplanner"`
	SSLMode         string        `yaml:"sslmode" env-default:"disable"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	MaxConns        int32         `yaml:"max_conns" env-default:"10"`
	MinConns        int32         `yaml:"min_conns" env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"30m"`
}

type TelegramConfig struct {
	Token           string        `yaml:"token" env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	AdminID         int64         `yaml:"admin_id" env:"ADMIN_ID"`
	PrivateChannel  int64         `yaml:"private_channel_id" env:"PRIVATE_CHANNEL_ID"`
	InviteLink      string        `yaml:"private_channel_link" env:"PRIVATE_CHANNEL_LINK"`
	LongPollTimeout time.Duration `yaml:"long_poll_timeout" env-default:"10s"`
	NotifyRate      float64       `yaml:"notify_rate" env-default:"25"` // сообщений в секунду
	// Ретраи при конфликте (второй инстанс уже запущен)
	ConflictRetries int           `yaml:"conflict_retries" env-default:"3"`
	ConflictBackoff time.Duration `yaml:"conflict_backoff" env-default:"10s"`
}

type SubscriptionConfig struct {
	// SweepInterval — период обхода истёкших подписок.
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"30m"`
	// GracePeriod — отсрочка после истечения, до отзыва доступа.
	GracePeriod time.Duration `yaml:"grace_period" env-default:"2h"`
	// GatewayTimeout — таймаут на вызовы ban/unban.
	GatewayTimeout time.Duration `yaml:"gateway_timeout" env-default:"30s"`
}

type PublicationConfig struct {
	// GatewayTimeout — таймаут на отправку поста в канал.
	GatewayTimeout time.Duration `yaml:"gateway_timeout" env-default:"30s"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Try to read from config file if specified
	configPath := fetchConfigPath()
	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
			return nil, err
		}
	}

	// Read from environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "c", "", "config file path")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
