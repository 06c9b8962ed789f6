package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Storage           Storage `yaml:"storage"`
	Redis             Redis   `yaml:"redis"`
	SQLiteStoragePath string  `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"./ultimate.db"`
	Rules             Rules   `yaml:"rules"`
	Clock             Clock   `yaml:"clock"`
}

type Storage struct {
	// Driver is one of redis, sqlite or memory.
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"redis"`
	MaxTxAttempts int    `yaml:"max-tx-attempts" env:"STORAGE_MAX_TX_ATTEMPTS" env-default:"10"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Rules struct {
	ForfeitMinCells  int    `yaml:"forfeit-min-cells" env:"RULES_FORFEIT_MIN_CELLS" env-default:"18"`
	TimeoutTiebreak  string `yaml:"timeout-tiebreak" env:"RULES_TIMEOUT_TIEBREAK" env-default:"boards"`
	ChatHistoryLimit int    `yaml:"chat-history-limit" env:"RULES_CHAT_HISTORY_LIMIT" env-default:"100"`
}

type Clock struct {
	SweepInterval time.Duration `yaml:"sweep-interval" env:"CLOCK_SWEEP_INTERVAL" env-default:"1s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads the yaml file at path and applies environment overrides on top.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
