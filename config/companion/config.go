package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port          int    `env:"PORT" env-default:"8081"`
	HandoffPrefix string `env:"HANDOFF_PREFIX" env-default:"tubescribe"`
	Backend       string `env:"STORAGE_BACKEND" env-default:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" env-default:"companion.db"`
	StoreURL      string `env:"STORE_URL"`
	StoreToken    string `env:"STORE_TOKEN"`
	Database      DatabaseConfig
	Redis         RedisConfig `env-prefix:"REDIS_"`
}

type DatabaseConfig struct {
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST"`
	Name     string `env:"DB_NAME"`
	Port     int    `env:"DB_PORT" env-default:"5432"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" env-default:"6379"`
	Password string `env:"PASSWORD"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

func MustLoad() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("failed to read environment variables: " + err.Error())
	}
	return &cfg
}
