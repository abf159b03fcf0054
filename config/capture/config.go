package config

import "github.com/ilyakaznacheev/cleanenv"

type Config struct {
	Port          int         `env:"PORT" env-default:"8080"`
	HandoffPrefix string      `env:"HANDOFF_PREFIX" env-default:"tubescribe"`
	HandoffTTLMin int         `env:"HANDOFF_TTL_MINUTES" env-default:"10"`
	Redis         RedisConfig `env-prefix:"REDIS_"`
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
