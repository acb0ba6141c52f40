package config

import "time"

type Config struct {
	Timeout      time.Duration `yaml:"timeout" env:"ERP_TIMEOUT" env-default:"15s"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"ERP_TOKEN_TTL" env-default:"5m"`
	DefaultPhone string        `yaml:"default_phone" env:"ERP_DEFAULT_PHONE" env-default:"123456789"`
}
