package config

import "time"

type Config struct {
	ServerAddr      string        `yaml:"server_addr" env:"RUN_ADDRESS" env-default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}
