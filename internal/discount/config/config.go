package config

import "time"

type Config struct {
	SweepInterval    time.Duration `yaml:"sweep_interval" env:"DISCOUNT_SWEEP_INTERVAL" env-default:"1h"`
	SweepConcurrency int           `yaml:"sweep_concurrency" env:"DISCOUNT_SWEEP_CONCURRENCY" env-default:"4"`
}
