package config

import "time"

type Config struct {
	APIVersion string `yaml:"api_version" env:"SHOPIFY_API_VERSION" env-default:"2025-07"`
	// http только для тестовых стендов
	Scheme       string        `yaml:"scheme" env:"SHOPIFY_SCHEME" env-default:"https"`
	Timeout      time.Duration `yaml:"timeout" env:"SHOPIFY_TIMEOUT" env-default:"30s"`
	MaxRetries   int           `yaml:"max_retries" env:"SHOPIFY_MAX_RETRIES" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"SHOPIFY_INITIAL_DELAY" env-default:"2s"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"SHOPIFY_MAX_DELAY" env-default:"60s"`
	// запросов в секунду на магазин
	RateLimit float64 `yaml:"rate_limit" env:"SHOPIFY_RATE_LIMIT" env-default:"2"`
	RateBurst int     `yaml:"rate_burst" env:"SHOPIFY_RATE_BURST" env-default:"4"`
	PageSize  int     `yaml:"page_size" env:"SHOPIFY_PAGE_SIZE" env-default:"250"`
}
