package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	auditConfig "github.com/iurnickita/shopsync/internal/auditlog/config"
	discountConfig "github.com/iurnickita/shopsync/internal/discount/config"
	handlerConfig "github.com/iurnickita/shopsync/internal/handler/config"
	idempotencyConfig "github.com/iurnickita/shopsync/internal/idempotency/config"
	loggerConfig "github.com/iurnickita/shopsync/internal/logger/config"
	secretConfig "github.com/iurnickita/shopsync/internal/secret/config"
	serviceConfig "github.com/iurnickita/shopsync/internal/service/config"
	erpConfig "github.com/iurnickita/shopsync/internal/service/erpclient/config"
	shopifyConfig "github.com/iurnickita/shopsync/internal/service/shopifyclient/config"
	storeConfig "github.com/iurnickita/shopsync/internal/store/config"
)

// переменная окружения с путём к yaml-файлу конфигурации
const configPathEnv = "SHOPSYNC_CONFIG_PATH"

type Config struct {
	Handler     handlerConfig.Config     `yaml:"handler"`
	Service     serviceConfig.Config     `yaml:"service"`
	Store       storeConfig.Config       `yaml:"store"`
	Logger      loggerConfig.Config      `yaml:"logger"`
	Shopify     shopifyConfig.Config     `yaml:"shopify"`
	ERP         erpConfig.Config         `yaml:"erp"`
	Discount    discountConfig.Config    `yaml:"discount"`
	Audit       auditConfig.Config       `yaml:"audit"`
	Idempotency idempotencyConfig.Config `yaml:"idempotency"`
	Secret      secretConfig.Config      `yaml:"secret"`
}

func GetConfig() (Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv(configPathEnv); path != "" {
		// файл, затем переменные окружения поверх него
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
