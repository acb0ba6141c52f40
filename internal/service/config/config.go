package config

import "time"

type Config struct {
	// вебхук создания заказа (create_order_webhook)
	OrderWebhookEnabled bool `yaml:"order_webhook_enabled" env:"ORDER_WEBHOOK_ENABLED" env-default:"true"`
	// отправка заказа в ERP (erp_create_order_enabled)
	ERPPushEnabled  bool          `yaml:"erp_push_enabled" env:"ERP_PUSH_ENABLED" env-default:"true"`
	WebhookDedupTTL time.Duration `yaml:"webhook_dedup_ttl" env:"WEBHOOK_DEDUP_TTL" env-default:"24h"`
}
