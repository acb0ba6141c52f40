package config

type Config struct {
	// пустой адрес: хранилище в памяти процесса
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix     string `yaml:"key_prefix" env:"IDEMPOTENCY_KEY_PREFIX" env-default:"shopsync:webhook:"`
}
