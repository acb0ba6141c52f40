package config

type Config struct {
	// base64, 32 байта
	Key string `yaml:"key" env:"SECRET_KEY"`
}
