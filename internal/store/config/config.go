package config

type Config struct {
	DBDsn   string `yaml:"db_dsn" env:"DATABASE_URI"`
	Migrate bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}
