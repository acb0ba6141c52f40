package config

type Config struct {
	QueueSize    int      `yaml:"queue_size" env:"AUDIT_QUEUE_SIZE" env-default:"1024"`
	KafkaBrokers []string `yaml:"kafka_brokers" env:"AUDIT_KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"AUDIT_KAFKA_TOPIC" env-default:"shopsync.action-log"`
}
