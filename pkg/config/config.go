package config

// Chat definition chat_service YAML structure
type Chat struct {
	Port   string         `mapstructure:"port"`
	Mongo  DatabaseConfig `mapstructure:"mongo"`
	Redis  RedisConfig    `mapstructure:"redis"`
	Kafka  KafkaConfig    `mapstructure:"kafka"`
	MinIO  MinIOConfig    `mapstructure:"minio"`
	Upload UploadConfig   `mapstructure:"upload"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition message archive stream setting
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// UploadConfig definition image host setting.
// Provider selects the image host: "freeimage" or "minio".
type UploadConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}
