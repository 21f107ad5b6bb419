package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Backup   BackupConfig   `yaml:"backup"`
	Report   ReportConfig   `yaml:"report"`
	Taxi     TaxiConfig     `yaml:"taxi"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	// AdminDBName: служебная БД, через которую создаётся/удаляется DBName.
	AdminDBName           string `yaml:"admin_name"`
	SSLMode               string `yaml:"ssl_mode"`
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	OrderChangedTopicName string `yaml:"order_changed_topic_name"`
	OrderIntakeTopicName  string `yaml:"order_intake_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BackupConfig struct {
	Container       string   `yaml:"container"`
	User            string   `yaml:"user"`
	Dir             string   `yaml:"dir"`
	Schedule        string   `yaml:"schedule"`
	MaxDumpsPerHour int      `yaml:"max_dumps_per_hour"`
	S3              S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

type ReportConfig struct {
	Dir      string `yaml:"dir"`
	Title    string `yaml:"title"`
	FontPath string `yaml:"font_path"`
}

type TaxiConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	// 0: кэш списков выключен.
	ListCacheTTLSeconds int    `yaml:"list_cache_ttl_seconds"`
	LogLevel            string `yaml:"log_level"`
}

func LoadConfig(filename string) (*Config, error) {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TAXI_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("TAXI_S3_ACCESS_KEY"); v != "" {
		c.Backup.S3.AccessKey = v
	}
	if v := os.Getenv("TAXI_S3_SECRET_KEY"); v != "" {
		c.Backup.S3.SecretKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Username == "" {
		c.Database.Username = "postgres"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "taxi_orders"
	}
	if c.Database.AdminDBName == "" {
		c.Database.AdminDBName = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Kafka.OrderChangedTopicName == "" {
		c.Kafka.OrderChangedTopicName = "orders.changed"
	}
	if c.Kafka.OrderIntakeTopicName == "" {
		c.Kafka.OrderIntakeTopicName = "orders.intake"
	}

	if c.Backup.User == "" {
		c.Backup.User = c.Database.Username
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = "backups"
	}

	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Report.Title == "" {
		c.Report.Title = "Orders export"
	}

	if c.Taxi.HTTPAddr == "" {
		c.Taxi.HTTPAddr = ":8080"
	}
	if c.Taxi.WorkerHTTPAddr == "" {
		c.Taxi.WorkerHTTPAddr = ":8082"
	}
	if c.Taxi.KafkaConsumerGroup == "" {
		c.Taxi.KafkaConsumerGroup = "taxi-api"
	}
	if c.Taxi.LogLevel == "" {
		c.Taxi.LogLevel = "info"
	}
}
