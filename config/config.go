package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Reservation ReservationConfig `yaml:"reservation"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Worker      WorkerConfig      `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers                 []string `yaml:"brokers"`
	RegistrationEventsTopic string   `yaml:"registration_events_topic"`
	NotificationsTopic      string   `yaml:"notifications_topic"`
	GroupID                 string   `yaml:"group_id"`
}

type ReservationConfig struct {
	HoldTTLMinutes          int `yaml:"hold_ttl_minutes"`
	CapacityCacheTTLSeconds int `yaml:"capacity_cache_ttl_seconds"`
	LockTTLSeconds          int `yaml:"lock_ttl_seconds"`
	LockRetries             int `yaml:"lock_retries"`
	LockRetryDelayMillis    int `yaml:"lock_retry_delay_millis"`
}

type WebhookConfig struct {
	SigningSecret    string `yaml:"signing_secret"`
	ToleranceSeconds int    `yaml:"tolerance_seconds"`
}

type WorkerConfig struct {
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
