// Package config provides configuration management for ServiceHost.
package config

import (
	"os"
	"time"
)

// DefaultServiceName is the name registered with the service manager when
// none is configured.
const DefaultServiceName = "ServiceHost"

// Config is the root configuration structure (ServiceHost.json).
type Config struct {
	ServiceName   string          `json:"ServiceName"`
	Hostname      string          `json:"Hostname"`
	Heartbeat     HeartbeatConfig `json:"Heartbeat"`
	PublisherType string          `json:"PublisherType"` // "none", "file", "redis", or "kafka"
	File          FileConfig      `json:"File"`
	Redis         RedisConfig     `json:"Redis"`
	Kafka         KafkaConfig     `json:"Kafka"`
	SOCKSProxy    SOCKSConfig     `json:"SocksProxy"`
}

// HeartbeatConfig contains settings for the heartbeat worker.
type HeartbeatConfig struct {
	Interval     time.Duration `json:"Interval"`
	ProcessStats bool          `json:"ProcessStats"`
}

// FileConfig contains settings for the file publisher.
type FileConfig struct {
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	Console    bool   `json:"Console"`
}

// RedisConfig contains settings for the Redis publisher.
type RedisConfig struct {
	Address   string        `json:"Address"`
	Password  string        `json:"Password"`
	DB        int           `json:"DB"`
	KeyPrefix string        `json:"KeyPrefix"`
	TTL       time.Duration `json:"TTL"`
	Timeout   time.Duration `json:"Timeout"`
}

// KafkaConfig contains Kafka connection settings.
type KafkaConfig struct {
	Brokers       []string      `json:"Brokers"`
	Topic         string        `json:"Topic"`
	Compression   string        `json:"Compression"`
	RequiredAcks  int           `json:"RequiredAcks"`
	MaxRetries    int           `json:"MaxRetries"`
	RetryBackoff  time.Duration `json:"RetryBackoff"`
	Timeout       time.Duration `json:"Timeout"`
	EnableTLS     bool          `json:"EnableTLS"`
	TLSCertFile   string        `json:"TLSCertFile"`
	TLSKeyFile    string        `json:"TLSKeyFile"`
	TLSCAFile     string        `json:"TLSCAFile"`
	SASLEnabled   bool          `json:"SASLEnabled"`
	SASLMechanism string        `json:"SASLMechanism"`
	SASLUser      string        `json:"SASLUser"`
	SASLPassword  string        `json:"SASLPassword"`
}

// SOCKSConfig contains SOCKS5 proxy settings.
type SOCKSConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: DefaultServiceName,
		Heartbeat: HeartbeatConfig{
			Interval:     30 * time.Second,
			ProcessStats: true,
		},
		PublisherType: "file",
		File: FileConfig{
			FilePath:   "log/ServiceHost/events.jsonl",
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
		Redis: RedisConfig{
			Address:   "localhost:6379",
			KeyPrefix: "servicehost:",
			TTL:       5 * time.Minute,
			Timeout:   5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        "service-lifecycle",
			Compression:  "snappy",
			RequiredAcks: 1,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			Timeout:      10 * time.Second,
		},
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.ServiceName != "" {
		c.ServiceName = other.ServiceName
	}
	if other.Hostname != "" {
		c.Hostname = other.Hostname
	}
	if other.PublisherType != "" {
		c.PublisherType = other.PublisherType
	}

	// Heartbeat
	if other.Heartbeat.Interval != 0 {
		c.Heartbeat.Interval = other.Heartbeat.Interval
	}
	c.Heartbeat.ProcessStats = other.Heartbeat.ProcessStats

	// File
	if other.File.FilePath != "" {
		c.File.FilePath = other.File.FilePath
	}
	if other.File.MaxSizeMB != 0 {
		c.File.MaxSizeMB = other.File.MaxSizeMB
	}
	if other.File.MaxBackups != 0 {
		c.File.MaxBackups = other.File.MaxBackups
	}
	c.File.Console = other.File.Console

	// Redis
	if other.Redis.Address != "" {
		c.Redis.Address = other.Redis.Address
	}
	if other.Redis.Password != "" {
		c.Redis.Password = other.Redis.Password
	}
	if other.Redis.DB != 0 {
		c.Redis.DB = other.Redis.DB
	}
	if other.Redis.KeyPrefix != "" {
		c.Redis.KeyPrefix = other.Redis.KeyPrefix
	}
	if other.Redis.TTL != 0 {
		c.Redis.TTL = other.Redis.TTL
	}
	if other.Redis.Timeout != 0 {
		c.Redis.Timeout = other.Redis.Timeout
	}

	// Kafka
	if len(other.Kafka.Brokers) > 0 {
		c.Kafka.Brokers = other.Kafka.Brokers
	}
	if other.Kafka.Topic != "" {
		c.Kafka.Topic = other.Kafka.Topic
	}
	if other.Kafka.Compression != "" {
		c.Kafka.Compression = other.Kafka.Compression
	}
	c.Kafka.RequiredAcks = other.Kafka.RequiredAcks
	if other.Kafka.MaxRetries != 0 {
		c.Kafka.MaxRetries = other.Kafka.MaxRetries
	}
	if other.Kafka.RetryBackoff != 0 {
		c.Kafka.RetryBackoff = other.Kafka.RetryBackoff
	}
	if other.Kafka.Timeout != 0 {
		c.Kafka.Timeout = other.Kafka.Timeout
	}
	c.Kafka.EnableTLS = other.Kafka.EnableTLS
	if other.Kafka.TLSCertFile != "" {
		c.Kafka.TLSCertFile = other.Kafka.TLSCertFile
	}
	if other.Kafka.TLSKeyFile != "" {
		c.Kafka.TLSKeyFile = other.Kafka.TLSKeyFile
	}
	if other.Kafka.TLSCAFile != "" {
		c.Kafka.TLSCAFile = other.Kafka.TLSCAFile
	}
	c.Kafka.SASLEnabled = other.Kafka.SASLEnabled
	if other.Kafka.SASLMechanism != "" {
		c.Kafka.SASLMechanism = other.Kafka.SASLMechanism
	}
	if other.Kafka.SASLUser != "" {
		c.Kafka.SASLUser = other.Kafka.SASLUser
	}
	if other.Kafka.SASLPassword != "" {
		c.Kafka.SASLPassword = other.Kafka.SASLPassword
	}

	// SOCKS proxy
	if other.SOCKSProxy.Host != "" {
		c.SOCKSProxy.Host = other.SOCKSProxy.Host
	}
	if other.SOCKSProxy.Port != 0 {
		c.SOCKSProxy.Port = other.SOCKSProxy.Port
	}
}

// GetHostname returns the configured hostname or the system hostname.
func GetHostname(cfg *Config) string {
	if cfg.Hostname != "" {
		return cfg.Hostname
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
