package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"servicehost/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings.
type rawConfig struct {
	ServiceName   string             `json:"ServiceName"`
	Hostname      string             `json:"Hostname"`
	Heartbeat     rawHeartbeatConfig `json:"Heartbeat"`
	PublisherType string             `json:"PublisherType"`
	File          FileConfig         `json:"File"`
	Redis         rawRedisConfig     `json:"Redis"`
	Kafka         rawKafkaConfig     `json:"Kafka"`
	SOCKSProxy    SOCKSConfig        `json:"SocksProxy"`
}

type rawHeartbeatConfig struct {
	Interval     string `json:"Interval"`
	ProcessStats *bool  `json:"ProcessStats"`
}

type rawRedisConfig struct {
	Address   string `json:"Address"`
	Password  string `json:"Password"`
	DB        int    `json:"DB"`
	KeyPrefix string `json:"KeyPrefix"`
	TTL       string `json:"TTL"`
	Timeout   string `json:"Timeout"`
}

type rawKafkaConfig struct {
	Brokers       []string `json:"Brokers"`
	Topic         string   `json:"Topic"`
	Compression   string   `json:"Compression"`
	RequiredAcks  *int     `json:"RequiredAcks"`
	MaxRetries    int      `json:"MaxRetries"`
	RetryBackoff  string   `json:"RetryBackoff"`
	Timeout       string   `json:"Timeout"`
	EnableTLS     bool     `json:"EnableTLS"`
	TLSCertFile   string   `json:"TLSCertFile"`
	TLSKeyFile    string   `json:"TLSKeyFile"`
	TLSCAFile     string   `json:"TLSCAFile"`
	SASLEnabled   bool     `json:"SASLEnabled"`
	SASLMechanism string   `json:"SASLMechanism"`
	SASLUser      string   `json:"SASLUser"`
	SASLPassword  string   `json:"SASLPassword"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
	Format     string `json:"Format"`
}

// Load reads configuration from the specified file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses configuration from JSON bytes.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	parsed, err := convertRawConfig(&raw, cfg)
	if err != nil {
		return nil, err
	}

	cfg.Merge(parsed)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service unable to run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("ServiceName must not be empty")
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("Heartbeat.Interval must be positive, got %s", c.Heartbeat.Interval)
	}
	switch strings.ToLower(c.PublisherType) {
	case "none", "file", "redis", "kafka":
	default:
		return fmt.Errorf("unknown PublisherType: %s (supported: none, file, redis, kafka)", c.PublisherType)
	}
	return nil
}

func convertRawConfig(raw *rawConfig, defaults *Config) (*Config, error) {
	cfg := &Config{
		ServiceName:   raw.ServiceName,
		Hostname:      raw.Hostname,
		PublisherType: raw.PublisherType,
		File:          raw.File,
		SOCKSProxy:    raw.SOCKSProxy,
	}

	// Heartbeat: ProcessStats is optional, absent keeps the default
	cfg.Heartbeat.ProcessStats = defaults.Heartbeat.ProcessStats
	if raw.Heartbeat.ProcessStats != nil {
		cfg.Heartbeat.ProcessStats = *raw.Heartbeat.ProcessStats
	}
	interval, err := parseDuration("Heartbeat.Interval", raw.Heartbeat.Interval)
	if err != nil {
		return nil, err
	}
	cfg.Heartbeat.Interval = interval

	redis, err := convertRawRedis(&raw.Redis)
	if err != nil {
		return nil, err
	}
	cfg.Redis = *redis

	kafka, err := convertRawKafka(&raw.Kafka, defaults.Kafka.RequiredAcks)
	if err != nil {
		return nil, err
	}
	cfg.Kafka = *kafka

	return cfg, nil
}

func convertRawRedis(raw *rawRedisConfig) (*RedisConfig, error) {
	redis := &RedisConfig{
		Address:   raw.Address,
		Password:  raw.Password,
		DB:        raw.DB,
		KeyPrefix: raw.KeyPrefix,
	}

	var err error
	if redis.TTL, err = parseDuration("Redis.TTL", raw.TTL); err != nil {
		return nil, err
	}
	if redis.Timeout, err = parseDuration("Redis.Timeout", raw.Timeout); err != nil {
		return nil, err
	}
	return redis, nil
}

func convertRawKafka(raw *rawKafkaConfig, defaultAcks int) (*KafkaConfig, error) {
	kafka := &KafkaConfig{
		Brokers:       raw.Brokers,
		Topic:         raw.Topic,
		Compression:   raw.Compression,
		MaxRetries:    raw.MaxRetries,
		EnableTLS:     raw.EnableTLS,
		TLSCertFile:   raw.TLSCertFile,
		TLSKeyFile:    raw.TLSKeyFile,
		TLSCAFile:     raw.TLSCAFile,
		SASLEnabled:   raw.SASLEnabled,
		SASLMechanism: raw.SASLMechanism,
		SASLUser:      raw.SASLUser,
		SASLPassword:  raw.SASLPassword,
	}

	// RequiredAcks 0 is a valid setting, absent keeps the default
	kafka.RequiredAcks = defaultAcks
	if raw.RequiredAcks != nil {
		kafka.RequiredAcks = *raw.RequiredAcks
	}

	var err error
	if kafka.RetryBackoff, err = parseDuration("Kafka.RetryBackoff", raw.RetryBackoff); err != nil {
		return nil, err
	}
	if kafka.Timeout, err = parseDuration("Kafka.Timeout", raw.Timeout); err != nil {
		return nil, err
	}
	return kafka, nil
}

// parseDuration returns zero for an empty value so Merge keeps the default.
func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", field, err)
	}
	return d, nil
}

// LoadLogging reads logging configuration from the specified file path.
func LoadLogging(path string) (*logger.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config file: %w", err)
	}
	return ParseLogging(data)
}

// ParseLogging parses logging configuration from JSON bytes.
func ParseLogging(data []byte) (*logger.Config, error) {
	var raw rawLoggingConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse logging config JSON: %w", err)
	}

	def := logger.DefaultConfig()

	// Merge: apply non-zero parsed values over defaults
	if raw.Level != "" {
		def.Level = raw.Level
	}
	if raw.FilePath != "" {
		def.FilePath = raw.FilePath
	}
	if raw.MaxSizeMB != 0 {
		def.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		def.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		def.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Format != "" {
		f := strings.ToLower(raw.Format)
		if f != "json" && f != "fixed" {
			return nil, fmt.Errorf("unsupported log format %q: must be \"json\" or \"fixed\"", raw.Format)
		}
		def.Format = f
	}
	def.Compress = raw.Compress
	def.Console = raw.Console

	return &def, nil
}

// LoadSplit loads configuration from two separate files:
// configPath (ServiceHost.json) and loggingPath (Logging.json).
func LoadSplit(configPath, loggingPath string) (*Config, *logger.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lc, err := LoadLogging(loggingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load logging config: %w", err)
	}

	return cfg, lc, nil
}
