package publisher

import (
	"fmt"
	"strings"

	"servicehost/internal/config"
	"servicehost/internal/logger"
)

// NewPublisher creates a Publisher based on the configuration.
func NewPublisher(cfg *config.Config) (Publisher, error) {
	log := logger.WithComponent("publisher-factory")

	publisherType := strings.ToLower(cfg.PublisherType)
	if publisherType == "" {
		publisherType = "file"
	}

	log.Info().
		Str("publisher_type", publisherType).
		Msg("Creating publisher")

	switch publisherType {
	case "none":
		return NopPublisher{}, nil
	case "file":
		return NewFilePublisher(cfg.File)
	case "redis":
		return NewRedisPublisher(cfg.Redis, cfg.SOCKSProxy)
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka, cfg.SOCKSProxy)
	default:
		return nil, fmt.Errorf("unknown publisher type: %s (supported: none, file, redis, kafka)", publisherType)
	}
}
