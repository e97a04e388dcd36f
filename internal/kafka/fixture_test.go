package kafka

import "github.com/jmehdipour/saga-coordinator/internal/config"

func configFixture() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:        []string{"127.0.0.1:9092"},
		Topic:          "txle.events",
		CommitInterval: 1000,
	}
}
