package watch

import (
	"context"

	sarama "github.com/IBM/sarama"
)

const defaultKafkaTopic = "softlock-events"

// KafkaPublisher forwards record changes to a Kafka topic, one message per
// verified write or clear, keyed by storage key so a partitioned topic keeps
// per-slot order. It is publish-only; audit pipelines consume the topic with
// their own tooling.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithKafkaTopic overrides the destination topic.
func WithKafkaTopic(topic string) KafkaOption {
	return func(p *KafkaPublisher) { p.topic = topic }
}

// NewKafkaPublisher connects to the given brokers. The config may be nil, in
// which case a default one with producer acknowledgements is used.
func NewKafkaPublisher(brokers []string, cfg *sarama.Config, opts ...KafkaOption) (*KafkaPublisher, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	if !cfg.Producer.Return.Successes {
		cfg.Producer.Return.Successes = true
	}
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	p := &KafkaPublisher{producer: producer, topic: defaultKafkaTopic}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish implements storage.Notifier.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	_, _, err := p.producer.SendMessage(msg)
	return err
}

// Close releases the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
