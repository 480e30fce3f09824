package repository

import (
	"context"
	"fmt"

	"Copilot/internal/domain/models"
	pkgkafka "Copilot/pkg/kafka"
	applogger "Copilot/pkg/logger"
)

// publisher is the subset of *pkgkafka.Producer the outbox needs.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...pkgkafka.Header) error
	Close() error
}

// KafkaMailer puts outgoing mail on a Kafka topic for a delivery worker.
type KafkaMailer struct {
	producer publisher
	topic    string
	from     string
}

// NewKafkaMailer creates a Kafka-backed mail outbox.
func NewKafkaMailer(producer *pkgkafka.Producer, topic, from string) *KafkaMailer {
	return newKafkaMailer(producer, topic, from)
}

func newKafkaMailer(p publisher, topic, from string) *KafkaMailer {
	return &KafkaMailer{producer: p, topic: topic, from: from}
}

type outboxMessage struct {
	From string `json:"from"`
	models.Mail
}

// Send publishes m keyed by recipient so mail to one address stays ordered.
func (m *KafkaMailer) Send(ctx context.Context, mail models.Mail) error {
	err := m.producer.Publish(ctx, m.topic, []byte(mail.To), outboxMessage{From: m.from, Mail: mail},
		pkgkafka.Header{Key: "kind", Value: mail.Kind},
	)
	if err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}

func (m *KafkaMailer) Close() error {
	if m.producer != nil {
		return m.producer.Close()
	}
	return nil
}

// LogMailer writes mail to the application log. Used in development.
type LogMailer struct {
	l    *applogger.Logger
	from string
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(l *applogger.Logger, from string) *LogMailer {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogMailer{l: l, from: from}
}

func (m *LogMailer) Send(_ context.Context, mail models.Mail) error {
	m.l.Info("mail",
		applogger.String("kind", mail.Kind),
		applogger.String("from", m.from),
		applogger.String("to", mail.To),
		applogger.String("subject", mail.Subject),
		applogger.String("body", mail.Body),
	)
	return nil
}
