package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishEncodesJSONAndHeaders(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "gzip")

	payload := map[string]string{"to": "a@example.com"}
	if err := p.Publish(context.Background(), "mail", []byte("a@example.com"), payload, Header{Key: "type", Value: "verify"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "mail" || string(m.Key) != "a@example.com" {
		t.Fatalf("unexpected routing %q %q", m.Topic, m.Key)
	}
	if string(m.Value) != `{"to":"a@example.com"}` {
		t.Fatalf("unexpected value %s", m.Value)
	}
	if len(m.Headers) != 1 || m.Headers[0].Key != "type" || string(m.Headers[0].Value) != "verify" {
		t.Fatalf("unexpected headers %+v", m.Headers)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&recordingWriter{err: boom}, "gzip")
	if err := p.Publish(context.Background(), "mail", nil, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
