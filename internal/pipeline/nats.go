package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/kestrelhq/kestrel/pkg/models"
)

const (
	natsStreamName        = "KESTREL_WORKFLOWS"
	natsSubjectPrefix     = "kestrel.workflow.role."
	natsCompletionSubject = "kestrel.workflow.completion"
)

// NATSTransport is a JetStream-backed Transport for distributed deployments:
// one stream, one subject per role, durable consumers with explicit ack.
//
// Messages are acked on receipt: retry and dead-letter bookkeeping is the
// runtime's job, so broker-level redelivery is only a safety net for workers
// that die between fetch and ack.
type NATSTransport struct {
	nc *nats.Conn
	js jetstream.JetStream

	mu        sync.Mutex
	consumers map[string]jetstream.Consumer
}

// NATSConfig configures a NATS transport.
type NATSConfig struct {
	// URL is the NATS server URL. Defaults to nats.DefaultURL.
	URL string
	// Name identifies this client connection.
	Name string
}

// NewNATSTransport connects to NATS and ensures the workflow stream exists.
func NewNATSTransport(ctx context.Context, cfg NATSConfig) (*NATSTransport, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "kestrel-pipeline"
	}

	nc, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      natsStreamName,
		Subjects:  []string{"kestrel.workflow.>"},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", natsStreamName, err)
	}

	return &NATSTransport{
		nc:        nc,
		js:        js,
		consumers: make(map[string]jetstream.Consumer),
	}, nil
}

func roleSubject(role models.RoleID) string {
	return natsSubjectPrefix + string(role)
}

// consumer returns (creating if needed) the durable consumer for a subject.
func (t *NATSTransport) consumer(ctx context.Context, subject string) (jetstream.Consumer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.consumers[subject]; ok {
		return c, nil
	}

	durable := "kestrel-" + strings.ReplaceAll(strings.TrimPrefix(subject, "kestrel.workflow."), ".", "-")
	c, err := t.js.CreateOrUpdateConsumer(ctx, natsStreamName, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", durable, err)
	}
	t.consumers[subject] = c
	return c, nil
}

// Enqueue publishes a message to its role's subject.
func (t *NATSTransport) Enqueue(ctx context.Context, msg models.WorkflowMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal workflow message: %w", err)
	}
	if _, err := t.js.Publish(ctx, roleSubject(msg.Role), data); err != nil {
		return fmt.Errorf("publish to %s: %w", roleSubject(msg.Role), err)
	}
	return nil
}

// Pop fetches the next message for a role, blocking up to wait.
func (t *NATSTransport) Pop(ctx context.Context, role models.RoleID, wait time.Duration) (*models.WorkflowMessage, error) {
	data, err := t.fetch(ctx, roleSubject(role), wait)
	if err != nil || data == nil {
		return nil, err
	}

	var msg models.WorkflowMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal workflow message: %w", err)
	}
	return &msg, nil
}

// PublishCompletion reports a role outcome on the completion subject.
func (t *NATSTransport) PublishCompletion(ctx context.Context, c models.WorkflowCompletion) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	if _, err := t.js.Publish(ctx, natsCompletionSubject, data); err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	return nil
}

// PopCompletion fetches the next completion, blocking up to wait.
func (t *NATSTransport) PopCompletion(ctx context.Context, wait time.Duration) (*models.WorkflowCompletion, error) {
	data, err := t.fetch(ctx, natsCompletionSubject, wait)
	if err != nil || data == nil {
		return nil, err
	}

	var c models.WorkflowCompletion
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal completion: %w", err)
	}
	return &c, nil
}

// fetch pulls a single payload from a subject's durable consumer.
// Returns (nil, nil) when no message arrived within wait.
func (t *NATSTransport) fetch(ctx context.Context, subject string, wait time.Duration) ([]byte, error) {
	consumer, err := t.consumer(ctx, subject)
	if err != nil {
		return nil, err
	}

	msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(wait))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		debugLog("[pipeline] fetch timeout or error on %s: %v", subject, err)
		return nil, nil
	}

	for msg := range msgs.Messages() {
		if err := msg.Ack(); err != nil {
			debugLog("[pipeline] ack failed on %s: %v", subject, err)
		}
		return msg.Data(), nil
	}
	return nil, nil
}

// Close drains and closes the NATS connection.
func (t *NATSTransport) Close() error {
	return t.nc.Drain()
}
