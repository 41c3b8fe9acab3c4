package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/api/option"
)

var (
	// ErrPubSubProjectIDRequired is returned when no project id was configured.
	ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")
	// ErrPubSubClientRequired is returned when the client is nil or closed.
	ErrPubSubClientRequired = errors.New("messaging: pubsub client is required")
	// ErrPubSubTopicRequired is returned when the publish topic is empty.
	ErrPubSubTopicRequired = errors.New("messaging: pubsub topic is required")
	// ErrPubSubSubscriptionRequired is returned when the subscription is empty.
	ErrPubSubSubscriptionRequired = errors.New("messaging: pubsub subscription is required")
	// ErrPubSubHandlerRequired is returned when Consume gets a nil handler.
	ErrPubSubHandlerRequired = errors.New("messaging: pubsub handler is required")
)

// PubSubConfig configures the Google Pub/Sub client.
type PubSubConfig struct {
	// ProjectID is the Google Cloud project.
	ProjectID string

	// Client reuses an existing client instead of dialing a new one.
	Client *pubsub.Client
	// ClientOptions apply when a new client is created.
	ClientOptions []option.ClientOption
}

// PubSub implements Messaging over Google Pub/Sub.
type PubSub struct {
	client *pubsub.Client

	mu         sync.Mutex
	closed     bool
	publishers map[string]*pubsub.Publisher
}

// NewPubSub builds a Pub/Sub client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.Client != nil {
		return &PubSub{client: cfg.Client, publishers: map[string]*pubsub.Publisher{}}, nil
	}
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}

	return &PubSub{client: c, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Close stops publishers and the client.
func (p *PubSub) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	pubs := make([]*pubsub.Publisher, 0, len(p.publishers))
	for _, pub := range p.publishers {
		pubs = append(pubs, pub)
	}
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}

	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Publish sends the message to a topic and waits for the server id.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrPubSubTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}
	if err := p.ensureOpen(); err != nil {
		return PublishResult{}, err
	}

	attrs := msg.Attributes
	if len(msg.Headers) > 0 {
		attrs = make(map[string]string, len(msg.Headers)+len(msg.Attributes))
		for k, v := range msg.Attributes {
			attrs[k] = v
		}
		for _, h := range msg.Headers {
			if h.Key != "" {
				attrs[h.Key] = string(h.Value)
			}
		}
	}

	res := p.getPublisher(destination).Publish(ctx, &pubsub.Message{
		Data:        msg.Body,
		Attributes:  attrs,
		OrderingKey: msg.OrderingKey,
	})
	id, err := res.Get(ctx)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: pubsub publish: %w", err)
	}

	return PublishResult{MessageID: id, Topic: destination}, nil
}

// Consume receives from a subscription. When WithSubscription is set, source
// names the topic and the option names the subscription.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrPubSubSubscriptionRequired
	}
	if handler == nil {
		return ErrPubSubHandlerRequired
	}
	if err := p.ensureOpen(); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	topic := ""
	subscription := source
	if co.subscription != "" {
		topic = source
		subscription = co.subscription
	}

	sub := p.client.Subscriber(subscription)
	if co.concurrency > 0 {
		sub.ReceiveSettings.NumGoroutines = co.concurrency
	}
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		wrapped := &pubSubMessage{topic: topic, subscription: subscription, msg: m}
		herr := runHandler(ctx, "pubsub", func() error {
			return handler(ctx, wrapped)
		})

		if wrapped.hasResponded() || !co.autoAck {
			return
		}

		if herr == nil {
			_ = wrapped.Ack(ctx)
		} else {
			_ = wrapped.Nack(ctx)
		}
	})
}

func (p *PubSub) getPublisher(topic string) *pubsub.Publisher {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publishers == nil {
		p.publishers = map[string]*pubsub.Publisher{}
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub
}

func (p *PubSub) ensureOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return ErrPubSubClientRequired
	}
	if p.closed {
		return io.ErrClosedPipe
	}
	return nil
}

type pubSubMessage struct {
	topic        string
	subscription string
	msg          *pubsub.Message

	responded atomic.Bool
}

func (m *pubSubMessage) hasResponded() bool { return m.responded.Load() }

func (m *pubSubMessage) Body() []byte { return m.msg.Data }
func (m *pubSubMessage) Key() []byte  { return nil }

func (m *pubSubMessage) Headers() []Header {
	if len(m.msg.Attributes) == 0 {
		return nil
	}
	headers := make([]Header, 0, len(m.msg.Attributes))
	for k, v := range m.msg.Attributes {
		headers = append(headers, Header{Key: k, Value: []byte(v)})
	}
	return headers
}

func (m *pubSubMessage) Attributes() map[string]string { return m.msg.Attributes }

func (m *pubSubMessage) ID() string           { return m.msg.ID }
func (m *pubSubMessage) Topic() string        { return m.topic }
func (m *pubSubMessage) Subject() string      { return "" }
func (m *pubSubMessage) Timestamp() time.Time { return m.msg.PublishTime }

func (m *pubSubMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.responded.Swap(true) {
		return nil
	}
	m.msg.Ack()
	return nil
}

func (m *pubSubMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.responded.Swap(true) {
		return nil
	}
	m.msg.Nack()
	return nil
}

func (m *pubSubMessage) Extend(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrUnsupported
}
