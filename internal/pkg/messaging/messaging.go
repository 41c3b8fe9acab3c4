// Package messaging is a broker-agnostic publish/consume API.
//
// Business code talks to the Messaging interface only; the concrete broker
// (NSQ, NATS, Kafka, Google Pub/Sub) is a deployment decision made in
// configuration.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/shandysiswandi/goverify/internal/pkg/stacktrace"
)

// ErrUnsupported reports a feature the selected broker does not offer, such
// as deferred delivery.
var ErrUnsupported = errors.New("messaging: unsupported operation")

// Messaging publishes to and consumes from a broker.
type Messaging interface {
	io.Closer

	// Publish sends a message to a destination (topic or subject).
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)

	// Consume blocks, delivering messages from source to handler until the
	// context is canceled or the client is closed.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one received message. With auto-ack enabled the wrapper
// acks on nil and nacks on error unless the handler already responded.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a broker-agnostic message to publish.
type OutgoingMessage struct {
	// Body is the payload.
	Body []byte
	// Key partitions the message on Kafka-like brokers.
	Key []byte
	// Headers carry binary metadata such as correlation ids.
	Headers []Header
	// Attributes are string metadata for brokers that model them (Pub/Sub).
	Attributes map[string]string
	// OrderingKey orders delivery on Google Pub/Sub.
	OrderingKey string
	// Delay defers delivery where the broker supports it.
	Delay time.Duration
}

// Header is one message header entry.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries whatever publish metadata the broker exposes.
type PublishResult struct {
	MessageID string
	Topic     string
	Partition int32
	Offset    int64
	Sequence  uint64
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	Attributes() map[string]string

	ID() string
	Topic() string
	Subject() string
	Timestamp() time.Time

	// Ack marks the message as handled. Acking twice is a no-op.
	Ack(ctx context.Context) error
}

// Nackable requests redelivery where the broker supports it.
type Nackable interface {
	Nack(ctx context.Context) error
}

// Extendable pushes out the ack deadline where the broker supports it.
type Extendable interface {
	Extend(ctx context.Context, d time.Duration) error
}

type consumeOptions struct {
	concurrency  int
	autoAck      bool
	group        string // Kafka consumer group
	channel      string // NSQ channel
	queueGroup   string // NATS queue group
	subscription string // Pub/Sub subscription
	maxInFlight  int
}

// ConsumeOption tunes consumer behavior.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	var co consumeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	return co
}

// WithConcurrency sets how many handler goroutines run in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithGroup sets the Kafka consumer group.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithChannel sets the NSQ channel.
func WithChannel(channel string) ConsumeOption {
	return func(o *consumeOptions) { o.channel = channel }
}

// WithQueueGroup sets the NATS queue group.
func WithQueueGroup(queueGroup string) ConsumeOption {
	return func(o *consumeOptions) { o.queueGroup = queueGroup }
}

// WithSubscription sets the Google Pub/Sub subscription when the source
// argument names the topic.
func WithSubscription(subscription string) ConsumeOption {
	return func(o *consumeOptions) { o.subscription = subscription }
}

// WithAutoAck makes the wrapper ack or nack based on the handler result.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}

// WithMaxInFlight caps unacknowledged messages in flight.
func WithMaxInFlight(maxInFlight int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = maxInFlight }
}

func concurrencyOrDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// runHandler invokes fn and converts a panic into an error so a bad message
// cannot kill the consumer loop.
func runHandler(ctx context.Context, kind string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			paths := stacktrace.InternalPaths(stack)
			if len(paths) == 0 {
				slog.ErrorContext(ctx, "Panic in messaging handler", "kind", kind, "panic", rvr, "stack", string(stack))
			} else {
				slog.ErrorContext(ctx, "Panic in messaging handler", "kind", kind, "panic", rvr, "stack", paths)
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return fn()
}
