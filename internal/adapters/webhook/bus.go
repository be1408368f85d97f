// Package webhook fans outbound events out to configured listener URLs. Emit is
// fire-and-forget: events go into a bounded buffer, one pump moves them onto an
// in-process watermill channel and a Dispatcher delivers them in the background.
package webhook

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/domain/model"
	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Topic carries every webhook event.
const Topic = "webhook.events"

const metaType = "event_type"

// Bus is the in-process event channel. At most buffer events wait for delivery;
// anything beyond that is dropped. The pump publishes one event at a time and waits
// for the subscriber's ack, so a slow dispatcher fills the buffer instead of
// spawning goroutines.
type Bus struct {
	pubsub *gochannel.GoChannel
	queue  chan *message.Message

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	log logger.Logger
}

// NewBus creates a bus that buffers up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	b := &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{BlockPublishUntilSubscriberAck: true},
			watermill.NewSlogLogger(logger.Slog()),
		),
		queue: make(chan *message.Message, buffer),
		done:  make(chan struct{}),
		log:   logger.Named("webhook"),
	}
	go b.pump()
	return b
}

func (b *Bus) pump() {
	defer close(b.done)
	for msg := range b.queue {
		if err := b.pubsub.Publish(Topic, msg); err != nil {
			b.log.Warn(context.Background(), "dropping webhook event",
				logger.String("type", msg.Metadata.Get(metaType)), logger.Error(err))
		}
	}
}

// Emit publishes ev. Failures are logged, never returned.
func (b *Bus) Emit(ctx context.Context, ev model.WebhookEvent) {
	if err := b.Publish(ev); err != nil {
		if errors.Is(err, ErrBusFull) {
			metrics.RecordWebhookDropped(string(ev.Type))
		}
		b.log.Warn(ctx, "dropping webhook event", logger.String("type", string(ev.Type)), logger.Error(err))
		return
	}
	metrics.RecordWebhookEmitted(string(ev.Type))
}

// Publish is Emit with the error returned. It never blocks: a full buffer returns ErrBusFull.
func (b *Bus) Publish(ev model.WebhookEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaType, string(ev.Type))

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- msg:
		return nil
	default:
		return ErrBusFull
	}
}

// Pending reports how many events wait in the buffer.
func (b *Bus) Pending() int { return len(b.queue) }

// Subscribe returns a channel of event messages. Each message must be acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close stops the bus and closes every subscription channel. Buffered events
// that no subscriber took are discarded.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	err := b.pubsub.Close()
	<-b.done
	return err
}
