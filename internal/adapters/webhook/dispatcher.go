package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/okian/rgtrack/pkg/logger"
	"github.com/okian/rgtrack/pkg/metrics"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the delivery client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithRate limits deliveries across all listeners.
func WithRate(perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if perSecond > 0 && burst > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithBreaker sets how many consecutive failures open a listener's breaker and how long it stays open.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(d *Dispatcher) {
		if failures > 0 {
			d.tripAfter = failures
		}
		if openFor > 0 {
			d.openFor = openFor
		}
	}
}

type target struct {
	url     string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Dispatcher delivers bus events to listener URLs. It implements suture.Service.
type Dispatcher struct {
	bus     *Bus
	targets []target
	client  *http.Client
	limiter *rate.Limiter

	tripAfter uint32
	openFor   time.Duration

	ready     chan struct{}
	readyOnce sync.Once
	log       logger.Logger
}

// NewDispatcher creates a dispatcher for urls.
func NewDispatcher(bus *Bus, urls []string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bus:       bus,
		client:    &http.Client{Timeout: 5 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(20), 20),
		tripAfter: 5,
		openFor:   30 * time.Second,
		ready:     make(chan struct{}),
		log:       logger.Named("webhook"),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, u := range urls {
		d.targets = append(d.targets, target{url: u, breaker: d.newBreaker(u)})
	}
	return d
}

func (d *Dispatcher) newBreaker(url string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    url,
		Timeout: d.openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= d.tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateWebhookBreakerState(name, int(to))
			d.log.Warn(context.Background(), "webhook breaker state changed",
				logger.String("url", name), logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})
}

// Ready is closed once the dispatcher is subscribed to the bus.
func (d *Dispatcher) Ready() <-chan struct{} { return d.ready }

// Serve delivers events until ctx is cancelled or the bus is closed.
func (d *Dispatcher) Serve(ctx context.Context) error {
	msgs, err := d.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	d.readyOnce.Do(func() { close(d.ready) })
	d.log.Info(ctx, "webhook dispatcher started", logger.Int("listeners", len(d.targets)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			d.dispatch(ctx, msg)
			msg.Ack()
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *message.Message) {
	for _, t := range d.targets {
		err := d.deliver(ctx, t, msg.Payload)
		switch {
		case err == nil:
			metrics.RecordWebhookDelivery("delivered")
		case ctx.Err() != nil:
			return
		default:
			result := "failed"
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				result = "rejected"
			}
			metrics.RecordWebhookDelivery(result)
			d.log.Warn(ctx, "webhook delivery failed",
				logger.String("url", t.url), logger.String("type", msg.Metadata.Get(metaType)), logger.Error(err))
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, t target, body []byte) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := d.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return struct{}{}, fmt.Errorf("%w: %s answered %d", ErrDeliveryFailed, t.url, resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
