package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	dialTimeout = 5 * time.Second
	// redialInterval bounds how often a publish may try to reach a broker
	// that is down, so requests do not each pay a dial timeout.
	redialInterval = 10 * time.Second
)

var errBrokerUnavailable = errors.New("amqp broker unavailable")

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel together with the connection that owns it.
type dialFunc func() (amqpChannel, io.Closer, error)

// AMQPPublisher publishes events to a durable topic exchange, routed by
// event type. A lost connection or channel is dropped and re-dialled on a
// later Publish.
type AMQPPublisher struct {
	dial     dialFunc
	conn     io.Closer
	channel  amqpChannel
	exchange string
	logger   zerolog.Logger
	now      func() time.Time
	lastDial time.Time
	closed   bool

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(url, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	p := newPublisher(exchange, logger)
	p.dial = func() (amqpChannel, io.Closer, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("amqp dial: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("amqp channel: %w", err)
		}
		go p.watch(conn, conn.NotifyClose(make(chan *amqp.Error, 1)))
		return ch, conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastDial = p.now()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(exchange string, logger zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		exchange: exchange,
		logger:   logger.With().Str("component", "events").Str("exchange", exchange).Logger(),
		now:      time.Now,
	}
}

func newAMQPPublisher(ch amqpChannel, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	p := newPublisher(exchange, logger)
	if err := p.attachLocked(ch, nil); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	return p.attachLocked(ch, conn)
}

func (p *AMQPPublisher) attachLocked(ch amqpChannel, conn io.Closer) error {
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		if conn != nil {
			conn.Close()
		}
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.channel = ch
	p.conn = conn
	return nil
}

// watch drops the connection when the broker closes it.
func (p *AMQPPublisher) watch(conn io.Closer, closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if !ok || amqpErr == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		p.logger.Warn().Str("reason", amqpErr.Reason).Int("code", amqpErr.Code).Msg("broker connection lost")
		p.resetLocked()
	}
}

func (p *AMQPPublisher) resetLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// ensureLocked re-dials when the channel was lost, at most once per
// redialInterval.
func (p *AMQPPublisher) ensureLocked() error {
	if p.channel != nil {
		return nil
	}
	if p.closed || p.dial == nil {
		return errBrokerUnavailable
	}
	now := p.now()
	if !p.lastDial.IsZero() && now.Sub(p.lastDial) < redialInterval {
		return errBrokerUnavailable
	}
	p.lastDial = now
	if err := p.connectLocked(); err != nil {
		return err
	}
	p.logger.Info().Msg("reconnected to broker")
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureLocked(); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, evt.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID.String(),
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	p.logger.Debug().Str("event_id", evt.ID.String()).Str("type", evt.Type).Msg("event published")
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.conn = nil
	}
	return firstErr
}
