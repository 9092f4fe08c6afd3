package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	// QoS 1 gives at-least-once delivery; duplicates are resolved by event id downstream
	qosAtLeastOnce byte = 1

	disconnectQuiesce = 250 // ms
)

var ErrNotConnected = errors.New("mqtt broker not connected")

// Config holds the broker settings
type Config struct {
	Broker         string
	Topic          string
	ClientID       string
	IdleDisconnect time.Duration
	ConnectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://broker.hivemq.com:1883",
		Topic:          "attendance/logs",
		IdleDisconnect: 5 * time.Minute,
		ConnectTimeout: 10 * time.Second,
	}
}

// Client is the subset of paho.Client the publisher uses
type Client interface {
	IsConnected() bool
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends attendance payloads to one topic. The connection is opened
// lazily on the first publish and closed after IdleDisconnect without traffic.
type Publisher struct {
	client Client
	topic  string
	idle   time.Duration
	logger *slog.Logger

	mu        sync.Mutex
	idleTimer *time.Timer
	idleGen   uint64
	closed    bool
}

// NewPublisher creates a publisher backed by a paho client
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "ponto-" + uuid.NewString()[:8]
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(cfg.ConnectTimeout)

	return NewPublisherWithClient(paho.NewClient(opts), cfg, logger)
}

// NewPublisherWithClient is used by tests to inject a fake client
func NewPublisherWithClient(client Client, cfg Config, logger *slog.Logger) *Publisher {
	if cfg.IdleDisconnect <= 0 {
		cfg.IdleDisconnect = DefaultConfig().IdleDisconnect
	}
	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		idle:   cfg.IdleDisconnect,
		logger: logger.With("component", "mqtt"),
	}
}

// Publish sends payload with QoS 1 and waits for the broker's PUBACK or ctx
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrNotConnected
	}

	if !p.client.IsConnected() {
		if err := wait(ctx, p.client.Connect()); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		p.logger.Info("connected to broker", "topic", p.topic)
	}

	if err := wait(ctx, p.client.Publish(p.topic, qosAtLeastOnce, false, payload)); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.resetIdleTimer()
	return nil
}

// Close stops the idle timer and disconnects
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	if p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesce)
	}
}

// must hold p.mu
func (p *Publisher) resetIdleTimer() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleGen++
	gen := p.idleGen
	p.idleTimer = time.AfterFunc(p.idle, func() { p.disconnectIdle(gen) })
}

func (p *Publisher) disconnectIdle(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// a publish after the timer fired owns a newer timer
	if gen != p.idleGen {
		return
	}
	if p.client.IsConnected() {
		p.client.Disconnect(disconnectQuiesce)
		p.logger.Info("disconnected idle broker connection", "idle", p.idle)
	}
}

func wait(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
