package bulb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the MQTT bulb output.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt not connected")

// MQTTOutput publishes bulb state changes to an MQTT broker.
type MQTTOutput struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTOutput creates an output; call Connect before use.
func NewMQTTOutput(cfg MQTTConfig) *MQTTOutput {
	return &MQTTOutput{cfg: cfg}
}

// Name implements Output.
func (o *MQTTOutput) Name() string { return "mqtt" }

// Connect establishes the broker connection.
func (o *MQTTOutput) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", o.cfg.Broker))
	opts.SetClientID(o.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		o.setConnected(true)
		slog.Info("mqtt connection established", "broker", o.cfg.Broker, "client_id", o.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		o.setConnected(false)
		slog.Warn("mqtt connection lost, will auto-reconnect", "broker", o.cfg.Broker, "error", err)
	}

	o.client = mqtt.NewClient(opts)

	slog.Info("connecting to mqtt broker", "broker", o.cfg.Broker)

	token := o.client.Connect()
	if !waitToken(ctx, token, 5*time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	o.setConnected(true)
	return nil
}

// Send publishes the state as JSON.
func (o *MQTTOutput) Send(ctx context.Context, s State) error {
	if o.client == nil || !o.isConnected() {
		o.countError()
		return ErrNotConnected
	}

	payload, err := json.Marshal(s)
	if err != nil {
		o.countError()
		return fmt.Errorf("marshal bulb state: %w", err)
	}

	token := o.client.Publish(o.cfg.Topic, o.cfg.QoS, o.cfg.Retain, payload)
	if !waitToken(ctx, token, 2*time.Second) {
		o.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		o.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	o.mu.Lock()
	o.published++
	o.mu.Unlock()

	slog.Debug("bulb state published", "topic", o.cfg.Topic, "power", s.Power, "size", len(payload))
	return nil
}

// Disconnect closes the broker connection. It also stops a client that is
// still retrying its initial connect.
func (o *MQTTOutput) Disconnect() {
	if o.client != nil {
		o.client.Disconnect(250)
		slog.Info("mqtt disconnected", "broker", o.cfg.Broker)
	}
	o.setConnected(false)
}

// MQTTStats reports delivery counters.
type MQTTStats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// Stats returns output statistics.
func (o *MQTTOutput) Stats() MQTTStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return MQTTStats{Connected: o.connected, Published: o.published, Errors: o.errors}
}

func (o *MQTTOutput) setConnected(v bool) {
	o.mu.Lock()
	o.connected = v
	o.mu.Unlock()
}

func (o *MQTTOutput) isConnected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.connected
}

func (o *MQTTOutput) countError() {
	o.mu.Lock()
	o.errors++
	o.mu.Unlock()
}

// waitToken waits for the token, the timeout, or ctx, whichever comes first.
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
