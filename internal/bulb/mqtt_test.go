package bulb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/yantram/internal/gesture"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient implements the parts of mqtt.Client the output uses.
type fakeClient struct {
	mqtt.Client
	connected   bool
	disconnects int
	err         error
	topics      []string
	retained    []bool
	payloads    [][]byte
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Disconnect(quiesce uint) {
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.retained = append(c.retained, retained)
	c.payloads = append(c.payloads, payload.([]byte))
	return newFakeToken(c.err)
}

func connectedOutput(client *fakeClient) *MQTTOutput {
	o := NewMQTTOutput(MQTTConfig{Topic: "yantram/bulb/test/state", Retain: true})
	o.client = client
	o.setConnected(true)
	return o
}

func TestMQTTOutput_Send(t *testing.T) {
	client := &fakeClient{connected: true}
	o := connectedOutput(client)

	s := StateFor(gesture.Reading{State: gesture.StateHalfOpen, Fingers: 3}, time.Unix(1700000000, 0))
	if err := o.Send(context.Background(), s); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(client.topics) != 1 || client.topics[0] != "yantram/bulb/test/state" {
		t.Fatalf("topics = %v", client.topics)
	}
	if !client.retained[0] {
		t.Error("expected retained publish")
	}

	var got map[string]any
	if err := json.Unmarshal(client.payloads[0], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got["power"] != "half" || got["level"] != float64(50) || got["state"] != "half-open" {
		t.Errorf("payload = %v", got)
	}
	if st := o.Stats(); st.Published != 1 || st.Errors != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestMQTTOutput_NotConnected(t *testing.T) {
	o := NewMQTTOutput(MQTTConfig{Topic: "t"})
	err := o.Send(context.Background(), State{Power: PowerFull})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send() error = %v, want ErrNotConnected", err)
	}
	if o.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", o.Stats().Errors)
	}
}

func TestMQTTOutput_PublishError(t *testing.T) {
	client := &fakeClient{connected: true, err: errors.New("not authorized")}
	o := connectedOutput(client)

	if err := o.Send(context.Background(), State{Power: PowerOff}); err == nil {
		t.Fatal("expected publish error")
	}
	if o.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", o.Stats().Errors)
	}

	o.Disconnect()
	if client.connected || o.Stats().Connected {
		t.Error("expected disconnected after Disconnect")
	}
}

func TestMQTTOutput_DisconnectWhileRetrying(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
	}{
		{name: "connected", connected: true},
		{name: "still retrying", connected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{connected: tt.connected}
			o := NewMQTTOutput(MQTTConfig{Topic: "t"})
			o.client = client
			o.setConnected(tt.connected)

			o.Disconnect()
			if client.disconnects != 1 {
				t.Errorf("client Disconnect calls = %d, want 1", client.disconnects)
			}
			if o.Stats().Connected {
				t.Error("expected disconnected after Disconnect")
			}
			if err := o.Send(context.Background(), State{Power: PowerFull}); !errors.Is(err, ErrNotConnected) {
				t.Errorf("Send() after Disconnect error = %v, want ErrNotConnected", err)
			}
		})
	}
}
