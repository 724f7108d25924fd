// Package publish announces changes of the detected die state to other
// processes over MQTT.
package publish

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/motion"
)

// DefaultTopic is the topic transitions are published on.
const DefaultTopic = "rollstate/state"

// Transition is the JSON payload for one label change.
type Transition struct {
	Millis int64        `json:"millis"`
	From   motion.Label `json:"from"`
	To     motion.Label `json:"to"`
}

// Publisher sends transitions somewhere.
type Publisher interface {
	Publish(Transition) error
	Close() error
}

// Tracker remembers the last label and reports a transition only when the
// label changes.
type Tracker struct {
	mu   sync.Mutex
	last motion.Label
	seen bool
}

// Observe records label at millis and returns the transition, if any. The
// first observation is a transition from Unknown.
func (t *Tracker) Observe(millis int64, label motion.Label) (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := motion.LabelUnknown
	if t.seen {
		from = t.last
	}
	if t.seen && label == t.last {
		return Transition{}, false
	}
	t.last = label
	t.seen = true
	if from == label {
		return Transition{}, false
	}
	return Transition{Millis: millis, From: from, To: label}, true
}

// Last returns the most recently observed label, or Unknown.
func (t *Tracker) Last() motion.Label {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seen {
		return motion.LabelUnknown
	}
	return t.last
}

// NopPublisher discards every transition.
type NopPublisher struct{}

func (NopPublisher) Publish(Transition) error { return nil }
func (NopPublisher) Close() error             { return nil }

// LogPublisher writes transitions through monitoring.Logf.
type LogPublisher struct{}

func (LogPublisher) Publish(tr Transition) error {
	monitoring.Logf("State changed at %d ms: %s -> %s", tr.Millis, tr.From, tr.To)
	return nil
}

func (LogPublisher) Close() error { return nil }

// mqttClient is the subset of mqtt.Client used for publishing.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes transitions as JSON at QoS 0.
type MQTTPublisher struct {
	client  mqttClient
	topic   string
	timeout time.Duration
}

// MQTTOptions configures the broker connection.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(o MQTTOptions) (*MQTTPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "rollstate"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	monitoring.Logf("connected to MQTT broker %s", o.Broker)
	return newMQTTPublisher(client, o.Topic, o.Timeout), nil
}

func newMQTTPublisher(client mqttClient, topic string, timeout time.Duration) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, topic: topic, timeout: timeout}
}

// Topic returns the topic transitions are published on.
func (p *MQTTPublisher) Topic() string {
	return p.topic
}

// Publish sends tr to the topic, retained so late subscribers see the
// current state.
func (p *MQTTPublisher) Publish(tr Transition) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("json marshal error (transition): %w", err)
	}

	token := p.client.Publish(p.topic, 0, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("MQTT publish to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT publish error: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
