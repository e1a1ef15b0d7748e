package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int // messages kept while disconnected; 0 disables buffering

	// PublishTimeout bounds each Publish while connected. The run loop
	// publishes inline, so a slow broker stalls the tick by at most this.
	PublishTimeout time.Duration
}

// DefaultPublishTimeout is used when Options.PublishTimeout is zero.
const DefaultPublishTimeout = 2 * time.Second

func (o Options) publishTimeout() time.Duration {
	if o.PublishTimeout <= 0 {
		return DefaultPublishTimeout
	}
	return o.PublishTimeout
}

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down messages are kept in a ring buffer and replayed on reconnect.
type RealPublisher struct {
	client  paho.Client
	topics  Topics
	timeout time.Duration

	mu        sync.Mutex
	buf       *ringBuffer
	onCommand func(Command)
	connects  int
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned;
// paho keeps retrying in the background and messages are buffered.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := &RealPublisher{topics: o.Topics, timeout: o.publishTimeout()}
	if o.BufferSize > 0 {
		p.buf = newRingBuffer(o.BufferSize)
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "LWT", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(o.Topics.System, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect runs on paho's goroutine after every (re)connection.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	p.connects++
	reconnected := p.connects > 1
	var (
		pending []bufferedMsg
		dropped int
	)
	if p.buf != nil {
		pending, dropped = p.buf.drainAll()
	}
	subscribed := p.onCommand != nil
	p.mu.Unlock()

	if subscribed {
		if err := p.subscribe(); err != nil {
			log.Printf("mqtt: resubscribe: %v", err)
		}
	}

	if dropped > 0 {
		log.Printf("mqtt: buffer full while offline, dropped %d oldest messages", dropped)
	}
	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay to %s timed out", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}

	if reconnected {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		p.client.Publish(p.topics.System, 1, true, payload)
	}
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.buf == nil {
			return fmt.Errorf("publish %s: not connected", topic)
		}
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Publish sends a port event to the MQTT broker.
func (p *RealPublisher) Publish(event PortEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(p.topics.Events, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(p.topics.System, 1, event.Retained, payload)
}

// Subscribe listens for write commands on the set topic. The subscription is
// renewed on every reconnect.
func (p *RealPublisher) Subscribe(fn func(Command)) error {
	p.mu.Lock()
	p.onCommand = fn
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		// onConnect subscribes once the broker is reachable
		return nil
	}
	return p.subscribe()
}

func (p *RealPublisher) subscribe() error {
	token := p.client.Subscribe(p.topics.Set, 1, func(_ paho.Client, msg paho.Message) {
		cmd, err := ParseCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: ignoring command on %s: %v", msg.Topic(), err)
			return
		}
		p.mu.Lock()
		fn := p.onCommand
		p.mu.Unlock()
		fn(cmd)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", p.topics.Set)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.topics.Set, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
