package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// backlogCapacity bounds how many messages queue up while disconnected.
// At the default 500ms poll that is several minutes of events.
const backlogCapacity = 512

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down, messages are queued and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client

	mu      sync.Mutex
	pending *backlog
}

// newClientOptions builds the paho options: broker, identity, retry policy,
// and a SHUTDOWN last-will so subscribers learn about ungraceful exits.
// Username and password are optional; empty strings mean anonymous.
func newClientOptions(broker, clientID, username, password string) (*paho.ClientOptions, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	return opts, nil
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID, username, password string) (*RealPublisher, error) {
	p := &RealPublisher{
		pending: newBacklog(backlogCapacity),
	}

	opts, err := newClientOptions(broker, clientID, username, password)
	if err != nil {
		return nil, err
	}
	opts.SetOnConnectHandler(func(paho.Client) {
		p.drainBacklog()
	})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a hotplate event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(queuedMsg{topic: Topic, payload: payload, qos: 0})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(queuedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg queuedMsg) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.pending.add(msg)
		n := p.pending.size()
		p.mu.Unlock()
		log.Printf("mqtt: broker unreachable, queued message (%d pending)", n)
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// drainBacklog replays queued messages after (re)connecting. Runs on the
// paho connection goroutine.
func (p *RealPublisher) drainBacklog() {
	p.mu.Lock()
	msgs := p.pending.takeAll()
	p.mu.Unlock()
	if len(msgs) == 0 {
		return
	}

	log.Printf("mqtt: connected, replaying %d queued messages", len(msgs))
	for _, msg := range msgs {
		token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) || token.Error() != nil {
			log.Printf("mqtt: replay failed for %s: %v", msg.topic, token.Error())
		}
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
