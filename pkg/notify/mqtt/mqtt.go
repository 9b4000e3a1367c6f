// Package mqtt publishes a summary of every orchestration result to an MQTT
// broker, one topic per domain:
//
//	stemplan/results/optics
//	stemplan/results/mechanics
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
)

// Defaults for Options.
const (
	DefaultTopic   = "stemplan/results"
	DefaultTimeout = 10 * time.Second
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Options configures a Publisher.
type Options struct {
	BrokerURL string // tcp://host:1883
	ClientID  string
	Topic     string // base topic; the domain is appended
	QoS       byte
	Timeout   time.Duration
}

// Publisher sends result summaries to a broker.
type Publisher struct {
	client  client
	topic   string
	qos     byte
	timeout time.Duration
}

// Connect creates a publisher and connects it to the broker.
func Connect(opts Options) (*Publisher, error) {
	po := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetKeepAlive(30 * time.Second)

	p := newPublisher(paho.NewClient(po), opts)
	token := p.client.Connect()
	if !token.WaitTimeout(p.timeout) {
		return nil, errors.New(errors.ErrCodeNetwork, "mqtt connect to %s timed out", opts.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "mqtt connect to %s", opts.BrokerURL)
	}
	return p, nil
}

func newPublisher(c client, opts Options) *Publisher {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Publisher{client: c, topic: opts.Topic, qos: opts.QoS, timeout: opts.Timeout}
}

// Message is the published payload.
type Message struct {
	ResultID     string    `json:"result_id"`
	PlanID       string    `json:"plan_id,omitempty"`
	Domain       string    `json:"domain,omitempty"`
	Success      bool      `json:"success"`
	Backend      string    `json:"backend"`
	Primary      string    `json:"primary"`
	FallbackUsed bool      `json:"fallback_used"`
	Attempts     int       `json:"attempts"`
	ElapsedMS    float64   `json:"elapsed_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMessage summarizes res.
func NewMessage(res *orchestrator.Result) Message {
	m := Message{
		ResultID:     res.ID,
		Success:      res.Success,
		Backend:      string(res.Backend),
		Primary:      string(res.Primary()),
		FallbackUsed: res.FallbackUsed,
		Attempts:     len(res.Attempts),
		ElapsedMS:    float64(res.Elapsed) / float64(time.Millisecond),
		CreatedAt:    res.CreatedAt,
	}
	if res.Plan != nil {
		m.PlanID = res.Plan.ID
		m.Domain = res.Plan.Domain
	}
	return m
}

// Topic returns the topic for a domain. Results without a domain go to
// "<base>/unknown".
func (p *Publisher) Topic(domain string) string {
	if domain == "" {
		domain = "unknown"
	}
	return p.topic + "/" + domain
}

// Name implements pipeline.Sink.
func (p *Publisher) Name() string { return "mqtt" }

// Accept publishes the summary of res and waits for the broker's ack.
func (p *Publisher) Accept(ctx context.Context, res *orchestrator.Result) error {
	msg := NewMessage(res)
	if msg.Domain == "" {
		if d, ok := res.Metadata["domain"].(string); ok {
			msg.Domain = d
		}
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	token := p.client.Publish(p.Topic(msg.Domain), p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return errors.New(errors.ErrCodeNetwork, "mqtt publish timed out")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "mqtt publish")
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
