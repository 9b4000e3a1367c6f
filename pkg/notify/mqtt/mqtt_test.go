package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// token is a completed paho.Token.
type token struct {
	err  error
	done chan struct{}
}

func newToken(err error, complete bool) *token {
	t := &token{err: err, done: make(chan struct{})}
	if complete {
		close(t.done)
	}
	return t
}

func (t *token) Wait() bool                     { <-t.done; return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return t.done }
func (t *token) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type mockClient struct {
	mu       sync.Mutex
	msgs     []published
	err      error
	stall    bool
	quiesced bool
}

func (m *mockClient) Connect() paho.Token { return newToken(nil, true) }

func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(m.err, !m.stall)
}

func (m *mockClient) Disconnect(uint) { m.quiesced = true }

func result() *orchestrator.Result {
	pl := plan.New("optics", layout.DefaultCanvas())
	return &orchestrator.Result{
		ID:           "r1",
		Success:      true,
		Backend:      solver.KindHeuristic,
		FallbackUsed: true,
		Elapsed:      1500 * time.Microsecond,
		Attempts:     []orchestrator.Attempt{{Backend: solver.KindSMT}, {Backend: solver.KindHeuristic, Success: true}},
		Metadata:     map[string]any{orchestrator.MetaPrimary: "smt"},
		Plan:         pl,
	}
}

func TestAccept(t *testing.T) {
	mc := &mockClient{}
	p := newPublisher(mc, Options{QoS: 1})

	if err := p.Accept(context.Background(), result()); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if len(mc.msgs) != 1 {
		t.Fatalf("published %d messages", len(mc.msgs))
	}
	got := mc.msgs[0]
	if got.topic != "stemplan/results/optics" || got.qos != 1 {
		t.Errorf("topic=%q qos=%d", got.topic, got.qos)
	}

	var msg Message
	if err := json.Unmarshal(got.payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.ResultID != "r1" || msg.Primary != "smt" || msg.Backend != "heuristic" || !msg.FallbackUsed {
		t.Errorf("message = %+v", msg)
	}
	if msg.Attempts != 2 || msg.ElapsedMS != 1.5 {
		t.Errorf("attempts=%d elapsed=%v", msg.Attempts, msg.ElapsedMS)
	}

	if err := p.Close(); err != nil || !mc.quiesced {
		t.Error("Close should disconnect")
	}
}

func TestAcceptErrors(t *testing.T) {
	mc := &mockClient{err: errors.New("not connected")}
	p := newPublisher(mc, Options{})
	if err := p.Accept(context.Background(), result()); err == nil {
		t.Error("broker error should be returned")
	}

	stalled := newPublisher(&mockClient{stall: true}, Options{Timeout: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := stalled.Accept(ctx, result()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled publish error = %v", err)
	}

	slow := newPublisher(&mockClient{stall: true}, Options{Timeout: time.Millisecond})
	if err := slow.Accept(context.Background(), result()); err == nil {
		t.Error("stalled publish should time out")
	}
}

func TestTopic(t *testing.T) {
	p := newPublisher(&mockClient{}, Options{Topic: "lab/plans"})
	if got := p.Topic("waves"); got != "lab/plans/waves" {
		t.Errorf("Topic = %q", got)
	}
	if got := p.Topic(""); got != "lab/plans/unknown" {
		t.Errorf("Topic(\"\") = %q", got)
	}
}
