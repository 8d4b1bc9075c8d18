// Package memory keeps audit completion events in process. It stands in for
// Pub/Sub when no project is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
)

// Event is one notification as a subscriber would receive it.
type Event struct {
	ID    string
	Topic string
	Data  []byte
}

// Field returns the value at path in the event body, using gjson syntax.
func (e Event) Field(path string) gjson.Result {
	return gjson.GetBytes(e.Data, path)
}

// Publisher records events in publish order.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
	seq    int
	// Err, when set, fails every Publish.
	Err error
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes payload the same way the Pub/Sub publisher does and keeps
// the result.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.seq++
	id := fmt.Sprintf("memory-%d", p.seq)
	p.events = append(p.events, Event{ID: id, Topic: topic, Data: data})
	return id, nil
}

// Messages returns a copy of the recorded events.
func (p *Publisher) Messages() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
