// Package eventstest provides an in-memory publisher for tests.
package eventstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Recorder keeps published messages in memory, encoded as they would be on
// the wire.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

type Message struct {
	Key  string
	Body json.RawMessage
}

func (r *Recorder) PublishJSON(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Key: key, Body: b})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		keys = append(keys, m.Key)
	}
	return keys
}
