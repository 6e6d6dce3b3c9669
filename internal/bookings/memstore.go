package bookings

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore keeps bookings in process memory. Bookings are copied in and out,
// so callers never share state with the store.
type MemStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]Booking
	now  func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{byID: map[uuid.UUID]Booking{}, now: time.Now}
}

func (m *MemStore) Save(_ context.Context, b *Booking) error {
	if err := stamp(b, m.now()); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[b.ID] = clone(*b)
	return nil
}

func (m *MemStore) Get(_ context.Context, id uuid.UUID) (*Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(b)
	return &c, nil
}

func (m *MemStore) List(_ context.Context, f Filter) ([]Booking, error) {
	m.mu.RLock()
	out := []Booking{}
	email := strings.ToLower(f.UserEmail)
	for _, b := range m.byID {
		if email != "" && !strings.Contains(strings.ToLower(b.UserEmail), email) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.Date.IsZero() && !b.BookingDate.Equal(f.Date) {
			continue
		}
		out = append(out, clone(b))
	}
	m.mu.RUnlock()

	// v7 ids grow with time, so they break ties in creation order
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) > 0
	})

	off := f.offset()
	if off >= len(out) {
		return []Booking{}, nil
	}
	out = out[off:]
	if n := f.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MemStore) Stats(context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Total: len(m.byID)}
	for _, b := range m.byID {
		switch b.Status {
		case StatusConfirmed:
			s.Confirmed++
		case StatusRejected:
			s.Rejected++
		case StatusPending:
			s.Pending++
		}
	}
	return s, nil
}

func clone(b Booking) Booking {
	if b.AvailabilityCheck != nil {
		o := *b.AvailabilityCheck
		if o.Conflicts != nil {
			o.Conflicts = make([]json.RawMessage, len(b.AvailabilityCheck.Conflicts))
			for i, c := range b.AvailabilityCheck.Conflicts {
				o.Conflicts[i] = append(json.RawMessage(nil), c...)
			}
		}
		if o.RawResponse != nil {
			o.RawResponse = append(json.RawMessage(nil), o.RawResponse...)
		}
		b.AvailabilityCheck = &o
	}
	return b
}
