package bookings

import (
	"context"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checker answers availability questions. *availability.Client is one.
type Checker interface {
	Check(ctx context.Context, req availability.Request) availability.Outcome
}

// Publisher announces booking lifecycle events.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

const (
	EventConfirmed = "booking.confirmed"
	EventRejected  = "booking.rejected"
	EventDeleted   = "booking.deleted"
)

// Event is the payload published for every booking event.
type Event struct {
	Type    string   `json:"type"`
	Booking *Booking `json:"booking,omitempty"`
	ID      string   `json:"id"`
}

type Service struct {
	store   Store
	checker Checker
	pub     Publisher
	log     *zap.Logger
}

func NewService(store Store, checker Checker, pub Publisher, log *zap.Logger) *Service {
	return &Service{store: store, checker: checker, pub: pub, log: logging.OrNop(log).Named("bookings")}
}

// Submit asks for availability, decides the status and stores the booking.
// A rejected booking is a normal result; the error is set only when the
// booking could not be stored, and then no booking is returned.
func (s *Service) Submit(ctx context.Context, req Request) (*Booking, availability.Outcome, error) {
	if req.BookingType == "" {
		req.BookingType = TypeLesson
	}
	out := s.checker.Check(ctx, req.AvailabilityRequest())

	b := &Booking{
		Request: req,
		Status:  StatusRejected,
	}
	if out.Granted() {
		b.Status = StatusConfirmed
	}
	stored := out
	b.AvailabilityCheck = &stored

	if err := s.store.Save(ctx, b); err != nil {
		s.log.Error("save booking failed",
			zap.String("room_number", req.RoomNumber),
			zap.String("status", string(b.Status)),
			zap.Error(err))
		return nil, out, err
	}

	s.log.Info("booking admitted",
		zap.String("id", b.ID.String()),
		zap.String("room_number", b.RoomNumber),
		zap.String("booking_date", b.BookingDate.String()),
		zap.String("status", string(b.Status)),
	)

	event := EventRejected
	if b.Status == StatusConfirmed {
		event = EventConfirmed
	}
	s.publish(ctx, event, b.ID, b)
	return b, out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Booking, error) {
	return s.store.List(ctx, f)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("booking deleted", zap.String("id", id.String()))
	s.publish(ctx, EventDeleted, id, nil)
	return nil
}

func (s *Service) publish(ctx context.Context, event string, id uuid.UUID, b *Booking) {
	if s.pub == nil {
		return
	}
	err := s.pub.PublishJSON(ctx, event, Event{Type: event, ID: id.String(), Booking: b})
	if err != nil {
		s.log.Warn("publish booking event failed", zap.String("event", event), zap.String("id", id.String()), zap.Error(err))
	}
}
