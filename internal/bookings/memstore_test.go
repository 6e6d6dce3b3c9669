package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/example/room-booking/internal/availability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("save assigns identity and timestamps", func(t *testing.T) {
		s := newStore(t)
		b := &Booking{Request: sampleRequest(), Status: StatusConfirmed,
			AvailabilityCheck: &availability.Outcome{Succeeded: true, Available: true, Message: "ok"}}
		require.NoError(t, s.Save(ctx, b))

		assert.NotEqual(t, uuid.Nil, b.ID)
		assert.False(t, b.CreatedAt.IsZero())
		assert.Equal(t, b.CreatedAt, b.UpdatedAt)
		assert.Equal(t, time.UTC, b.CreatedAt.Location())

		got, err := s.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})

	t.Run("get and delete unknown id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, uuid.New()), ErrNotFound)
	})

	t.Run("delete removes", func(t *testing.T) {
		s := newStore(t)
		b := &Booking{Request: sampleRequest(), Status: StatusRejected}
		require.NoError(t, s.Save(ctx, b))
		require.NoError(t, s.Delete(ctx, b.ID))
		_, err := s.Get(ctx, b.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		s := newStore(t)
		save := func(email string, st Status, d Date) *Booking {
			req := sampleRequest()
			req.UserEmail = email
			req.BookingDate = d
			b := &Booking{Request: req, Status: st}
			require.NoError(t, s.Save(ctx, b))
			return b
		}
		day1 := NewDate(2026, time.October, 20)
		day2 := day1.AddDays(1)
		a := save("Ada@Example.com", StatusConfirmed, day1)
		b := save("bob@example.com", StatusRejected, day1)
		c := save("ada.l@uni.edu", StatusRejected, day2)
		d := save("100%_sure@example.com", StatusConfirmed, day2)

		ids := func(f Filter) []uuid.UUID {
			out, err := s.List(ctx, f)
			require.NoError(t, err)
			var got []uuid.UUID
			for _, x := range out {
				got = append(got, x.ID)
			}
			return got
		}

		assert.Equal(t, []uuid.UUID{d.ID, c.ID, b.ID, a.ID}, ids(Filter{}))
		assert.Equal(t, []uuid.UUID{c.ID, a.ID}, ids(Filter{UserEmail: "ADA"}))
		assert.Equal(t, []uuid.UUID{d.ID}, ids(Filter{UserEmail: "%_"}))
		assert.Equal(t, []uuid.UUID{c.ID, b.ID}, ids(Filter{Status: StatusRejected}))
		assert.Equal(t, []uuid.UUID{b.ID, a.ID}, ids(Filter{Date: day1}))
		assert.Equal(t, []uuid.UUID{c.ID}, ids(Filter{UserEmail: "ada", Status: StatusRejected, Date: day2}))
		assert.Equal(t, []uuid.UUID{c.ID, b.ID}, ids(Filter{Limit: 2, Offset: 1}))
		assert.Empty(t, ids(Filter{Offset: 10}))

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 4, Confirmed: 2, Rejected: 2}, stats)
	})
}

func TestMemStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemStore() })
}

func TestMemStoreCopiesBookings(t *testing.T) {
	s := NewMemStore()
	b := &Booking{Request: sampleRequest(), Status: StatusConfirmed,
		AvailabilityCheck: &availability.Outcome{Succeeded: true, Message: "ok"}}
	require.NoError(t, s.Save(context.Background(), b))

	b.RoomNumber = "999"
	b.AvailabilityCheck.Message = "changed"

	got, err := s.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "101", got.RoomNumber)
	assert.Equal(t, "ok", got.AvailabilityCheck.Message)
}
