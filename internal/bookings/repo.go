package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-booking/internal/db"
	"github.com/google/uuid"
)

const bookingColumns = `id,user_email,room_number,booking_date,start_time,end_time,booking_type,purpose,status,availability_check_response,created_at,updated_at`

// Repo is the Postgres Store.
type Repo struct {
	db  *db.DB
	now func() time.Time
}

func NewRepo(d *db.DB) *Repo { return &Repo{db: d, now: time.Now} }

func (r *Repo) Save(ctx context.Context, b *Booking) error {
	if err := stamp(b, r.now()); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
INSERT INTO bookings(`+bookingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.UserEmail, b.RoomNumber, b.BookingDate, b.StartTime, b.EndTime, string(b.BookingType), b.Purpose,
		string(b.Status), b.AvailabilityCheck, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save booking: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `
SELECT `+bookingColumns+`
FROM bookings
WHERE id=$1`, id))
	if err != nil {
		return nil, db.WrapNotFound(err)
	}
	return b, nil
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserEmail != "" {
		where = append(where, `user_email ILIKE '%' || `+arg(escapeLike(f.UserEmail))+` || '%' ESCAPE '\'`)
	}
	if f.Status != "" {
		where = append(where, `status=`+arg(string(f.Status)))
	}
	if !f.Date.IsZero() {
		where = append(where, `booking_date=`+arg(f.Date))
	}

	q := `
SELECT ` + bookingColumns + `
FROM bookings`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY created_at DESC, id DESC\nLIMIT " + arg(f.limit()) + " OFFSET " + arg(f.offset())

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("list bookings: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE status='confirmed'),
       count(*) FILTER (WHERE status='rejected'),
       count(*) FILTER (WHERE status='pending')
FROM bookings`).Scan(&s.Total, &s.Confirmed, &s.Rejected, &s.Pending)
	if err != nil {
		return Stats{}, fmt.Errorf("booking stats: %w", err)
	}
	return s, nil
}

func scanBooking(row db.Row) (*Booking, error) {
	var (
		b           Booking
		typ, status string
	)
	if err := row.Scan(
		&b.ID, &b.UserEmail, &b.RoomNumber, &b.BookingDate, &b.StartTime, &b.EndTime, &typ, &b.Purpose,
		&status, &b.AvailabilityCheck, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.BookingType = Type(typ)
	b.Status = Status(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
