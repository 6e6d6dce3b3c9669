package bookings

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time or zone component.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d *Date) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		*d = Date{}
		return nil
	}
	*d = NewDate(v.Time.Year(), v.Time.Month(), v.Time.Day())
	return nil
}

func (d Date) DateValue() (pgtype.Date, error) {
	return pgtype.Date{Time: d.t, Valid: !d.IsZero()}, nil
}

// TimeOfDay is a wall-clock time with second precision, stored as the offset
// from midnight.
type TimeOfDay time.Duration

const day = TimeOfDay(24 * time.Hour)

// ParseTimeOfDay accepts HH:MM and HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := "15:04:05"
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM or HH:MM:SS)", s)
	}
	return Clock(t.Hour(), t.Minute(), t.Second()), nil
}

func Clock(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

func (t TimeOfDay) Before(o TimeOfDay) bool { return t < o }

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Short drops the seconds, for display.
func (t TimeOfDay) Short() string {
	return t.String()[:5]
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		*t = 0
		return nil
	}
	*t = TimeOfDay(time.Duration(v.Microseconds) * time.Microsecond).Truncate()
	return nil
}

func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	if t < 0 || t >= day {
		return pgtype.Time{}, fmt.Errorf("time of day out of range: %s", time.Duration(t))
	}
	return pgtype.Time{Microseconds: time.Duration(t).Microseconds(), Valid: true}, nil
}

// Truncate drops anything below a second.
func (t TimeOfDay) Truncate() TimeOfDay {
	return TimeOfDay(time.Duration(t).Truncate(time.Second))
}
