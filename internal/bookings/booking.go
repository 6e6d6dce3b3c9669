package bookings

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/db"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Status string

const (
	// StatusPending is reserved by the schema. Admission always decides.
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Type string

const (
	TypeLesson  Type = "lesson"
	TypeExam    Type = "exam"
	TypeMeeting Type = "meeting"
)

var Types = []Type{TypeLesson, TypeExam, TypeMeeting}

// ErrNotFound is returned by stores for an unknown booking id.
var ErrNotFound = db.ErrNotFound

// Request is what a user asks for. It carries no identity or outcome.
type Request struct {
	UserEmail   string    `json:"user_email" validate:"required,email"`
	RoomNumber  string    `json:"room_number" validate:"required,max=50"`
	BookingDate Date      `json:"booking_date"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	BookingType Type      `json:"booking_type" validate:"omitempty,oneof=lesson exam meeting"`
	Purpose     string    `json:"purpose"`
}

// Normalize trims text fields and fills in the default booking type.
func (r *Request) Normalize() {
	r.UserEmail = strings.TrimSpace(r.UserEmail)
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.BookingType = Type(strings.ToLower(strings.TrimSpace(string(r.BookingType))))
	if r.BookingType == "" {
		r.BookingType = TypeLesson
	}
}

func (r Request) Validate() error {
	errs := ValidationErrors{}
	collect(errs, validate.Struct(r))

	if r.BookingDate.IsZero() {
		errs["booking_date"] = "this field is required"
	}
	for field, t := range map[string]TimeOfDay{"start_time": r.StartTime, "end_time": r.EndTime} {
		if t < 0 || t >= day {
			errs[field] = "must be a time of day"
		}
	}
	_, badStart := errs["start_time"]
	_, badEnd := errs["end_time"]
	if !badStart && !badEnd && !r.StartTime.Before(r.EndTime) {
		errs["end_time"] = "start time must be before end time"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// AvailabilityRequest is the subset of the request the availability service
// looks at.
func (r Request) AvailabilityRequest() availability.Request {
	typ := r.BookingType
	if typ == "" {
		typ = TypeLesson
	}
	return availability.Request{
		RoomNumber:  r.RoomNumber,
		BookingDate: r.BookingDate.String(),
		StartTime:   r.StartTime.String(),
		EndTime:     r.EndTime.String(),
		BookingType: string(typ),
	}
}

// Form is a request as typed by a person: every field is text. The web pages,
// the JSON API and the CLI all bind into it.
type Form struct {
	UserEmail   string `json:"user_email" form:"user_email" validate:"required,email"`
	RoomNumber  string `json:"room_number" form:"room_number" validate:"required,max=50"`
	BookingDate string `json:"booking_date" form:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" form:"start_time" validate:"required"`
	EndTime     string `json:"end_time" form:"end_time" validate:"required"`
	BookingType string `json:"booking_type" form:"booking_type" validate:"omitempty,oneof=lesson exam meeting"`
	Purpose     string `json:"purpose" form:"purpose"`
}

// Request parses and validates the form. The error is always ValidationErrors.
func (f Form) Request() (Request, error) {
	f.UserEmail = strings.TrimSpace(f.UserEmail)
	f.RoomNumber = strings.TrimSpace(f.RoomNumber)
	f.BookingDate = strings.TrimSpace(f.BookingDate)
	f.BookingType = strings.ToLower(strings.TrimSpace(f.BookingType))

	errs := ValidationErrors{}
	collect(errs, validate.Struct(f))

	req := Request{
		UserEmail:   f.UserEmail,
		RoomNumber:  f.RoomNumber,
		BookingType: Type(f.BookingType),
		Purpose:     f.Purpose,
	}
	if _, bad := errs["booking_date"]; !bad {
		d, err := ParseDate(f.BookingDate)
		if err != nil {
			errs["booking_date"] = err.Error()
		}
		req.BookingDate = d
	}
	if _, bad := errs["start_time"]; !bad {
		t, err := ParseTimeOfDay(f.StartTime)
		if err != nil {
			errs["start_time"] = err.Error()
		}
		req.StartTime = t
	}
	if _, bad := errs["end_time"]; !bad {
		t, err := ParseTimeOfDay(f.EndTime)
		if err != nil {
			errs["end_time"] = err.Error()
		}
		req.EndTime = t
	}
	if len(errs) > 0 {
		return Request{}, errs
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Booking is a request together with the admission decision.
type Booking struct {
	ID uuid.UUID `json:"id"`
	Request
	Status            Status                `json:"status"`
	AvailabilityCheck *availability.Outcome `json:"availability_check_response"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func (b Booking) String() string {
	return fmt.Sprintf("%s - %s (%s)", b.RoomNumber, b.BookingDate, b.UserEmail)
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	UserEmail string // case-insensitive substring
	Status    Status
	Date      Date
	Limit     int
	Offset    int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultPageSize
	case f.Limit > MaxPageSize:
		return MaxPageSize
	}
	return f.Limit
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

type Stats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Pending   int `json:"pending"`
}

// Store persists bookings. Save assigns the id and timestamps of a new
// booking. Get and Delete return ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (Stats, error)
}

// stamp prepares a booking for its first write.
func stamp(b *Booking, now time.Time) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("new booking id: %w", err)
		}
		b.ID = id
	}
	now = now.UTC().Truncate(time.Microsecond)
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// ValidationErrors maps a json field name to what is wrong with it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "invalid booking: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func collect(into ValidationErrors, err error) {
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		into["_"] = err.Error()
		return
	}
	for _, fe := range verrs {
		into[fe.Field()] = describe(fe)
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	}
	return "is invalid"
}
