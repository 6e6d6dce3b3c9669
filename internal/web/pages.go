package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/room-booking/internal/bookings"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recentCount = 10

type tmplData struct {
	Title string
	Flash *Flash

	Today    string
	Types    []bookings.Type
	Statuses []bookings.Status

	Form   bookings.Form
	Errors bookings.ValidationErrors

	Bookings []bookings.Booking
	Booking  *bookings.Booking
	Query    listQuery
	Stats    bookings.Stats
	PrevPage int
	NextPage int
}

// maxListPage keeps the list offset well inside int range.
const maxListPage = 10000

type listQuery struct {
	Email  string
	Status string
	Date   string
	Page   int
}

func (s *Server) page(c *gin.Context, title string) tmplData {
	d := tmplData{
		Title:    title,
		Today:    bookings.DateOf(time.Now()).String(),
		Types:    bookings.Types,
		Statuses: []bookings.Status{bookings.StatusConfirmed, bookings.StatusRejected, bookings.StatusPending},
	}
	if fl, ok := s.Flashes.Pop(c.Writer, c.Request); ok {
		d.Flash = &fl
	}
	return d
}

func (s *Server) flash(c *gin.Context, level FlashLevel, msg string) {
	if err := s.Flashes.Set(c.Writer, c.Request, level, msg); err != nil {
		s.Log.Warn("set flash", zap.Error(err))
	}
}

func (s *Server) handleHome(c *gin.Context) {
	d := s.page(c, "Book a room")
	d.Form = bookings.Form{BookingDate: d.Today, BookingType: string(bookings.TypeLesson)}
	s.renderHome(c, http.StatusOK, d)
}

func (s *Server) renderHome(c *gin.Context, status int, d tmplData) {
	recent, err := s.Bookings.List(c.Request.Context(), bookings.Filter{Limit: recentCount})
	if err != nil {
		s.pageError(c, err)
		return
	}
	d.Bookings = recent
	s.render(c, status, "home.html", d)
}

func (s *Server) handleCreate(c *gin.Context) {
	var form bookings.Form
	if err := c.ShouldBind(&form); err != nil {
		s.flash(c, FlashError, "Could not read the booking form.")
		c.Redirect(http.StatusFound, "/")
		return
	}
	req, err := form.Request()
	if err != nil {
		d := s.page(c, "Book a room")
		d.Form = form
		errors.As(err, &d.Errors)
		s.renderHome(c, http.StatusBadRequest, d)
		return
	}

	b, out, err := s.Bookings.Submit(c.Request.Context(), req)
	if err != nil {
		s.Log.Error("create booking", zap.Error(err))
		s.flash(c, FlashError, "Could not create the booking. Please try again.")
		c.Redirect(http.StatusFound, "/")
		return
	}

	if b.Status == bookings.StatusConfirmed {
		s.flash(c, FlashSuccess, decision(b, out.Message)+" Room "+b.RoomNumber+" is booked.")
	} else {
		s.flash(c, FlashWarning, decision(b, out.Message))
	}
	c.Redirect(http.StatusFound, "/bookings/"+b.ID.String())
}

func (s *Server) handleList(c *gin.Context) {
	q := listQuery{
		Email:  c.Query("email"),
		Status: c.Query("status"),
		Date:   c.Query("date"),
		Page:   1,
	}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 1 {
		q.Page = min(p, maxListPage)
	}

	f := bookings.Filter{
		UserEmail: q.Email,
		Limit:     bookings.DefaultPageSize + 1,
		Offset:    (q.Page - 1) * bookings.DefaultPageSize,
	}
	// unparseable filters are dropped rather than failing the page
	if st, err := bookings.ParseStatus(q.Status); err == nil {
		f.Status = st
	} else {
		q.Status = ""
	}
	if d, err := bookings.ParseDate(q.Date); err == nil {
		f.Date = d
	} else {
		q.Date = ""
	}

	list, err := s.Bookings.List(c.Request.Context(), f)
	if err != nil {
		s.pageError(c, err)
		return
	}
	stats, err := s.Bookings.Stats(c.Request.Context())
	if err != nil {
		s.pageError(c, err)
		return
	}

	d := s.page(c, "Bookings")
	d.Query = q
	d.Stats = stats
	if len(list) > bookings.DefaultPageSize {
		list = list[:bookings.DefaultPageSize]
		d.NextPage = q.Page + 1
	}
	if q.Page > 1 {
		d.PrevPage = q.Page - 1
	}
	d.Bookings = list
	s.render(c, http.StatusOK, "list.html", d)
}

func (s *Server) handleDetail(c *gin.Context) {
	id, err := bookingID(c)
	var b *bookings.Booking
	if err == nil {
		b, err = s.Bookings.Get(c.Request.Context(), id)
	}
	if err != nil {
		s.pageError(c, err)
		return
	}
	d := s.page(c, "Booking "+b.RoomNumber)
	d.Booking = b
	s.render(c, http.StatusOK, "detail.html", d)
}

func (s *Server) handleDelete(c *gin.Context) {
	id, err := bookingID(c)
	var b *bookings.Booking
	if err == nil {
		b, err = s.Bookings.Get(c.Request.Context(), id)
	}
	if err == nil {
		err = s.Bookings.Delete(c.Request.Context(), id)
	}
	if err != nil {
		s.pageError(c, err)
		return
	}
	s.flash(c, FlashSuccess, "Booking for room "+b.RoomNumber+" deleted.")
	c.Redirect(http.StatusFound, "/bookings")
}

func (s *Server) pageError(c *gin.Context, err error) {
	if isNotFound(err) {
		c.String(http.StatusNotFound, "booking not found")
		return
	}
	s.Log.Error("page failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, "internal server error")
}
