package web

import (
	"net/http"
	"strconv"

	"github.com/example/room-booking/internal/bookings"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const invalidBooking = "invalid booking data"

func (s *Server) apiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "booking-service",
		"version": s.Version,
	})
}

func (s *Server) apiCreate(c *gin.Context) {
	var form bookings.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": invalidBooking,
			"errors":  bookings.ValidationErrors{"body": "must be a JSON object"},
		})
		return
	}
	req, err := form.Request()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": invalidBooking,
			"errors":  err,
		})
		return
	}

	b, out, err := s.Bookings.Submit(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "could not create the booking",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":            true,
		"message":            decision(b, out.Message),
		"booking":            b,
		"availability_check": out,
	})
}

func (s *Server) apiList(c *gin.Context) {
	f, errs := apiFilter(c)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid filter", "errors": errs})
		return
	}
	list, err := s.Bookings.List(c.Request.Context(), f)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func apiFilter(c *gin.Context) (bookings.Filter, bookings.ValidationErrors) {
	var f bookings.Filter
	errs := bookings.ValidationErrors{}

	f.UserEmail = c.Query("user_email")
	if v := c.Query("status"); v != "" {
		st, err := bookings.ParseStatus(v)
		if err != nil {
			errs["status"] = "must be one of: pending, confirmed, rejected"
		}
		f.Status = st
	}
	if v := c.Query("date"); v != "" {
		d, err := bookings.ParseDate(v)
		if err != nil {
			errs["date"] = "must be a date in YYYY-MM-DD format"
		}
		f.Date = d
	}
	for key, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs[key] = "must be a non-negative integer"
			continue
		}
		*dst = n
	}
	return f, errs
}

func (s *Server) apiStats(c *gin.Context) {
	st, err := s.Bookings.Stats(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) apiGet(c *gin.Context) {
	id, err := bookingID(c)
	if err == nil {
		var b *bookings.Booking
		if b, err = s.Bookings.Get(c.Request.Context(), id); err == nil {
			c.JSON(http.StatusOK, b)
			return
		}
	}
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "booking not found"})
		return
	}
	s.serverError(c, err)
}

func (s *Server) apiDelete(c *gin.Context) {
	id, err := bookingID(c)
	if err == nil {
		if err = s.Bookings.Delete(c.Request.Context(), id); err == nil {
			c.Status(http.StatusNoContent)
			return
		}
	}
	if isNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "booking not found"})
		return
	}
	s.serverError(c, err)
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.Log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
}
