package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/example/room-booking/internal/bookings"
	"github.com/example/room-booking/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

//go:embed templates/*.html static/*
var fs embed.FS

type Server struct {
	Bookings *bookings.Service
	Flashes  *Flashes
	// Limiter throttles booking creation per client IP. Nil disables it.
	Limiter *limiter.Limiter
	Log     *zap.Logger

	Version        string
	AllowedOrigins []string
}

func (s *Server) Routes() http.Handler {
	s.Log = logging.OrNop(s.Log)
	if s.Flashes == nil {
		s.Flashes = NewFlashes(nil, nil)
	}

	r := gin.New()
	r.Use(recovery(s.Log))
	r.Use(requestLogger(s.Log))
	r.Use(cors.New(corsConfig(s.AllowedOrigins)))

	r.GET("/static/*filepath", gin.WrapH(http.FileServer(http.FS(fs))))

	limited := rateLimit(s.Limiter, s.Log)

	r.GET("/", s.handleHome)
	r.POST("/", limited, s.handleCreate)
	r.GET("/bookings", s.handleList)
	r.GET("/bookings/:id", s.handleDetail)
	r.POST("/bookings/:id/delete", s.handleDelete)

	api := r.Group("/api")
	{
		api.GET("/health", s.apiHealth)
		api.POST("/create-booking", limited, s.apiCreate)
		api.GET("/bookings", s.apiList)
		api.GET("/bookings/stats", s.apiStats)
		api.GET("/bookings/:id", s.apiGet)
		api.DELETE("/bookings/:id", s.apiDelete)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// decision is the sentence shown to the user after admission.
func decision(b *bookings.Booking, msg string) string {
	if b.Status == bookings.StatusConfirmed {
		return "Booking confirmed."
	}
	if msg == "" {
		msg = "room is not available"
	}
	return "Booking rejected: " + msg
}

// bookingID parses the :id path parameter. A malformed id cannot name a
// booking, so it is reported as not found.
func bookingID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, bookings.ErrNotFound
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, bookings.ErrNotFound)
}

var funcs = template.FuncMap{
	"statusClass": func(s bookings.Status) string {
		switch s {
		case bookings.StatusConfirmed:
			return "ok"
		case bookings.StatusRejected:
			return "bad"
		}
		return "wait"
	},
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

func (s *Server) render(c *gin.Context, status int, name string, data tmplData) {
	t, err := template.New("").Funcs(funcs).ParseFS(fs,
		"templates/base.html",
		"templates/"+name,
	)
	if err != nil {
		s.Log.Error("parse template", zap.String("template", name), zap.Error(err))
		c.String(http.StatusInternalServerError, "template error")
		return
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(c.Writer, "base", data); err != nil {
		s.Log.Error("render template", zap.String("template", name), zap.Error(err))
	}
}

func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
