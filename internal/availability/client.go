package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/example/room-booking/internal/logging"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	checkPath      = "/check-availability/"

	// responses larger than this are cut; the service answers with a few fields
	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Request is the payload sent to the availability service. Dates are
// YYYY-MM-DD and times HH:MM:SS.
type Request struct {
	RoomNumber  string `json:"room_number"`
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	BookingType string `json:"booking_type"`
}

// Client asks the external availability service whether a room can be booked.
// Check never fails: transport problems are folded into the returned Outcome.
type Client struct {
	hc  *http.Client
	url string
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		hc:  &http.Client{Timeout: timeout},
		url: strings.TrimRight(cfg.BaseURL, "/") + checkPath,
		log: logging.OrNop(log).Named("availability"),
	}
}

// URL is the full endpoint the client posts to.
func (c *Client) URL() string { return c.url }

func (c *Client) Check(ctx context.Context, req Request) Outcome {
	log := c.log.With(
		zap.String("room_number", req.RoomNumber),
		zap.String("booking_date", req.BookingDate),
	)
	log.Info("checking availability",
		zap.String("url", c.url),
		zap.String("start_time", req.StartTime),
		zap.String("end_time", req.EndTime),
		zap.String("booking_type", req.BookingType),
	)

	out := c.check(ctx, log, req)

	log.Info("availability checked",
		zap.Bool("success", out.Succeeded),
		zap.Bool("available", out.Available),
		zap.String("failure", string(out.FailureKind)),
		zap.String("message", out.Message),
	)
	return out
}

func (c *Client) check(ctx context.Context, log *zap.Logger, req Request) Outcome {
	payload, err := json.Marshal(req)
	if err != nil {
		log.Error("encode availability request", zap.Error(err))
		return unexpectedOutcome(err)
	}

	status, body, err := c.do(ctx, payload)
	if err != nil {
		out := classify(err)
		switch out.FailureKind {
		case FailureTimeout:
			log.Warn("availability service timed out", zap.Error(err))
		case FailureConnection:
			log.Error("availability service unreachable", zap.Error(err))
		default:
			log.Error("availability request failed", zap.Error(err))
		}
		return out
	}

	if status < 200 || status >= 300 {
		log.Error("availability service returned an error status",
			zap.Int("status", status), zap.ByteString("body", body))
		return httpFailure(status, body)
	}

	out, err := decodeVerdict(body)
	if err != nil {
		log.Error("unusable availability response", zap.Error(err), zap.ByteString("body", body))
		return unexpectedOutcome(err)
	}
	return out
}

func (c *Client) do(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes+1))
	if err != nil {
		return res.StatusCode, nil, err
	}
	if len(b) > maxBodyBytes {
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return res.StatusCode, nil, errResponseTooLarge
		}
		b = b[:maxBodyBytes]
	}
	return res.StatusCode, b, nil
}

var errResponseTooLarge = fmt.Errorf("response too large (over %d bytes)", maxBodyBytes)

func classify(err error) Outcome {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return timeoutOutcome()
	}
	if errors.Is(err, context.Canceled) {
		return unexpectedOutcome(err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr) && opErr.Op == "dial",
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return connectionOutcome()
	}
	return unexpectedOutcome(err)
}

// decodeVerdict reads a 2xx body. The body must be a JSON object; individual
// fields that are missing or of the wrong type fall back to their defaults.
func decodeVerdict(body []byte) (Outcome, error) {
	raw, fields, err := normalizeObject(body)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Succeeded: true, RawResponse: raw}
	if v, ok := fields["available"]; ok {
		var b bool
		if json.Unmarshal(v, &b) == nil {
			out.Available = b
		}
	}
	if v, ok := fields["message"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out.Message = s
		}
	}
	if v, ok := fields["conflicts"]; ok {
		var cs []json.RawMessage
		if json.Unmarshal(v, &cs) == nil && len(cs) > 0 {
			out.Conflicts = cs
		}
	}
	return out, nil
}

func httpFailure(status int, body []byte) Outcome {
	out := Outcome{FailureKind: FailureHTTP}

	var detail string
	if raw, fields, err := normalizeObject(body); err == nil {
		out.RawResponse = raw
		for _, k := range []string{"detail", "message", "error"} {
			var s string
			if v, ok := fields[k]; ok && json.Unmarshal(v, &s) == nil && s != "" {
				detail = s
				break
			}
		}
	}
	if detail == "" {
		detail = fmt.Sprintf("status %d %s", status, http.StatusText(status))
		if out.RawResponse == nil {
			out.RawResponse, _ = json.Marshal(map[string]string{"detail": detail})
		}
	}
	out.Message = "availability service error: " + detail
	return out
}

// normalizeObject checks that body is a JSON object and returns it compacted
// and HTML-escaped, which is the form encoding/json writes it back out in. That
// keeps a stored outcome identical after a round trip through the database.
func normalizeObject(body []byte) (json.RawMessage, map[string]json.RawMessage, error) {
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, bytes.TrimSpace(body)); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compacted.Bytes())
	raw := escaped.Bytes()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, nil, errors.New("decode response: body is not a JSON object")
	}
	return raw, fields, nil
}
