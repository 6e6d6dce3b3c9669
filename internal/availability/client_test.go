package availability

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var lessonReq = Request{
	RoomNumber:  "101",
	BookingDate: "2026-10-20",
	StartTime:   "10:00:00",
	EndTime:     "12:00:00",
	BookingType: "lesson",
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second}, zap.NewNop())
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestCheckSendsFivePayloadFields(t *testing.T) {
	var (
		gotPath, gotMethod, gotCT string
		gotBody                   map[string]any
	)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotCT = r.URL.Path, r.Method, r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		reply(http.StatusOK, `{"available":true,"message":"ok"}`)(w, r)
	})

	c.Check(context.Background(), lessonReq)

	assert.Equal(t, "/api/check-availability/", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, map[string]any{
		"room_number":  "101",
		"booking_date": "2026-10-20",
		"start_time":   "10:00:00",
		"end_time":     "12:00:00",
		"booking_type": "lesson",
	}, gotBody)
}

func TestCheckAvailable(t *testing.T) {
	c := newClient(t, reply(http.StatusOK, `{"available": true, "message": "ok", "room": {"capacity": 30}}`))

	out := c.Check(context.Background(), lessonReq)

	assert.True(t, out.Succeeded)
	assert.True(t, out.Available)
	assert.True(t, out.Granted())
	assert.Equal(t, "ok", out.Message)
	assert.Equal(t, FailureNone, out.FailureKind)
	assert.JSONEq(t, `{"available":true,"message":"ok","room":{"capacity":30}}`, string(out.RawResponse))
}

func TestCheckOccupiedKeepsConflicts(t *testing.T) {
	c := newClient(t, reply(http.StatusOK,
		`{"available": false, "message": "Room occupied", "conflicts": [{"start_time": "09:00:00", "end_time": "11:00:00"}]}`))

	out := c.Check(context.Background(), lessonReq)

	assert.True(t, out.Succeeded)
	assert.False(t, out.Available)
	assert.False(t, out.Granted())
	assert.Equal(t, "Room occupied", out.Message)
	require.Len(t, out.Conflicts, 1)
	assert.JSONEq(t, `{"start_time":"09:00:00","end_time":"11:00:00"}`, string(out.Conflicts[0]))
}

func TestCheckMissingOrMalformedFieldsDefault(t *testing.T) {
	cases := map[string]string{
		"empty object":     `{}`,
		"wrong types":      `{"available": "yes", "message": 42, "conflicts": "none"}`,
		"null fields":      `{"available": null, "message": null}`,
		"extra field only": `{"status": "fine"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, reply(http.StatusOK, body))
			out := c.Check(context.Background(), lessonReq)

			assert.True(t, out.Succeeded)
			assert.False(t, out.Available)
			assert.Empty(t, out.Message)
			assert.Nil(t, out.Conflicts)
			assert.Equal(t, FailureNone, out.FailureKind)
		})
	}
}

func TestCheckNonObjectSuccessBodyIsUnexpected(t *testing.T) {
	for _, body := range []string{``, `not json`, `[true]`, `null`} {
		c := newClient(t, reply(http.StatusOK, body))
		out := c.Check(context.Background(), lessonReq)

		assert.False(t, out.Succeeded, body)
		assert.False(t, out.Available, body)
		assert.Equal(t, FailureUnexpected, out.FailureKind, body)
		assert.Contains(t, out.Message, "availability check failed: ", body)
	}
}

func TestCheckHTTPErrorWithDetail(t *testing.T) {
	c := newClient(t, reply(http.StatusBadRequest, `{"detail": "unknown room"}`))

	out := c.Check(context.Background(), lessonReq)

	assert.False(t, out.Succeeded)
	assert.False(t, out.Available)
	assert.Equal(t, FailureHTTP, out.FailureKind)
	assert.Equal(t, "availability service error: unknown room", out.Message)
	assert.JSONEq(t, `{"detail":"unknown room"}`, string(out.RawResponse))
}

func TestCheckHTTPErrorWithoutJSONBody(t *testing.T) {
	c := newClient(t, reply(http.StatusServiceUnavailable, `<html>down</html>`))

	out := c.Check(context.Background(), lessonReq)

	assert.Equal(t, FailureHTTP, out.FailureKind)
	assert.Equal(t, "availability service error: status 503 Service Unavailable", out.Message)
	assert.JSONEq(t, `{"detail":"status 503 Service Unavailable"}`, string(out.RawResponse))
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())
	out := c.Check(context.Background(), lessonReq)

	assert.False(t, out.Succeeded)
	assert.False(t, out.Available)
	assert.Equal(t, FailureTimeout, out.FailureKind)
	assert.Equal(t, msgTimeout, out.Message)
}

func TestCheckCallerDeadlineCountsAsTimeout(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	out := c.Check(ctx, lessonReq)

	assert.Equal(t, FailureTimeout, out.FailureKind)
}

func TestCheckOversizedBodyIsUnexpected(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"available":true,"pad":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
	})

	out := c.Check(context.Background(), lessonReq)

	assert.False(t, out.Succeeded)
	assert.False(t, out.Available)
	assert.Equal(t, FailureUnexpected, out.FailureKind)
	assert.Contains(t, out.Message, "response too large")
}

func TestCheckOversizedErrorBodyKeepsStatus(t *testing.T) {
	c := newClient(t, reply(http.StatusBadGateway, strings.Repeat("x", maxBodyBytes+10)))

	out := c.Check(context.Background(), lessonReq)

	assert.Equal(t, FailureHTTP, out.FailureKind)
}

func TestCheckConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New(Config{BaseURL: "http://" + addr, Timeout: time.Second}, zap.NewNop())
	out := c.Check(context.Background(), lessonReq)

	assert.False(t, out.Succeeded)
	assert.Equal(t, FailureConnection, out.FailureKind)
	assert.Equal(t, msgConnection, out.Message)
}

func TestCheckCanceledContextIsUnexpected(t *testing.T) {
	c := newClient(t, reply(http.StatusOK, `{"available":true}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Check(ctx, lessonReq)

	assert.Equal(t, FailureUnexpected, out.FailureKind)
	assert.Contains(t, out.Message, "context canceled")
}

func TestCheckLogsEntryExitAndFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := httptest.NewServer(reply(http.StatusInternalServerError, `{}`))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL}, zap.New(core))
	c.Check(context.Background(), lessonReq)

	msgs := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{
		"checking availability",
		"availability service returned an error status",
		"availability checked",
	}, msgs)
}

func TestOutcomeSurvivesJSONRoundTrip(t *testing.T) {
	c := newClient(t, reply(http.StatusOK,
		"{\n  \"available\": false,\n  \"message\": \"<b>busy</b> & taken\",\n  \"conflicts\": [ {\"id\": 1} ]\n}"))
	out := c.Check(context.Background(), lessonReq)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	var back Outcome
	require.NoError(t, json.Unmarshal(b, &back))

	assert.Equal(t, out, back)
	assert.Equal(t, "<b>busy</b> & taken", back.Message)
}
