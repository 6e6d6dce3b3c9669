package cmd

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func availabilityStub(t *testing.T, body string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("AVAILABILITY_SERVICE_URL", srv.URL)
	t.Setenv("LOG_LEVEL", "error")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "roombook dev"), out)
}

func TestKeysPrintsUsableKeys(t *testing.T) {
	out, err := run(t, "keys")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		_, v, ok := strings.Cut(l, "=")
		require.True(t, ok, l)
		key, err := base64.StdEncoding.DecodeString(v)
		require.NoError(t, err)
		assert.Len(t, key, 32)
	}
}

func TestMigrateList(t *testing.T) {
	out, err := run(t, "migrate", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_bookings.sql")
}

func TestBookingCreateInMemory(t *testing.T) {
	availabilityStub(t, `{"available": true, "message": "free"}`)

	out, err := run(t, "booking", "create", "--in-memory",
		"--email", "ada@example.com", "--room", "101", "--date", "2026-10-20", "--start", "10:00", "--end", "11:00")
	require.NoError(t, err)
	assert.Contains(t, out, "status=confirmed")
	assert.Contains(t, out, `message="free"`)
}

func TestBookingCreateRejectsBadInput(t *testing.T) {
	availabilityStub(t, `{"available": true}`)

	_, err := run(t, "booking", "create", "--in-memory",
		"--email", "ada@example.com", "--room", "101", "--date", "2026-10-20", "--start", "11:00", "--end", "10:00")
	assert.ErrorContains(t, err, "start time must be before end time")
}

func TestCheckPrintsOutcome(t *testing.T) {
	availabilityStub(t, `{"available": false, "message": "Room occupied"}`)

	out, err := run(t, "check", "--room", "101", "--date", "2026-10-20", "--start", "10:00", "--end", "11:00")
	require.NoError(t, err)
	assert.Contains(t, out, `"message": "Room occupied"`)
	assert.Contains(t, out, `"available": false`)
}
