package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/rapport/internal/runtime"
	rapporthttp "github.com/aretw0/rapport/pkg/adapters/http"
	"github.com/aretw0/rapport/pkg/adapters/memory"
	"github.com/aretw0/rapport/pkg/adapters/scripted"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/generation"
	"github.com/aretw0/rapport/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	client := generation.NewClient(scripted.NewWithResponder(scripted.Demo()), generation.WithRegisterer(reg))
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	build := func(ctx context.Context, id string, req rapporthttp.CreateSessionRequest, hooks domain.LifecycleHooks) (*runtime.Orchestrator, error) {
		return runtime.NewOrchestrator(client, runtime.Config{
			Persona:  req.Persona,
			Scenario: req.Scenario,
			Profile:  req.Profile,
		}, runtime.WithSessionID(id), runtime.WithLifecycleHooks(hooks), runtime.WithResultStore(store)), nil
	}

	srv := rapporthttp.NewServer(session.NewManager(store), build,
		rapporthttp.WithGatherer(reg),
		rapporthttp.WithIDGenerator(func() string { return "generated" }),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func get(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func snapshot(t *testing.T, data []byte) runtime.Snapshot {
	t.Helper()
	var snap runtime.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap), string(data))
	return snap
}

func TestServer_SessionRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	code, body := post(t, ts, "/sessions", `{"session_id":"abc","persona":{"name":"Sam","role":"classmate"}}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	snap := snapshot(t, body)
	assert.Equal(t, "abc", snap.SessionID)
	assert.Equal(t, domain.ActivityIdle, snap.Activity)

	code, body = post(t, ts, "/sessions/abc/start", "")
	require.Equal(t, http.StatusOK, code, string(body))
	snap = snapshot(t, body)
	assert.Equal(t, domain.ActivityWaitingForUser, snap.Activity)
	assert.Len(t, snap.Suggestions, 3)
	require.Len(t, snap.Transcript, 1)

	code, body = post(t, ts, "/sessions/abc/input", `{"text":"Hi, I'm Lee. What are you studying?"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	snap = snapshot(t, body)
	assert.Equal(t, 1, snap.Exchanges)
	assert.Positive(t, snap.Totals.Total())
	require.Len(t, snap.Transcript, 3)
	require.NotNil(t, snap.Transcript[1].Analysis)
	assert.NotEmpty(t, snap.Transcript[1].Analysis.Feedback)

	code, body = post(t, ts, "/sessions/abc/select", `{"id":"2"}`)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, 2, snapshot(t, body).Exchanges)

	code, _ = post(t, ts, "/sessions/abc/select", `{"id":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, ts, "/sessions/abc/retry", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, ts, "/sessions/abc/input", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = post(t, ts, "/sessions/abc/end", "")
	require.Equal(t, http.StatusOK, code, string(body))
	var res domain.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, domain.PhaseCompleted, res.Phase)
	assert.Equal(t, domain.ModeDynamic, res.Mode)

	code, body = get(t, ts, "/sessions/abc")
	require.Equal(t, http.StatusOK, code, string(body))
	var stored domain.Result
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, res.Totals, stored.Totals)

	code, _ = post(t, ts, "/sessions/abc/start", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = get(t, ts, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "rapport_generation_requests_total")
}

func TestServer_SessionErrors(t *testing.T) {
	ts := newTestServer(t)

	code, body := post(t, ts, "/sessions", `{}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "generated", snapshot(t, body).SessionID)

	code, _ = post(t, ts, "/sessions", `{}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = post(t, ts, "/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, ts, "/sessions/generated/input", `{"text":"too early"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = get(t, ts, "/sessions/missing")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, ts, "/health")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_ValidateGraph(t *testing.T) {
	ts := newTestServer(t)

	valid := `
root: start
steps:
  - id: start
    actor_line: Hi
    options:
      - {event_id: wave, label: Wave back, next_step_id: end}
  - id: end
    actor_line: Bye
  - id: orphan
    actor_line: Nobody gets here
`
	code, body := post(t, ts, "/graphs/validate", valid)
	require.Equal(t, http.StatusOK, code, string(body))
	var resp rapporthttp.ValidationResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, 3, resp.Steps)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "orphan")

	invalid := `{"root":"start","steps":[{"id":"start","actor_line":"Hi","options":[{"event_id":"go","label":"Go","next_step_id":"ghost"},{"event_id":"stay","label":"Stay","next_step_id":"ghost2"}]}]}`
	code, body = post(t, ts, "/graphs/validate", invalid)
	require.Equal(t, http.StatusUnprocessableEntity, code, string(body))
	resp = rapporthttp.ValidationResponse{}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Valid)
	assert.Len(t, resp.Errors, 2)

	code, _ = post(t, ts, "/graphs/validate", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestServer_Events(t *testing.T) {
	ts := newTestServer(t)

	code, _ := post(t, ts, "/sessions", `{"session_id":"live"}`)
	require.Equal(t, http.StatusCreated, code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sessions/live/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	code, _ = post(t, ts, "/sessions/live/start", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = post(t, ts, "/sessions/live/end", "")
	require.Equal(t, http.StatusOK, code)

	// The stream closes after the completion event.
	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(rest, []byte("event: turn_appended")))
	assert.True(t, bytes.Contains(rest, []byte("event: activity_changed")))
	assert.True(t, bytes.Contains(rest, []byte("event: completed")))
}
