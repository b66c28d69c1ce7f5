package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/asyncops/internal/engine"
	"github.com/seantiz/asyncops/internal/model"
)

func publish(t *testing.T, ts *httptest.Server, query, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/publish"+query, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestPublishDelay(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := publish(t, ts, "?payload_type=Delay", `{"owner_id":"u1","name":"demo","step_count":2,"step_delay_ms":5}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var op model.Operation
	decodeBody(t, resp, &op)
	require.NotEmpty(t, op.ID)
	assert.Equal(t, "Delay", op.PayloadType)
	assert.Equal(t, "demo", op.Name)
	assert.Equal(t, "u1", op.OwnerID)
	assert.Equal(t, model.StatusPending, op.Status)

	waitForStatus(t, srv, op.ID, model.StatusCompleted)
}

func TestPublishTypeFromBody(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := publish(t, ts, "", `{"payload_type":"Report","start_date":"2026-01-01T00:00:00Z","end_date":"2026-01-02T00:00:00Z"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var op model.Operation
	decodeBody(t, resp, &op)
	assert.Equal(t, "Report", op.PayloadType)
	waitForStatus(t, srv, op.ID, model.StatusCompleted)
}

func TestPublishBadRequests(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name  string
		query string
		body  string
	}{
		{"missing type", "", `{"step_count":1}`},
		{"unknown type", "?payload_type=Nope", `{}`},
		{"invalid json", "?payload_type=Delay", `{"step_count":`},
		{"wrong field type", "?payload_type=Delay", `{"step_count":"ten"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := publish(t, ts, tt.query, tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestPublishQueueFull(t *testing.T) {
	srv := newTestServerWith(t, engine.Options{QueueSize: 1}, false)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	first := publish(t, ts, "?payload_type=Delay", `{"step_count":1,"step_delay_ms":1}`)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second := publish(t, ts, "?payload_type=Delay", `{"step_count":1,"step_delay_ms":1}`)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestPublishTypeLimit(t *testing.T) {
	srv := newTestServerWith(t, engine.Options{PayloadLimits: map[string]int{"Delay": 1}}, true)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	first := publish(t, ts, "?payload_type=Delay", `{"step_count":50,"step_delay_ms":20}`)
	var op model.Operation
	decodeBody(t, first, &op)
	first.Body.Close()
	waitRunning(t, srv, op.ID)

	second := publish(t, ts, "?payload_type=Delay", `{"step_count":1,"step_delay_ms":1}`)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	require.NoError(t, srv.engine.Cancel(context.Background(), op.ID, engine.CancelOptions{WaitForCompletion: true, Timeout: time.Second}))
}

func TestPublishEngineStopped(t *testing.T) {
	srv := newTestServerWith(t, engine.Options{}, false)
	require.NoError(t, srv.engine.Stop(time.Second))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := publish(t, ts, "?payload_type=Delay", `{}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func waitRunning(t *testing.T, srv *Server, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		ap, ok := srv.engine.ActiveProcess(id)
		return ok && ap.Status == model.StatusRunning
	}, 5*time.Second, 5*time.Millisecond, "operation %s never started running", id)
}

func TestCancelEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := publish(t, ts, "?payload_type=Delay", `{"step_count":50,"step_delay_ms":20}`)
	var op model.Operation
	decodeBody(t, resp, &op)
	resp.Body.Close()
	waitRunning(t, srv, op.ID)

	cancelResp, err := http.Post(ts.URL+"/v1/cancel/"+op.ID+"?wait_for_completion=true&timeout_ms=2000", "application/json", nil)
	require.NoError(t, err)
	defer cancelResp.Body.Close()
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)

	var body cancelResponse
	decodeBody(t, cancelResp, &body)
	assert.True(t, body.Canceled)
	assert.True(t, body.Waited)
	assert.Equal(t, string(model.StatusCanceled), body.Status)

	again, err := http.Post(ts.URL+"/v1/cancel/"+op.ID, "application/json", nil)
	require.NoError(t, err)
	defer again.Body.Close()
	assert.Equal(t, http.StatusNotFound, again.StatusCode, "second cancel")
}

func TestCancelThrowIfRequested(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := publish(t, ts, "?payload_type=Delay", `{"step_count":50,"step_delay_ms":20}`)
	var op model.Operation
	decodeBody(t, resp, &op)
	resp.Body.Close()
	waitRunning(t, srv, op.ID)

	cancelResp, err := http.Post(ts.URL+"/v1/cancel/"+op.ID+"?throw_if_cancellation_requested=true", "application/json", nil)
	require.NoError(t, err)
	defer cancelResp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, cancelResp.StatusCode)
	waitForStatus(t, srv, op.ID, model.StatusCanceled)
}

func TestCancelUnknownOperation(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/cancel/"+model.NewID(), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
