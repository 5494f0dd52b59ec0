package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grindhub/pkg/agent"
	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/config"
	"grindhub/pkg/router"
	"grindhub/pkg/session"
)

func newTestServer(t *testing.T, mock *agent.MockLLMClient) (*httptest.Server, session.Store, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	engine, err := router.New(config.Default(), mock, nil, rec)
	require.NoError(t, err)

	store := session.NewMemoryStore(8, time.Hour)
	srv := httptest.NewServer(New(config.ServerConfig{}, engine, store, reg).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return srv, store, reg
}

func greetingMock() *agent.MockLLMClient {
	return agent.NewMockLLMClient().
		On(llm.LabelIntent, agent.Reply(`{"intent": "Greeting and Farewell"}`)).
		On(llm.LabelReply, agent.Reply("Hello!")).
		On(llm.LabelSummary, agent.Reply("The user said hello."))
}

func postChat(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestChat(t *testing.T) {
	srv, store, _ := newTestServer(t, greetingMock())

	resp := postChat(t, srv.URL, `{"user_id": "u1", "message": "hi there"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Hello!", out.Reply)
	assert.Equal(t, "Greeting and Farewell", out.Intent)
	assert.Equal(t, "DONE", out.State)
	assert.NotEmpty(t, out.TurnID)

	sess, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "The user said hello.", sess.RunningContext)
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, greetingMock())
	for _, body := range []string{`not json`, `{"user_id": "u1"}`, `{"message": "hi"}`, `{"user_id": " ", "message": "hi"}`} {
		resp := postChat(t, srv.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestResetContext(t *testing.T) {
	srv, store, _ := newTestServer(t, greetingMock())
	require.NoError(t, store.Save(context.Background(), &session.Session{UserID: "u1", RunningContext: "C0"}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/u1/context", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	sess, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, sess.RunningContext)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, greetingMock())
	postChat(t, srv.URL, `{"user_id": "u1", "message": "hi there"}`)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "grindhub_turns_total")
}

func TestListenAndServeStops(t *testing.T) {
	s := New(config.ServerConfig{ListenAddr: "127.0.0.1:0"}, nil, session.NewMemoryStore(1, time.Minute), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
