package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
)

type fakeRunner struct {
	got  model.Request
	resp *model.Response
	err  error
}

func (f *fakeRunner) Invoke(_ context.Context, in model.Request) (*model.Response, error) {
	f.got = in
	return f.resp, f.err
}

type fakeRepo struct {
	sessions  []model.SessionSummary
	conv      *model.Conversation
	err       error
	lastLimit int
}

func (f *fakeRepo) AppendTurns(context.Context, string, ...model.Turn) error { return f.err }

func (f *fakeRepo) LoadConversation(_ context.Context, key string) (*model.Conversation, error) {
	return f.conv, f.err
}

func (f *fakeRepo) ListSessions(_ context.Context, limit int) ([]model.SessionSummary, error) {
	f.lastLimit = limit
	return f.sessions, f.err
}

func testServer(runner *fakeRunner, repo *fakeRepo) http.Handler {
	return New(Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second, RequestTimeout: time.Second}, runner, repo).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexServesForm(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "法律助手 · 测试UI")

	rr = do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestChat_ReturnsRunnerResponse(t *testing.T) {
	runner := &fakeRunner{resp: &model.Response{
		Router:   model.RouteDraft,
		Response: "草案",
		State:    model.StateSnapshot{SessionKey: "s1", Router: model.RouteDraft},
	}}
	rr := do(t, testServer(runner, &fakeRepo{}), http.MethodPost, "/api/chat",
		`{"question":"帮我起草一份服务合同","session_key":"s1","force_branch":"draft","contract_text":"x"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.Request{
		Question:     "帮我起草一份服务合同",
		SessionKey:   "s1",
		ForceBranch:  "draft",
		ContractText: "x",
	}, runner.got)

	var body model.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, model.RouteDraft, body.Router)
	assert.Equal(t, "草案", body.Response)
	assert.Equal(t, "s1", body.State.SessionKey)
}

func TestChat_MalformedJSON(t *testing.T) {
	runner := &fakeRunner{}
	rr := do(t, testServer(runner, &fakeRepo{}), http.MethodPost, "/api/chat", `{"question":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"bad request"}`, rr.Body.String())
	assert.Empty(t, runner.got.Question)
}

func TestChat_StateUnavailable(t *testing.T) {
	runner := &fakeRunner{err: errx.WrapState(errors.New("database is locked"))}
	rr := do(t, testServer(runner, &fakeRepo{}), http.MethodPost, "/api/chat", `{"question":"你好"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"error":"state unavailable"}`, rr.Body.String())
}

func TestChat_InternalErrorHidesDetails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("secret stack detail")}
	rr := do(t, testServer(runner, &fakeRepo{}), http.MethodPost, "/api/chat", `{"question":"你好"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
}

func TestChat_MethodNotAllowed(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestListSessions(t *testing.T) {
	repo := &fakeRepo{sessions: []model.SessionSummary{{SessionKey: "a", TurnCount: 2}}}
	h := testServer(&fakeRunner{}, repo)

	rr := do(t, h, http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, defaultListLimit, repo.lastLimit)

	var body sessionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "a", body.Sessions[0].SessionKey)

	rr = do(t, h, http.MethodGet, "/api/sessions?limit=10000", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, maxListLimit, repo.lastLimit)

	rr = do(t, h, http.MethodGet, "/api/sessions?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListSessions_EmptyIsArray(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodGet, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rr.Body.String())
}

func TestListSessions_StoreFailure(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{err: errors.New("boom")}), http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewSession(t *testing.T) {
	rr := do(t, testServer(&fakeRunner{}, &fakeRepo{}), http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body newSessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Regexp(t, `^conv_[0-9a-f]{8}$`, body.SessionKey)
}

func TestGetSession(t *testing.T) {
	repo := &fakeRepo{conv: &model.Conversation{SessionKey: "s1", Turns: []model.Turn{
		model.UserTurn("你好"),
		model.AssistantTurn("您好"),
	}}}
	rr := do(t, testServer(&fakeRunner{}, repo), http.MethodGet, "/api/sessions/s1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"session_key":"s1","messages":[{"role":"user","content":"你好"},{"role":"assistant","content":"您好"}]}`, rr.Body.String())
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(Config{Addr: addr, ShutdownTimeout: time.Second, RequestTimeout: time.Second}, &fakeRunner{}, &fakeRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
