package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orchestratorx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
)

type fakeChat struct {
	result orchestratorx.Result
	err    error
	traces *tracex.MemoryStore
	last   orchestratorx.ChatRequest
}

func (f *fakeChat) Handle(ctx context.Context, req orchestratorx.ChatRequest) (orchestratorx.Result, error) {
	f.last = req
	return f.result, f.err
}

func (f *fakeChat) Trace(ctx context.Context, id string) (*tracex.Trace, error) {
	return f.traces.Load(ctx, id)
}

func (f *fakeChat) SessionTraces(ctx context.Context, sessionID string) ([]string, error) {
	return f.traces.SessionTraces(ctx, sessionID)
}

type fixture struct {
	store *storex.Store
	tools *toolx.Server
	chat  *fakeChat
	srv   *Server
	http  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	st, err := storex.Open(ctx, storex.Config{Path: filepath.Join(t.TempDir(), "server.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	_, err = st.Seed(ctx)
	require.NoError(t, err)

	tools, err := toolx.NewServer(st)
	require.NoError(t, err)

	chat := &fakeChat{traces: tracex.NewMemoryStore()}
	srv, err := New(Deps{Tools: tools, Chat: chat, Health: st})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{store: st, tools: tools, chat: chat, srv: srv, http: ts}
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := f.http.Client().Post(f.http.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readEvents(t *testing.T, resp *http.Response) []toolx.Event {
	t.Helper()
	var events []toolx.Event
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var evt toolx.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &evt))
		events = append(events, evt)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := f.http.Client().Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	require.NoError(t, f.store.Close())
	resp2, err := f.http.Client().Get(f.http.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestListTools(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/tools/list", "{}")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body toolx.ListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tools, 8)
	assert.Equal(t, toolx.ToolCreateTicket, body.Tools[0].Name)
	for _, tool := range body.Tools {
		assert.NotNil(t, tool.InputSchema, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
}

func TestCallToolStreamsResult(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/tools/call", `{"name":"get_ticket","arguments":{"ticket_id":2}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, toolx.ContentTypeNDJSON, resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	assert.Equal(t, toolx.EventStart, events[0].Event)
	assert.Equal(t, toolx.EventResult, events[1].Event)
	assert.Equal(t, toolx.EventEnd, events[2].Event)

	var ticket storex.Ticket
	require.NoError(t, json.Unmarshal(events[1].Output, &ticket))
	assert.Equal(t, storex.TicketEscalated, ticket.Status)
}

func TestCallToolErrorEvent(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/tools/call", `{"name":"get_customer","arguments":{"customer_id":999}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	require.Equal(t, toolx.EventError, events[1].Event)
	assert.Equal(t, contractx.ToolErrNotFound, events[1].Error.Code)
	assert.Empty(t, events[1].Output)
}

func TestCallToolRejectsBeforeStreaming(t *testing.T) {
	f := newFixture(t)

	cases := map[string]struct {
		body   string
		status int
	}{
		"malformed body": {body: `{`, status: http.StatusBadRequest},
		"missing name":   {body: `{"arguments":{}}`, status: http.StatusBadRequest},
		"unknown tool":   {body: `{"name":"drop_tables"}`, status: http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := f.post(t, "/tools/call", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
		})
	}
}

func TestCallToolStorageFaultEvent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	resp := f.post(t, "/tools/call", `{"name":"get_customer","arguments":{"customer_id":1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	require.Equal(t, toolx.EventError, events[1].Event)
	assert.Equal(t, toolx.CodeStorageFault, events[1].Error.Code)
}

func TestRemoteClientRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	client, err := toolx.NewClient(toolx.ClientConfig{URL: f.http.URL}, toolx.WithHTTPClient(f.http.Client()))
	require.NoError(t, err)

	tools, err := client.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 8)

	res, err := client.CallTool(ctx, toolx.ToolGetCustomer, map[string]any{"customer_id": 1})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	c, err := toolx.Decode[storex.Customer](res.Result)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", c.Name)

	res, err = client.CallTool(ctx, toolx.ToolUpdateTicketStatus, map[string]any{"ticket_id": 1, "status": "closed"})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, contractx.ToolErrConstraintViolated, res.Error.Code)

	res, err = client.CallTool(ctx, "drop_tables", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, contractx.ToolErrUnknownTool, res.Error.Code)

	require.NoError(t, f.store.Close())
	_, err = client.CallTool(ctx, toolx.ToolGetCustomer, map[string]any{"customer_id": 1})
	assert.True(t, errors.Is(err, contractx.ErrStorageFault), "got %v", err)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	f.chat.result = orchestratorx.Result{TraceID: "t-1", Reply: "Ticket #2 is escalated."}

	resp := f.post(t, "/chat", `{"session_id":"s","customer_id":1,"message":"ticket 2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, orchestratorx.ChatRequest{SessionID: "s", CustomerID: 1, Message: "ticket 2"}, f.chat.last)

	var body orchestratorx.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "t-1", body.TraceID)
	assert.Equal(t, "Ticket #2 is escalated.", body.Reply)
}

func TestChatErrors(t *testing.T) {
	f := newFixture(t)

	f.chat.err = orchestratorx.ErrInvalidMessage
	resp := f.post(t, "/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.chat.result = orchestratorx.Result{TraceID: "t-2", Halted: true}
	f.chat.err = contractx.ErrStorageFault
	resp = f.post(t, "/chat", `{"message":"upgrade me"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var body orchestratorx.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Halted)

	f.chat.result = orchestratorx.Result{}
	f.chat.err = errors.New("boom")
	resp = f.post(t, "/chat", `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = f.post(t, "/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTraces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := tracex.New("session-9", 1, "ticket 2", time.Now())
	require.NoError(t, f.chat.traces.Save(ctx, tr))

	resp, err := f.http.Client().Get(f.http.URL + "/traces/" + tr.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got tracex.Trace
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, tr.ID, got.ID)

	missing, err := f.http.Client().Get(f.http.URL + "/traces/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	list, err := f.http.Client().Get(f.http.URL + "/sessions/session-9/traces")
	require.NoError(t, err)
	defer list.Body.Close()
	var body struct {
		Traces []string `json:"traces"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&body))
	assert.Equal(t, []string{tr.ID}, body.Traces)
}

func TestToolOnlyServerHasNoChat(t *testing.T) {
	f := newFixture(t)
	srv, err := New(Deps{Tools: f.tools, Health: f.store})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func connectMCP(t *testing.T, srv *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestMCPListAndCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mcpServer, err := f.srv.NewMCPServer(ctx)
	require.NoError(t, err)
	session := connectMCP(t, mcpServer)

	listed, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, listed.Tools, 8)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      toolx.ToolGetCustomer,
		Arguments: map[string]any{"customer_id": 3},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	var c storex.Customer
	require.NoError(t, json.Unmarshal([]byte(text.Text), &c))
	assert.Equal(t, storex.TierEnterprise, c.Tier)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      toolx.ToolGetCustomer,
		Arguments: map[string]any{"customer_id": 999},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	text, ok = res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, string(contractx.ToolErrNotFound))
}
