package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient(ClientConfig{URL: ts.URL}, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{URL: "not a url"})
	require.Error(t, err)
}

func TestClientCallToolResult(t *testing.T) {
	var got CallRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools/call", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", ContentTypeNDJSON)
		fmt.Fprintln(w, `{"event":"start","tool":"get_ticket"}`)
		fmt.Fprintln(w, `{"event":"result","tool":"get_ticket","output":{"id":42,"status":"escalated"}}`)
		fmt.Fprintln(w, `{"event":"end","tool":"get_ticket"}`)
	})

	res, err := c.CallTool(context.Background(), ToolGetTicket, map[string]any{"ticket_id": 42})
	require.NoError(t, err)
	require.Nil(t, res.Error)
	assert.Equal(t, ToolGetTicket, got.Name)
	assert.EqualValues(t, 42, got.Arguments["ticket_id"])

	out, ok := res.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "escalated", out["status"])
}

func TestClientCallToolErrorEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"event":"start","tool":"get_customer"}`)
		fmt.Fprintln(w, `{"event":"error","tool":"get_customer","error":{"code":"not_found","message":"customer 9 not found"}}`)
		fmt.Fprintln(w, `{"event":"end","tool":"get_customer"}`)
	})

	res, err := c.CallTool(context.Background(), ToolGetCustomer, map[string]any{"customer_id": 9})
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, contractx.ToolErrNotFound, res.Error.Code)
}

func TestClientCallToolStorageFaultEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"event":"start","tool":"get_customer"}`)
		fmt.Fprintln(w, `{"event":"error","tool":"get_customer","error":{"code":"storage_fault","message":"database is closed"}}`)
		fmt.Fprintln(w, `{"event":"end","tool":"get_customer"}`)
	})

	_, err := c.CallTool(context.Background(), ToolGetCustomer, map[string]any{"customer_id": 1})
	assert.ErrorIs(t, err, contractx.ErrStorageFault)
}

func TestClientCallToolUnknownTool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown tool"}`, http.StatusNotFound)
	})

	res, err := c.CallTool(context.Background(), "nope", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, contractx.ToolErrUnknownTool, res.Error.Code)
}

func TestClientCallToolTruncatedStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"event":"start","tool":"get_customer"}`)
	})

	_, err := c.CallTool(context.Background(), ToolGetCustomer, map[string]any{"customer_id": 1})
	assert.ErrorIs(t, err, contractx.ErrStorageFault)
}

func TestClientListTools(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tools/list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tools":[{"name":"get_customer","description":"Get a single customer by id.","input_schema":{"type":"object"}}]}`)
	})

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, ToolGetCustomer, tools[0].Name)
	assert.Equal(t, "object", tools[0].InputSchema.Type)
}

func TestClientListToolsMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tools":[{"name":`)
	})

	_, err := c.ListTools(context.Background())
	assert.ErrorIs(t, err, contractx.ErrStorageFault)
}
