package tool

import (
	"encoding/json"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

const ContentTypeNDJSON = "application/x-ndjson"

type EventKind string

const (
	EventStart  EventKind = "start"
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

// CodeStorageFault marks an error event caused by the data store rather than
// the tool. It never appears in a ToolResult.
const CodeStorageFault contractx.ToolErrorCode = "storage_fault"

// Event is one line of a streamed /tools/call response.
type Event struct {
	Event  EventKind            `json:"event"`
	Tool   string               `json:"tool"`
	Output json.RawMessage      `json:"output,omitempty"`
	Error  *contractx.ToolError `json:"error,omitempty"`
}

type CallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type ListResponse struct {
	Tools []contractx.ToolDescriptor `json:"tools"`
}
