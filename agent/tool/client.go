package tool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
)

const maxResponseSizeBytes = 4 << 20

type ClientConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client is a ToolGateway backed by a tool server in another process. It
// speaks the /tools/list and streamed /tools/call endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ contractx.ToolGateway = (*Client)(nil)

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("tool server url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid tool server url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) ListTools(ctx context.Context) ([]contractx.ToolDescriptor, error) {
	resp, err := c.post(ctx, "/tools/list", struct{}{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read tools/list response: %v", contractx.ErrStorageFault, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tools/list http status=%d body=%s", contractx.ErrStorageFault, resp.StatusCode, string(raw))
	}

	var out ListResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode tools/list response: %v", contractx.ErrStorageFault, err)
	}
	return out.Tools, nil
}

// CallTool posts one call and folds the event stream back into a ToolResult.
// Transport failures and storage_fault events become storage faults.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	resp, err := c.post(ctx, "/tools/call", CallRequest{Name: name, Arguments: args})
	if err != nil {
		return contractx.ToolResult{Tool: name}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return contractx.ToolResult{
			Tool:  name,
			Error: contractx.NewToolError(contractx.ToolErrUnknownTool, "unknown tool %q", name),
		}, nil
	case http.StatusBadRequest:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
		return contractx.ToolResult{
			Tool:  name,
			Error: contractx.NewToolError(contractx.ToolErrBadArguments, "%s", strings.TrimSpace(string(raw))),
		}, nil
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
		return contractx.ToolResult{Tool: name}, fmt.Errorf("%w: tools/call http status=%d body=%s",
			contractx.ErrStorageFault, resp.StatusCode, string(raw))
	}

	return readEvents(name, resp.Body)
}

func readEvents(name string, body io.Reader) (contractx.ToolResult, error) {
	res := contractx.ToolResult{Tool: name}
	var sawStart, sawOutcome, sawEnd bool

	scanner := bufio.NewScanner(io.LimitReader(body, maxResponseSizeBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseSizeBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return res, fmt.Errorf("%w: decode tool event: %v", contractx.ErrStorageFault, err)
		}

		switch evt.Event {
		case EventStart:
			sawStart = true
		case EventResult:
			sawOutcome = true
			var out any
			if len(evt.Output) > 0 {
				if err := json.Unmarshal(evt.Output, &out); err != nil {
					return res, fmt.Errorf("%w: decode tool output: %v", contractx.ErrStorageFault, err)
				}
			}
			res.Result = out
		case EventError:
			sawOutcome = true
			if evt.Error == nil {
				return res, fmt.Errorf("%w: error event without payload", contractx.ErrStorageFault)
			}
			if evt.Error.Code == CodeStorageFault {
				return res, fmt.Errorf("%w: %s", contractx.ErrStorageFault, evt.Error.Message)
			}
			res.Error = evt.Error
		case EventEnd:
			sawEnd = true
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("%w: read tool events: %v", contractx.ErrStorageFault, err)
	}
	if !sawStart || !sawOutcome || !sawEnd {
		return res, fmt.Errorf("%w: truncated event stream for tool=%s", contractx.ErrStorageFault, name)
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", ContentTypeNDJSON+", application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request %s: %v", contractx.ErrStorageFault, path, err)
	}
	return resp, nil
}
