package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// NewMCPServer registers every tool of the registry on an MCP server. Tool
// errors become IsError results; storage faults fail the request itself.
func (s *Server) NewMCPServer(ctx context.Context) (*sdkmcp.Server, error) {
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    s.name,
		Version: s.version,
	}, nil)

	tools, err := s.tools.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	for _, desc := range tools {
		input := desc.InputSchema
		if input == nil {
			input = &jsonschema.Schema{Type: "object"}
		}
		srv.AddTool(&sdkmcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: input,
		}, s.mcpToolHandler(desc.Name))
	}
	return srv, nil
}

func (s *Server) mcpToolHandler(name string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("bad_arguments: decode arguments: %v", err)), nil
			}
		}

		res, err := s.tools.CallTool(ctx, name, args)
		if err != nil {
			return nil, err
		}
		if res.Error != nil {
			return errorResult(res.Error.Error()), nil
		}

		out, err := json.Marshal(res.Result)
		if err != nil {
			return nil, fmt.Errorf("encode result of tool=%s: %w", name, err)
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(out)}},
		}, nil
	}
}

func errorResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		IsError: true,
	}
}

func (s *Server) mcpHandler() http.Handler {
	srv, err := s.NewMCPServer(context.Background())
	if err != nil {
		log.Error().Err(err).Str("component", "mcp").Msg("mcp endpoint disabled")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "mcp endpoint unavailable")
		})
	}
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return srv
	}, nil)
}
