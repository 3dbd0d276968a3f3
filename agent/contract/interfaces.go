package contract

import "context"

type Router interface {
	Route(ctx context.Context, req RouteRequest) (RoutingPlan, error)
}

// Classifier turns one message into unordered steps. The router owns ordering
// and the unrouted fallback.
type Classifier interface {
	Classify(ctx context.Context, req RouteRequest) ([]Step, error)
}

type Agent interface {
	Handle(ctx context.Context, task SubTask) (AgentResponse, error)
}

type Registry interface {
	Router() Router
	Data() Agent
	Support() Agent
}

type ToolGateway interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
}
