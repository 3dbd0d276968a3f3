package specialist

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	routerx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/router"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Desk/agent/llm"
	promptx "github.com/tanpawarit/Chative-Support-Desk/agent/prompt"
)

type registryImpl struct {
	router  contractx.Router
	data    contractx.Agent
	support contractx.Agent
}

func (r *registryImpl) Router() contractx.Router {
	return r.router
}

func (r *registryImpl) Data() contractx.Agent {
	return r.data
}

func (r *registryImpl) Support() contractx.Agent {
	return r.support
}

type RegistryConfig struct {
	Mode routerx.Mode

	// LLM is only read when Mode is llm.
	LLM llmx.Config
}

// NewRegistry wires the router and both agents onto one tool gateway. In llm
// mode the keyword classifier stays behind the model as a fallback.
func NewRegistry(ctx context.Context, cfg RegistryConfig, tools contractx.ToolGateway) (contractx.Registry, error) {
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}

	var classifier contractx.Classifier = routerx.NewKeyword()
	if cfg.Mode == routerx.ModeLLM {
		if err := cfg.LLM.Validate(); err != nil {
			return nil, err
		}
		modelCfg := cfg.LLM.OpenRouterFor(contractx.AgentTypeRouter)
		chatModel, err := modelCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrModelInvoke, err)
		}
		llmClassifier, err := routerx.NewLLM(ctx, chatModel, promptx.LoadPromptSet().Router)
		if err != nil {
			return nil, err
		}
		classifier = routerx.Fallback{Primary: llmClassifier, Secondary: classifier}
		log.Info().Str("component", "registry").Str("model", modelCfg.Model).Msg("llm router enabled")
	}

	return NewStaticRegistry(classifier, tools)
}

// NewStaticRegistry builds a registry around an existing classifier.
func NewStaticRegistry(classifier contractx.Classifier, tools contractx.ToolGateway) (contractx.Registry, error) {
	router, err := routerx.New(classifier)
	if err != nil {
		return nil, err
	}
	data, err := NewDataAgent(tools)
	if err != nil {
		return nil, err
	}
	support, err := NewSupportAgent(tools)
	if err != nil {
		return nil, err
	}
	return &registryImpl{
		router:  router,
		data:    data,
		support: support,
	}, nil
}
