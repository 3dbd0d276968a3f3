package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	orchestratorx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/orchestrator"
	routerx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/router"
	specialistx "github.com/tanpawarit/Chative-Support-Desk/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	llmx "github.com/tanpawarit/Chative-Support-Desk/agent/llm"
	storex "github.com/tanpawarit/Chative-Support-Desk/agent/store"
	toolx "github.com/tanpawarit/Chative-Support-Desk/agent/tool"
	tracex "github.com/tanpawarit/Chative-Support-Desk/agent/trace"
	configx "github.com/tanpawarit/Chative-Support-Desk/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Desk/pkg/logger"
	_ "github.com/tanpawarit/Chative-Support-Desk/pkg/logger/autoload"
	serverx "github.com/tanpawarit/Chative-Support-Desk/server"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

var (
	seedFlag = flag.Bool("seed", false, "insert demo customers and tickets when the database is empty")
	demoFlag = flag.Bool("demo", false, "run the demo conversation, print each trace and exit")
)

type AppConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	Seed            bool          `envconfig:"SEED" default:"false"`
	RouterMode      string        `envconfig:"ROUTER_MODE" split_words:"true" default:"keyword"`
	ToolServerURL   string        `envconfig:"TOOL_SERVER_URL" split_words:"true"`
	TraceBackend    string        `envconfig:"TRACE_BACKEND" split_words:"true" default:"memory"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type demoMessage struct {
	customerID int64
	text       string
}

var demoConversation = []demoMessage{
	{customerID: 1, text: "What's the status of ticket 2?"},
	{customerID: 2, text: "Upgrade my plan and show my open tickets"},
	{customerID: 1, text: "Update my email to ada.lovelace@example.com and fetch my ticket history"},
	{customerID: 2, text: "I was charged twice this month, please escalate this billing issue"},
	{customerID: 1, text: "Close ticket 1"},
	{customerID: 0, text: "Show me customer 999"},
	{customerID: 0, text: "List the disabled customers"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("support desk stopped")
	}
}

func run() error {
	appCfg := configx.MustNew[AppConfig]("SUPPORT")
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeCfg := configx.MustNew[storex.Config]("SUPPORT")
	store, err := storex.Open(ctx, *storeCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if *seedFlag || appCfg.Seed || *demoFlag {
		inserted, err := store.Seed(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("customers", inserted).Msg("seed finished")
	}

	localTools, err := toolx.NewServer(store)
	if err != nil {
		return err
	}
	var tools contractx.ToolGateway = localTools
	if url := strings.TrimSpace(appCfg.ToolServerURL); url != "" {
		remote, err := toolx.NewClient(toolx.ClientConfig{URL: url})
		if err != nil {
			return err
		}
		tools = remote
		log.Info().Str("url", url).Msg("agents use remote tool server")
	}

	traces, closeTraces, err := newTraceStore(appCfg.TraceBackend)
	if err != nil {
		return err
	}
	defer closeTraces()

	mode, err := routerx.ParseMode(appCfg.RouterMode)
	if err != nil {
		return err
	}
	registryCfg := specialistx.RegistryConfig{Mode: mode}
	if mode == routerx.ModeLLM {
		registryCfg.LLM = *configx.MustNew[llmx.Config]("OPENROUTER")
	}
	agents, err := specialistx.NewRegistry(ctx, registryCfg, tools)
	if err != nil {
		return err
	}

	orchestrator, err := orchestratorx.New(agents, traces)
	if err != nil {
		return err
	}

	if *demoFlag {
		return runDemo(ctx, orchestrator)
	}

	srv, err := serverx.New(serverx.Deps{
		Tools:   localTools,
		Chat:    orchestrator,
		Health:  store,
		Version: version,
	})
	if err != nil {
		return err
	}
	return serve(ctx, appCfg, srv.Handler())
}

func serve(ctx context.Context, cfg *AppConfig, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newTraceStore(backend string) (tracex.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return tracex.NewMemoryStore(), func() {}, nil
	case "upstash":
		s, err := tracex.NewUpstashStore(*configx.MustNew[tracex.UpstashConfig]("UPSTASH"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "redis":
		s, err := tracex.NewRedisStoreFromConfig(*configx.MustNew[tracex.RedisConfig]("REDIS"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported trace backend %q", backend)
	}
}

func runDemo(ctx context.Context, orchestrator *orchestratorx.Orchestrator) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	sessionID := "demo"
	for _, msg := range demoConversation {
		res, err := orchestrator.Handle(ctx, orchestratorx.ChatRequest{
			SessionID:  sessionID,
			CustomerID: msg.customerID,
			Message:    msg.text,
		})
		if err != nil && res.TraceID == "" {
			return fmt.Errorf("demo message %q: %w", msg.text, err)
		}

		t, err := orchestrator.Trace(ctx, res.TraceID)
		if err != nil {
			return err
		}
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return nil
}
