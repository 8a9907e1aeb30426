// Package container wires core jarvis services using go.uber.org/dig.
package container

import (
	"time"

	"go.uber.org/dig"

	"github.com/jarvis-assistant/jarvis/internal/agent"
	"github.com/jarvis-assistant/jarvis/internal/auth"
	"github.com/jarvis-assistant/jarvis/internal/config"
	"github.com/jarvis-assistant/jarvis/internal/connectors"
	"github.com/jarvis-assistant/jarvis/internal/convo"
	"github.com/jarvis-assistant/jarvis/internal/providers"
	"github.com/jarvis-assistant/jarvis/internal/schema"
	"github.com/jarvis-assistant/jarvis/internal/server"
	"github.com/jarvis-assistant/jarvis/internal/tools"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider   *providers.OpenRouterProvider
	registry   *tools.Registry
	store      *convo.Store
	aggregator *auth.Aggregator
	orch       *agent.Orchestrator
	srv        *server.Server
	briefing   *tools.GetDailyBriefingTool
}

func (c *Container) Provider() *providers.OpenRouterProvider { return c.provider }
func (c *Container) Registry() *tools.Registry               { return c.registry }
func (c *Container) Store() *convo.Store                     { return c.store }
func (c *Container) Aggregator() *auth.Aggregator            { return c.aggregator }
func (c *Container) Orchestrator() *agent.Orchestrator       { return c.orch }
func (c *Container) Server() *server.Server                  { return c.srv }
func (c *Container) Briefing() *tools.GetDailyBriefingTool   { return c.briefing }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		newProvider,
		newCalendarClient,
		newGmailClient,
		newBillsClient,
		newBriefingTool,
		newRegistry,
		newPersona,
		newStore,
		newAggregator,
		newRunner,
		newOrchestrator,
		newServer,
	}
	for _, ctor := range constructors {
		if err := d.Provide(ctor); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider *providers.OpenRouterProvider,
		registry *tools.Registry,
		store *convo.Store,
		aggregator *auth.Aggregator,
		orch *agent.Orchestrator,
		srv *server.Server,
		briefing *tools.GetDailyBriefingTool,
	) {
		result = &Container{
			provider:   provider,
			registry:   registry,
			store:      store,
			aggregator: aggregator,
			orch:       orch,
			srv:        srv,
			briefing:   briefing,
		}
	})
	return result, err
}

func newProvider(cfg *config.Config) *providers.OpenRouterProvider {
	return providers.NewOpenRouterProvider(
		cfg.LLM.APIKey,
		cfg.LLM.APIBase,
		cfg.LLM.Model,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second,
	)
}

func newCalendarClient(cfg *config.Config) *connectors.CalendarClient {
	return connectors.NewCalendarClient(cfg.Providers.GoogleAPIBase, cfg.Providers.GoogleAccessToken)
}

func newGmailClient(cfg *config.Config) *connectors.GmailClient {
	return connectors.NewGmailClient(cfg.Providers.GoogleAPIBase, cfg.Providers.GoogleAccessToken)
}

func newBillsClient(cfg *config.Config) *connectors.BillsClient {
	return connectors.NewBillsClient(cfg.Providers.SupabaseURL, cfg.Providers.SupabaseKey)
}

func newBriefingTool(cal *connectors.CalendarClient, gm *connectors.GmailClient, bills *connectors.BillsClient) *tools.GetDailyBriefingTool {
	return tools.NewGetDailyBriefingTool(cal, gm, bills, 10*time.Minute)
}

func newRegistry(cal *connectors.CalendarClient, gm *connectors.GmailClient, bills *connectors.BillsClient, briefing *tools.GetDailyBriefingTool) (*tools.Registry, error) {
	return tools.NewRegistryBuilder().
		WithTool(tools.NewGetCalendarEventsTool(cal)).
		WithTool(tools.NewCreateCalendarEventTool(cal)).
		WithTool(tools.NewGetRecentEmailsTool(gm)).
		WithTool(tools.NewGetBillsDueSoonTool(bills)).
		WithTool(briefing).
		Build()
}

func newPersona(cfg *config.Config) (agent.Persona, error) {
	if cfg.Persona.File != "" {
		return agent.LoadPersona(cfg.Persona.File)
	}
	p := agent.DefaultPersona()
	if cfg.Persona.Name != "" {
		p.Name = cfg.Persona.Name
	}
	return p, nil
}

func newStore(cfg *config.Config, persona agent.Persona) *convo.Store {
	return convo.NewStore(cfg.Conversation.TTL(), func(key string) schema.Turn {
		return schema.Turn{Role: schema.RoleSystem, Content: persona.SystemPrompt()}
	})
}

func newAggregator(cfg *config.Config, cal *connectors.CalendarClient, gm *connectors.GmailClient, bills *connectors.BillsClient, provider *providers.OpenRouterProvider) *auth.Aggregator {
	return auth.NewAggregator(cal, gm, bills, provider,
		time.Duration(cfg.Providers.AuthStatusTTLSec)*time.Second)
}

func newRunner(cfg *config.Config, provider *providers.OpenRouterProvider, registry *tools.Registry, persona agent.Persona) *agent.Runner {
	return agent.NewRunner(provider, registry, persona, agent.Settings{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		MaxIter:     cfg.Agent.MaxToolIter,
		ToolTimeout: time.Duration(cfg.Agent.ToolTimeoutSec) * time.Second,
	})
}

func newOrchestrator(cfg *config.Config, runner *agent.Runner, store *convo.Store, persona agent.Persona, aggregator *auth.Aggregator) *agent.Orchestrator {
	return agent.NewOrchestrator(runner, store, persona, aggregator, cfg.Security.MaxMessageChars)
}

func newServer(cfg *config.Config, orch *agent.Orchestrator, aggregator *auth.Aggregator, registry *tools.Registry) *server.Server {
	return server.New(cfg, orch, aggregator, registry)
}
