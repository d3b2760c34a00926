package interactions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/adapters/gologger"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/followup"
	"github.com/goliatone/go-interactions/inbound"
	"github.com/goliatone/go-interactions/ratelimit"
	"github.com/goliatone/go-interactions/rest"
	"github.com/goliatone/go-interactions/security"
	commandsync "github.com/goliatone/go-interactions/sync"
	"github.com/goliatone/go-interactions/transport"
	"github.com/goliatone/go-interactions/webhooks"
	glog "github.com/goliatone/go-logger/glog"
)

type Config = core.Config

// StoreFactory supplies durable stores, such as the sqlstore repository
// factory.
type StoreFactory interface {
	RateLimitStateStore() ratelimit.StateStore
	CommandSyncLedger() core.CommandSyncLedger
}

type Option func(*appBuilder)

type appBuilder struct {
	runtimeConfig   Config
	logger          glog.Logger
	loggerProvider  glog.LoggerProvider
	metrics         core.MetricsRecorder
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver

	commands   *core.CommandRegistry
	components *core.ComponentRegistry
	catalog    *core.Catalog
	fallback   core.CommandHandler
	keyCache   *webhooks.PublicKeyCache

	httpClient     transport.HTTPDoer
	transport      core.TransportAdapter
	transports     *transport.Registry
	rateLimitStore ratelimit.StateStore
	syncLedger     core.CommandSyncLedger
	storeFactory   StoreFactory
	secrets        core.SecretProvider

	jobEnqueuer  core.JobEnqueuer
	jobDequeuer  core.JobDequeuer
	workerConfig followup.WorkerConfig
	workerHook   core.JobWorkerHook
}

func WithLogger(logger glog.Logger) Option {
	return func(b *appBuilder) { b.logger = logger }
}

func WithLoggerProvider(provider glog.LoggerProvider) Option {
	return func(b *appBuilder) { b.loggerProvider = provider }
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *appBuilder) { b.metrics = recorder }
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *appBuilder) { b.configProvider = provider }
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *appBuilder) { b.optionsResolver = resolver }
}

func WithCommandRegistry(registry *core.CommandRegistry) Option {
	return func(b *appBuilder) { b.commands = registry }
}

func WithComponentRegistry(registry *core.ComponentRegistry) Option {
	return func(b *appBuilder) { b.components = registry }
}

// WithCatalog replaces the user-facing error and fallback strings.
func WithCatalog(catalog core.Catalog) Option {
	return func(b *appBuilder) { b.catalog = &catalog }
}

// WithFallback answers modal submissions and unknown interaction types.
func WithFallback(handler core.CommandHandler) Option {
	return func(b *appBuilder) { b.fallback = handler }
}

func WithPublicKeyCache(cache *webhooks.PublicKeyCache) Option {
	return func(b *appBuilder) { b.keyCache = cache }
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *appBuilder) { b.httpClient = client }
}

// WithTransport replaces the outbound adapter, for example with a dry run
// adapter. The adapter is responsible for authentication.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(b *appBuilder) { b.transport = adapter }
}

// WithTransportRegistry resolves rest.transport against registry instead of
// the default rest/dry_run set.
func WithTransportRegistry(registry *transport.Registry) Option {
	return func(b *appBuilder) { b.transports = registry }
}

func WithRateLimitStore(store ratelimit.StateStore) Option {
	return func(b *appBuilder) { b.rateLimitStore = store }
}

func WithSyncLedger(ledger core.CommandSyncLedger) Option {
	return func(b *appBuilder) { b.syncLedger = ledger }
}

// WithStoreFactory fills any store not set explicitly.
func WithStoreFactory(factory StoreFactory) Option {
	return func(b *appBuilder) { b.storeFactory = factory }
}

func WithSecretProvider(provider core.SecretProvider) Option {
	return func(b *appBuilder) { b.secrets = provider }
}

// WithJobQueue routes deferred follow-ups through an external queue, such
// as the go-job adapter. Without it an in-process queue is used.
func WithJobQueue(enqueuer core.JobEnqueuer, dequeuer core.JobDequeuer) Option {
	return func(b *appBuilder) {
		b.jobEnqueuer = enqueuer
		b.jobDequeuer = dequeuer
	}
}

func WithWorkerConfig(config followup.WorkerConfig) Option {
	return func(b *appBuilder) { b.workerConfig = config }
}

func WithWorkerHook(hook core.JobWorkerHook) Option {
	return func(b *appBuilder) { b.workerHook = hook }
}

// App owns the registries, the inbound dispatcher and the outbound REST
// client for one application.
type App struct {
	config        Config
	applicationID string
	logger        glog.Logger
	observer      *core.Observer

	commands   *core.CommandRegistry
	components *core.ComponentRegistry
	verifier   *webhooks.Ed25519Verifier
	dispatcher *inbound.Dispatcher
	handler    *inbound.Handler

	transport core.TransportAdapter
	rest      *rest.Client
	ledger    core.CommandSyncLedger
	syncer    *commandsync.Orchestrator

	queue     *followup.MemoryQueue
	enqueuer  core.JobEnqueuer
	scheduler *followup.Scheduler
	worker    *followup.Worker
}

// New resolves configuration, unseals secrets and wires every component.
// cfg holds runtime overrides layered over the configured values.
func New(cfg Config, opts ...Option) (*App, error) {
	return NewWithContext(context.Background(), cfg, opts...)
}

func NewWithContext(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	builder := appBuilder{runtimeConfig: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(&builder)
		}
	}

	_, logger := gologger.Resolve("", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if builder.metrics == nil {
		builder.metrics = core.NopMetricsRecorder{}
	}

	resolved, err := core.ResolveConfig(ctx, builder.configProvider, builder.optionsResolver, builder.runtimeConfig)
	if err != nil {
		return nil, core.MapError(err)
	}

	if builder.secrets == nil && strings.TrimSpace(resolved.AppKey) != "" {
		provider, err := security.NewAppKeySecretProviderFromString(resolved.AppKey)
		if err != nil {
			return nil, core.MapError(err)
		}
		builder.secrets = provider
	}
	botToken, err := security.UnsealString(ctx, builder.secrets, resolved.BotToken)
	if err != nil {
		return nil, core.MapError(fmt.Errorf("interactions: unseal bot token: %w", err))
	}
	applicationID, err := resolved.ResolveApplicationID(botToken)
	if err != nil {
		return nil, core.MapError(err)
	}

	app := &App{
		config:        resolved,
		applicationID: applicationID,
		logger:        logger,
		observer:      core.NewObserver(resolved.ServiceName, logger, builder.metrics),
		commands:      builder.commands,
		components:    builder.components,
	}
	if app.commands == nil {
		app.commands = core.NewCommandRegistry()
	}
	if app.components == nil {
		app.components = core.NewComponentRegistry()
	}

	app.verifier = webhooks.NewEd25519Verifier(resolved.PublicKey)
	if builder.keyCache != nil {
		app.verifier = app.verifier.WithKeyCache(builder.keyCache)
	}
	if _, err := app.verifier.PublicKey(); err != nil {
		return nil, core.MapError(err)
	}

	app.dispatcher = inbound.NewDispatcher(app.verifier, app.commands, app.components)
	app.dispatcher.Observer = app.observer
	app.dispatcher.Fallback = builder.fallback
	if builder.catalog != nil {
		app.dispatcher.Catalog = *builder.catalog
	}
	app.handler = inbound.NewHandler(app.dispatcher, resolved.Server.MaxBodyBytes)

	if builder.storeFactory != nil {
		if builder.rateLimitStore == nil {
			builder.rateLimitStore = builder.storeFactory.RateLimitStateStore()
		}
		if builder.syncLedger == nil {
			builder.syncLedger = builder.storeFactory.CommandSyncLedger()
		}
	}
	if builder.rateLimitStore == nil {
		builder.rateLimitStore = ratelimit.NewMemoryStateStore()
	}
	if builder.syncLedger == nil {
		builder.syncLedger = commandsync.NewMemoryLedger()
	}
	app.ledger = builder.syncLedger

	app.transport = builder.transport
	if app.transport == nil {
		registry := builder.transports
		if registry == nil {
			registry = transport.NewDefaultRegistry()
		}
		httpClient := builder.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: resolved.REST.Timeout}
		}
		kind := strings.TrimSpace(resolved.REST.Transport)
		if kind == "" {
			kind = core.DefaultTransportKind
		}
		app.transport, err = registry.Build(kind, map[string]any{
			transport.ConfigHTTPClient:           httpClient,
			transport.ConfigSigner:               core.BotTokenSigner{Token: botToken},
			transport.ConfigUserAgent:            resolved.REST.UserAgent,
			transport.ConfigMaxResponseBodyBytes: resolved.REST.MaxResponseBodyBytes,
		})
		if err != nil {
			return nil, core.MapError(err)
		}
	}
	app.rest = rest.NewClient(resolved.REST.BaseURL, app.transport)
	app.rest.RateLimit = ratelimit.NewAdaptivePolicy(builder.rateLimitStore)
	app.rest.Observer = app.observer
	if resolved.REST.Timeout > 0 {
		app.rest.Timeout = resolved.REST.Timeout
	}

	app.syncer = commandsync.NewOrchestrator(app.commands, app.rest, app.ledger, commandsync.WithObserver(app.observer))

	enqueuer, dequeuer := builder.jobEnqueuer, builder.jobDequeuer
	if enqueuer == nil || dequeuer == nil {
		app.queue = followup.NewMemoryQueue(0)
		enqueuer, dequeuer = app.queue, app.queue
	}
	app.enqueuer = enqueuer
	app.scheduler, err = followup.NewScheduler(enqueuer, followup.WithSchedulerObserver(app.observer))
	if err != nil {
		return nil, err
	}
	workerOpts := []followup.WorkerOption{followup.WithWorkerObserver(app.observer)}
	if builder.workerHook != nil {
		workerOpts = append(workerOpts, followup.WithWorkerHook(builder.workerHook))
	}
	app.worker, err = followup.NewWorker(dequeuer, app.rest, builder.workerConfig, workerOpts...)
	if err != nil {
		return nil, err
	}

	app.logger.Info("interactions app ready",
		"application_id", applicationID,
		"path", resolved.Server.Path,
		"transport", app.transport.Kind(),
	)
	return app, nil
}

func (a *App) Config() Config {
	if a == nil {
		return Config{}
	}
	return a.config
}

func (a *App) ApplicationID() string {
	if a == nil {
		return ""
	}
	return a.applicationID
}

func (a *App) Logger() glog.Logger {
	if a == nil {
		return glog.Nop()
	}
	return a.logger
}

func (a *App) Commands() *core.CommandRegistry {
	if a == nil {
		return nil
	}
	return a.commands
}

func (a *App) Components() *core.ComponentRegistry {
	if a == nil {
		return nil
	}
	return a.components
}

func (a *App) Dispatcher() *inbound.Dispatcher {
	if a == nil {
		return nil
	}
	return a.dispatcher
}

func (a *App) REST() *rest.Client {
	if a == nil {
		return nil
	}
	return a.rest
}

func (a *App) Syncer() *commandsync.Orchestrator {
	if a == nil {
		return nil
	}
	return a.syncer
}

func (a *App) Ledger() core.CommandSyncLedger {
	if a == nil {
		return nil
	}
	return a.ledger
}

func (a *App) Followups() *followup.Scheduler {
	if a == nil {
		return nil
	}
	return a.scheduler
}

// FollowupQueue is the queue deferred replies are enqueued on.
func (a *App) FollowupQueue() core.JobEnqueuer {
	if a == nil {
		return nil
	}
	return a.enqueuer
}

func (a *App) Worker() *followup.Worker {
	if a == nil {
		return nil
	}
	return a.worker
}

// Command registers a command handler. A second registration under the same
// key replaces the first.
func (a *App) Command(name string, spec core.CommandSpec, handler core.CommandHandler) error {
	if a == nil {
		return fmt.Errorf("interactions: app is nil")
	}
	return a.commands.Register(name, spec, handler)
}

// Component registers a component handler. Predicates are tried in
// registration order.
func (a *App) Component(predicate core.ComponentPredicate, handler core.ComponentHandler) error {
	if a == nil {
		return fmt.Errorf("interactions: app is nil")
	}
	return a.components.Register(predicate, handler)
}

// Deferred wraps fn as a command handler that acknowledges at once and
// delivers fn's reply as a follow-up.
func (a *App) Deferred(ephemeral bool, fn func(ctx context.Context, interaction core.Interaction) (core.Reply, error)) core.CommandHandler {
	return func(ctx context.Context, interaction core.Interaction) (core.Response, error) {
		if a == nil || a.scheduler == nil {
			return core.Response{}, fmt.Errorf("interactions: follow-up scheduler is not configured")
		}
		return a.scheduler.Defer(ctx, interaction, ephemeral, func(ctx context.Context) (core.Reply, error) {
			return fn(ctx, interaction)
		}), nil
	}
}

func (a *App) Handler() http.Handler {
	if a == nil {
		return nil
	}
	return a.handler
}

func (a *App) Dispatch(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if a == nil {
		return core.InboundResult{StatusCode: http.StatusInternalServerError}, fmt.Errorf("interactions: app is nil")
	}
	return a.dispatcher.Dispatch(ctx, req)
}

// SyncOptions selects the scope of a command sync. GuildID empty means the
// global command set.
type SyncOptions struct {
	GuildID  string
	DryRun   bool
	Force    bool
	Metadata map[string]any
}

// SyncCommands publishes the registered commands with one bulk overwrite,
// unless the ledger shows the same set was already published.
func (a *App) SyncCommands(ctx context.Context, opts SyncOptions) (commandsync.Result, error) {
	if a == nil {
		return commandsync.Result{}, fmt.Errorf("interactions: app is nil")
	}
	return a.syncer.Sync(ctx, commandsync.Request{
		Scope:    a.scope(opts.GuildID),
		DryRun:   opts.DryRun,
		Force:    opts.Force,
		Metadata: opts.Metadata,
	})
}

func (a *App) SyncStatus(ctx context.Context, guildID string) (commandsync.Status, error) {
	if a == nil {
		return commandsync.Status{}, fmt.Errorf("interactions: app is nil")
	}
	return a.syncer.Status(ctx, a.scope(guildID))
}

func (a *App) scope(guildID string) core.SyncScope {
	return core.SyncScope{ApplicationID: a.applicationID, GuildID: strings.TrimSpace(guildID)}
}

// RunWorker delivers queued follow-ups until ctx is cancelled.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil || a.worker == nil {
		return fmt.Errorf("interactions: follow-up worker is not configured")
	}
	return a.worker.Run(ctx)
}

// Server returns an http.Server serving the interactions endpoint on the
// configured address and path. A nil App has no server.
func (a *App) Server() *http.Server {
	if a == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(a.config.Server.Path, a.handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:         a.config.Server.Addr,
		Handler:      mux,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
}

// Shutdown stops the in-process follow-up queue. Queued follow-ups that
// were not delivered are dropped.
func (a *App) Shutdown(ctx context.Context, server *http.Server) error {
	if a == nil {
		return nil
	}
	var err error
	if server != nil {
		timeout := a.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}
	if a.queue != nil {
		a.queue.Close()
	}
	return err
}
