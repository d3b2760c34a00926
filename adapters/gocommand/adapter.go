package gocommand

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract checks Type() and, when present, Validate().
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) register(handler any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors every registered handler into a go-job queue
// registry, so the same messages can run from a queue worker.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

// Bus registers interaction commands and queries on a go-command registry
// and the global dispatcher, and tracks the subscriptions so they can be
// released together.
type Bus struct {
	adapter *RegistryAdapter
	opts    []runner.Option

	mu            sync.Mutex
	subscriptions []commanddispatcher.Subscription
	initialized   bool
}

func NewBus(adapter *RegistryAdapter, runnerOpts ...runner.Option) *Bus {
	if adapter == nil {
		adapter = NewRegistryAdapter(nil)
	}
	return &Bus{adapter: adapter, opts: runnerOpts}
}

func (b *Bus) Adapter() *RegistryAdapter {
	if b == nil {
		return nil
	}
	return b.adapter
}

func (b *Bus) track(subscription commanddispatcher.Subscription) {
	if subscription == nil {
		return
	}
	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, subscription)
	b.mu.Unlock()
}

// Initialize runs the registry resolvers once.
func (b *Bus) Initialize() error {
	if b == nil {
		return fmt.Errorf("gocommand: bus is nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return nil
	}
	if err := b.adapter.Initialize(); err != nil {
		return err
	}
	b.initialized = true
	return nil
}

// Close unsubscribes every handler registered through the bus.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	subscriptions := b.subscriptions
	b.subscriptions = nil
	b.mu.Unlock()
	for _, subscription := range subscriptions {
		subscription.Unsubscribe()
	}
}

// Register subscribes cmd on the dispatcher and adds it to the registry.
func Register[T any](bus *Bus, cmd command.Commander[T]) error {
	if bus == nil {
		return fmt.Errorf("gocommand: bus is nil")
	}
	if cmd == nil {
		return fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, bus.opts...)
	if err := bus.adapter.register(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	bus.track(subscription)
	return nil
}

// RegisterQuery subscribes qry on the dispatcher and adds it to the registry.
func RegisterQuery[T any, R any](bus *Bus, qry command.Querier[T, R]) error {
	if bus == nil {
		return fmt.Errorf("gocommand: bus is nil")
	}
	if qry == nil {
		return fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, bus.opts...)
	if err := bus.adapter.register(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	bus.track(subscription)
	return nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}
