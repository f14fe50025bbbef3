// Package container implements a name-keyed service container with three
// lifetimes: transient (new instance per resolution), scoped (one instance
// per request scope), and singleton (one instance per process).
//
// Registrations are explicitly tagged as either a resolver-style factory or
// a constructor with an ordered list of dependency names. Scoping is never
// ambient: a scope travels on the context passed to Resolve, so two
// concurrent requests cannot observe each other's scoped instances.
package container

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Lifetime controls how long a resolved instance is retained.
type Lifetime string

const (
	// Transient creates a new instance on every resolution. This is the
	// default for registrations that pass an empty Lifetime.
	Transient Lifetime = "transient"
	// Scoped creates one instance per scope carried on the context.
	Scoped Lifetime = "scoped"
	// Singleton creates a single lazily-constructed instance that is
	// reused for the life of the process.
	Singleton Lifetime = "singleton"
)

var (
	// ErrNotRegistered is returned when resolving a name that has no
	// registration.
	ErrNotRegistered = errors.New("service not registered")
	// ErrCircularDependency is returned when a resolution chain revisits
	// a name it is already constructing.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrNoScope is returned when a scoped service is resolved from a
	// context that carries no scope.
	ErrNoScope = errors.New("no scope on context")
)

// Resolver resolves service names to live instances. Factories receive a
// Resolver so they can pull their own dependencies.
type Resolver interface {
	Resolve(ctx context.Context, name string) (any, error)
}

// FactoryFunc builds an instance, pulling dependencies from the resolver.
type FactoryFunc func(ctx context.Context, r Resolver) (any, error)

// ConstructorFunc builds an instance from pre-resolved dependencies, passed
// in the order their names were declared at registration.
type ConstructorFunc func(deps []any) (any, error)

type registration struct {
	name     string
	lifetime Lifetime
	factory  FactoryFunc
	ctor     ConstructorFunc
	deps     []string
}

// Container is a thread-safe registry of service registrations plus the
// singleton instance cache. The registry is read-mostly after bootstrap.
type Container struct {
	mu       sync.RWMutex
	registry map[string]*registration

	singletonMu sync.Mutex
	singletons  map[string]any

	observer func(name string, lifetime Lifetime)
}

// Option configures a Container.
type Option func(*Container)

// WithObserver registers a callback invoked on every successful resolution,
// used for metrics.
func WithObserver(fn func(name string, lifetime Lifetime)) Option {
	return func(c *Container) { c.observer = fn }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		registry:   make(map[string]*registration),
		singletons: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterFactory registers a resolver-style factory under name. A duplicate
// name silently overwrites the previous registration (last write wins),
// which is what lets tests swap in doubles under the same name.
func (c *Container) RegisterFactory(name string, lifetime Lifetime, fn FactoryFunc) {
	c.register(&registration{name: name, lifetime: normalize(lifetime), factory: fn})
}

// RegisterConstructor registers a constructor that receives the named
// dependencies, resolved in order, as its arguments.
func (c *Container) RegisterConstructor(name string, lifetime Lifetime, deps []string, fn ConstructorFunc) {
	c.register(&registration{name: name, lifetime: normalize(lifetime), ctor: fn, deps: deps})
}

// RegisterValue registers an already-constructed instance as a singleton.
func (c *Container) RegisterValue(name string, value any) {
	c.RegisterFactory(name, Singleton, func(context.Context, Resolver) (any, error) {
		return value, nil
	})
}

func (c *Container) register(reg *registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry[reg.name] = reg
}

func normalize(lt Lifetime) Lifetime {
	if lt == "" {
		return Transient
	}
	return lt
}

// Resolve returns a live instance for name, honoring the registered
// lifetime. Unknown names fail with ErrNotRegistered.
func (c *Container) Resolve(ctx context.Context, name string) (any, error) {
	return c.resolve(ctx, name, nil)
}

// Resolve is the generic typed companion to Resolver.Resolve.
func Resolve[T any](ctx context.Context, r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Resolve(ctx, name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("service %q is %T, not %T", name, v, zero)
	}
	return t, nil
}

// chainResolver threads the in-progress resolution chain through factory
// callbacks so cycle detection survives manual dependency pulls.
type chainResolver struct {
	c     *Container
	chain []string
}

func (r chainResolver) Resolve(ctx context.Context, name string) (any, error) {
	return r.c.resolve(ctx, name, r.chain)
}

func (c *Container) resolve(ctx context.Context, name string, chain []string) (any, error) {
	if slices.Contains(chain, name) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularDependency, strings.Join(chain, " -> "), name)
	}

	c.mu.RLock()
	reg, ok := c.registry[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	var (
		instance any
		err      error
	)
	switch reg.lifetime {
	case Singleton:
		instance, err = c.resolveSingleton(ctx, reg, chain)
	case Scoped:
		instance, err = c.resolveScoped(ctx, reg, chain)
	default:
		instance, err = c.construct(ctx, reg, chain)
	}
	if err != nil {
		return nil, err
	}

	if c.observer != nil {
		c.observer(name, reg.lifetime)
	}
	return instance, nil
}

func (c *Container) resolveSingleton(ctx context.Context, reg *registration, chain []string) (any, error) {
	c.singletonMu.Lock()
	instance, ok := c.singletons[reg.name]
	c.singletonMu.Unlock()
	if ok {
		return instance, nil
	}

	// Construct outside the lock so dependencies can resolve other
	// singletons. A concurrent first resolution may construct twice; the
	// first stored instance wins and construction is idempotent.
	instance, err := c.construct(ctx, reg, chain)
	if err != nil {
		return nil, err
	}

	c.singletonMu.Lock()
	defer c.singletonMu.Unlock()
	if existing, ok := c.singletons[reg.name]; ok {
		return existing, nil
	}
	c.singletons[reg.name] = instance
	return instance, nil
}

func (c *Container) resolveScoped(ctx context.Context, reg *registration, chain []string) (any, error) {
	scope := scopeFrom(ctx)
	if scope == nil {
		return nil, fmt.Errorf("%w: resolving scoped service %q", ErrNoScope, reg.name)
	}

	scope.mu.Lock()
	instance, ok := scope.instances[reg.name]
	scope.mu.Unlock()
	if ok {
		return instance, nil
	}

	instance, err := c.construct(ctx, reg, chain)
	if err != nil {
		return nil, err
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()
	if existing, ok := scope.instances[reg.name]; ok {
		return existing, nil
	}
	scope.instances[reg.name] = instance
	return instance, nil
}

func (c *Container) construct(ctx context.Context, reg *registration, chain []string) (any, error) {
	chain = append(chain, reg.name)

	if reg.factory != nil {
		instance, err := reg.factory(ctx, chainResolver{c: c, chain: chain})
		if err != nil {
			return nil, fmt.Errorf("factory for %q: %w", reg.name, err)
		}
		return instance, nil
	}

	deps := make([]any, len(reg.deps))
	for i, depName := range reg.deps {
		dep, err := c.resolve(ctx, depName, chain)
		if err != nil {
			return nil, fmt.Errorf("dependency %q of %q: %w", depName, reg.name, err)
		}
		deps[i] = dep
	}

	instance, err := reg.ctor(deps)
	if err != nil {
		return nil, fmt.Errorf("constructor for %q: %w", reg.name, err)
	}
	return instance, nil
}
