package container

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id int
}

func TestResolve_NotRegistered(t *testing.T) {
	c := New()

	instance, err := c.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Contains(t, err.Error(), "missing")
	assert.Nil(t, instance)
}

func TestResolve_SingletonReturnsSameInstance(t *testing.T) {
	c := New()
	calls := 0
	c.RegisterFactory("widget", Singleton, func(context.Context, Resolver) (any, error) {
		calls++
		return &widget{id: calls}, nil
	})

	first, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolve_TransientReturnsDistinctInstances(t *testing.T) {
	c := New()
	c.RegisterFactory("widget", Transient, func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	first, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestResolve_EmptyLifetimeDefaultsToTransient(t *testing.T) {
	c := New()
	c.RegisterFactory("widget", "", func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	first, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	second, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestResolve_ScopedStableWithinScope(t *testing.T) {
	c := New()
	c.RegisterFactory("widget", Scoped, func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	ctx := WithScope(context.Background())

	first, err := c.Resolve(ctx, "widget")
	require.NoError(t, err)
	second, err := c.Resolve(ctx, "widget")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestResolve_ScopedWithoutScopeFails(t *testing.T) {
	c := New()
	c.RegisterFactory("widget", Scoped, func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	_, err := c.Resolve(context.Background(), "widget")
	assert.ErrorIs(t, err, ErrNoScope)
}

func TestResolve_ConcurrentScopesAreIsolated(t *testing.T) {
	c := New()
	c.RegisterFactory("widget", Scoped, func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	const requests = 16
	instances := make([]any, requests)

	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithScope(context.Background())

			first, err := c.Resolve(ctx, "widget")
			assert.NoError(t, err)
			second, err := c.Resolve(ctx, "widget")
			assert.NoError(t, err)
			assert.Same(t, first, second)

			instances[i] = first
		}()
	}
	wg.Wait()

	seen := make(map[any]bool, requests)
	for _, instance := range instances {
		assert.False(t, seen[instance], "scoped instance leaked across scopes")
		seen[instance] = true
	}
}

func TestResolve_ConstructorReceivesDepsInOrder(t *testing.T) {
	c := New()
	c.RegisterValue("left", "L")
	c.RegisterValue("right", "R")
	c.RegisterConstructor("pair", Transient, []string{"left", "right"}, func(deps []any) (any, error) {
		return deps[0].(string) + deps[1].(string), nil
	})

	pair, err := c.Resolve(context.Background(), "pair")
	require.NoError(t, err)
	assert.Equal(t, "LR", pair)
}

func TestResolve_FactoryPullsDependencies(t *testing.T) {
	c := New()
	c.RegisterValue("dep", 41)
	c.RegisterFactory("widget", Transient, func(ctx context.Context, r Resolver) (any, error) {
		dep, err := Resolve[int](ctx, r, "dep")
		if err != nil {
			return nil, err
		}
		return dep + 1, nil
	})

	value, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestRegister_DuplicateNameOverwrites(t *testing.T) {
	c := New()
	c.RegisterValue("widget", "original")
	c.RegisterValue("widget", "replacement")

	value, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "replacement", value)
}

func TestResolve_CircularDependencyFails(t *testing.T) {
	c := New()
	c.RegisterConstructor("a", Transient, []string{"b"}, func(deps []any) (any, error) {
		return deps[0], nil
	})
	c.RegisterConstructor("b", Transient, []string{"a"}, func(deps []any) (any, error) {
		return deps[0], nil
	})

	_, err := c.Resolve(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestResolve_CircularDependencyThroughFactoryFails(t *testing.T) {
	c := New()
	c.RegisterFactory("self", Transient, func(ctx context.Context, r Resolver) (any, error) {
		return r.Resolve(ctx, "self")
	})

	_, err := c.Resolve(context.Background(), "self")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestResolveTyped_TypeMismatch(t *testing.T) {
	c := New()
	c.RegisterValue("widget", "a string")

	_, err := Resolve[int](context.Background(), c, "widget")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget")
}

func TestResolve_ObserverSeesLifetime(t *testing.T) {
	var gotName string
	var gotLifetime Lifetime
	c := New(WithObserver(func(name string, lifetime Lifetime) {
		gotName = name
		gotLifetime = lifetime
	}))
	c.RegisterFactory("widget", Singleton, func(context.Context, Resolver) (any, error) {
		return &widget{}, nil
	})

	_, err := c.Resolve(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, "widget", gotName)
	assert.Equal(t, Singleton, gotLifetime)
}
