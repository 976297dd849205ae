package cache

import (
	"context"
	"testing"

	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachable points at a port nothing listens on
var unreachable = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

func TestFactory_Disabled(t *testing.T) {
	f := NewFactory(config.RedisConfig{Enabled: false})
	require.NoError(t, f.Connect(context.Background()))
	defer f.Close()

	assert.Nil(t, f.Client())
	store := f.IdempotencyStore()
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)

	counter := &fakeCounter{}
	assert.Same(t, counter, f.VisitorCounter(counter))
}

func TestFactory_FallbackWhenUnreachable(t *testing.T) {
	f := NewFactory(unreachable)
	require.NoError(t, f.Connect(context.Background()))

	assert.Nil(t, f.Client())
	store := f.IdempotencyStore()
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestFactory_RequiredRedis(t *testing.T) {
	f := NewFactory(unreachable, WithInMemoryFallback(false))

	err := f.Connect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis required")
	assert.NoError(t, f.Close())
}
