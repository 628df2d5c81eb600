package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cadence"
	"github.com/xraph/cadence/id"
	"github.com/xraph/cadence/store"
	"github.com/xraph/cadence/store/memory"
	"github.com/xraph/cadence/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	c := storetest.NewCustomer(id.NewPlanID(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateCustomer(ctx, c))
	c.Name = "mutated after create"

	got, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", got.Name)

	got.Name = "mutated after get"
	again, err := s.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", again.Name)
}

func TestPingAfterClose(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), cadence.ErrStoreClosed)
}
