package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
	"github.com/nfcaccess/server/internal/nfcaccess/store/memory"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func TestGateway_LinkDirect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "Ana", "12345678900", "ana@example.com")

	change, err := env.gateway.LinkDirect(ctx, "123.456.789-00", "CARD-1")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, change.User.ID)
	assert.Equal(t, "CARD-1", change.User.Card())
	assert.Equal(t, types.ActionLink, change.Log.Action)
	assert.True(t, change.Log.UserExists)
	require.NotNil(t, change.Log.UserID)
	assert.Equal(t, ana.ID, *change.Log.UserID)
}

func TestGateway_LinkDirect_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "Ana", "12345678900", "ana@example.com")
	bob := env.createUser(t, "Bob", "98765432100", "bob@example.com")

	_, err := env.gateway.LinkDirect(ctx, ana.NationalID, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = env.gateway.LinkDirect(ctx, "", "CARD-1")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = env.gateway.LinkDirect(ctx, "11111111111", "CARD-1")
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	_, err = env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)

	_, err = env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-2")
	require.ErrorIs(t, err, service.ErrAlreadyBound)
	var cb *service.CardBoundError
	require.ErrorAs(t, err, &cb)
	assert.Equal(t, "CARD-1", cb.UUID)

	_, err = env.gateway.LinkDirect(ctx, bob.NationalID, "CARD-1")
	assert.ErrorIs(t, err, service.ErrCardAlreadyBound)

	// Only the successful link was logged.
	assert.Len(t, env.logs(t), 1)
}

func TestGateway_Unlink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "Ana", "12345678900", "ana@example.com")

	_, err := env.gateway.Unlink(ctx, ana.NationalID)
	assert.ErrorIs(t, err, service.ErrNoCardBound)

	_, err = env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	change, err := env.gateway.Unlink(ctx, ana.NationalID)
	require.NoError(t, err)
	assert.False(t, change.User.HasCard())
	assert.Equal(t, types.ActionUnlink, change.Log.Action)
	assert.Equal(t, "CARD-1", change.Log.CardUUID)

	// The freed card can be bound again.
	_, err = env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)

	_, err = env.gateway.Unlink(ctx, "11111111111")
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestGateway_Validate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "Ana", "12345678900", "ana@example.com")
	_, err := env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)

	env.clock.Advance(time.Second)
	granted, err := env.gateway.Validate(ctx, "CARD-1")
	require.NoError(t, err)
	assert.True(t, granted.Authorized)
	require.NotNil(t, granted.User)
	assert.Equal(t, ana.ID, granted.User.ID)
	assert.Equal(t, types.ActionAccessGranted, granted.Log.Action)

	env.clock.Advance(time.Second)
	denied, err := env.gateway.Validate(ctx, "CARD-X")
	require.NoError(t, err)
	assert.False(t, denied.Authorized)
	assert.Nil(t, denied.User)
	assert.Equal(t, types.ActionAccessDenied, denied.Log.Action)
	assert.False(t, denied.Log.UserExists)
	assert.Nil(t, denied.Log.UserID)

	_, err = env.gateway.Validate(ctx, "")
	assert.ErrorIs(t, err, service.ErrValidation)

	logs := env.logs(t)
	require.Len(t, logs, 3)
	assert.Equal(t, []types.Action{types.ActionAccessDenied, types.ActionAccessGranted, types.ActionLink},
		[]types.Action{logs[0].Action, logs[1].Action, logs[2].Action})
}

func TestGateway_RollsBackWhenLogFails(t *testing.T) {
	base := memory.New()
	seed := newTestEnvWith(t, base, service.PairingConfig{})
	ctx := context.Background()
	ana := seed.createUser(t, "Ana", "12345678900", "ana@example.com")

	failing := newTestEnvWith(t, failingAppendStore{Store: base}, service.PairingConfig{})

	_, err := failing.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.ErrorIs(t, err, errAppendFailed)
	got, err := seed.dir.FindByNationalID(ctx, ana.NationalID)
	require.NoError(t, err)
	assert.False(t, got.HasCard())

	_, err = seed.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)

	_, err = failing.gateway.Unlink(ctx, ana.NationalID)
	require.ErrorIs(t, err, errAppendFailed)
	got, err = seed.dir.FindByNationalID(ctx, ana.NationalID)
	require.NoError(t, err)
	assert.Equal(t, "CARD-1", got.Card())

	_, err = failing.gateway.Validate(ctx, "CARD-1")
	require.ErrorIs(t, err, errAppendFailed)

	assert.Len(t, seed.logs(t), 1)
}

func TestGateway_Cards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ana := env.createUser(t, "Ana", "12345678900", "ana@example.com")
	env.createUser(t, "Bob", "98765432100", "bob@example.com")

	overview, err := env.gateway.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, overview.Cards)
	assert.Empty(t, overview.PairingSessions)

	_, err = env.gateway.LinkDirect(ctx, ana.NationalID, "CARD-1")
	require.NoError(t, err)
	_, err = env.pairing.Start(ctx, "98765432100")
	require.NoError(t, err)

	overview, err = env.gateway.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Cards, 1)
	assert.Equal(t, "CARD-1", overview.Cards[0].CardUUID)
	assert.Equal(t, ana.ID, overview.Cards[0].User.ID)
	assert.Len(t, overview.PairingSessions, 1)
}

func TestAuditLog_ListOrdersNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Two entries share a timestamp; the higher id comes first.
	_, err := env.gateway.Validate(ctx, "A")
	require.NoError(t, err)
	_, err = env.gateway.Validate(ctx, "B")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	_, err = env.gateway.Validate(ctx, "C")
	require.NoError(t, err)

	logs := env.logs(t)
	require.Len(t, logs, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{logs[0].CardUUID, logs[1].CardUUID, logs[2].CardUUID})
}
