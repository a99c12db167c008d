package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veriledger/internal/epoch"
	"veriledger/internal/errs"
)

const admin = Principal("admin")

func newController() (*Controller, *epoch.Clock) {
	clock := epoch.NewClock()
	return NewController(admin, clock, nil), clock
}

func TestController_AdminAlwaysMutates(t *testing.T) {
	c, _ := newController()

	assert.True(t, c.CanMutate(admin, 1, "someone-else"))
	assert.True(t, c.IsAdmin(admin))
	assert.False(t, c.IsAdmin("imposter"))
}

func TestController_OwnerMutatesOwnInventory(t *testing.T) {
	c, _ := newController()

	assert.True(t, c.CanMutate("alice", 1, "alice"))
	assert.False(t, c.CanMutate("bob", 1, "alice"))
}

func TestController_ReporterGrant(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()

	require.NoError(t, c.GrantReporter(ctx, admin, "reporter-1", []uint64{3, 7}))

	assert.True(t, c.CanMutate("reporter-1", 3, "alice"))
	assert.True(t, c.CanMutate("reporter-1", 7, "alice"))
	assert.False(t, c.CanMutate("reporter-1", 8, "alice"), "grant does not cover inventory 8")
}

func TestController_GrantReporter_AdminOnly(t *testing.T) {
	c, _ := newController()

	err := c.GrantReporter(context.Background(), "alice", "reporter-1", []uint64{1})
	assert.True(t, errs.IsUnauthorized(err))
}

func TestController_GrantReporter_CapacityBound(t *testing.T) {
	c, _ := newController()

	ids := make([]uint64, MaxReporterInventories+1)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}

	err := c.GrantReporter(context.Background(), admin, "reporter-1", ids)
	assert.True(t, errs.IsInvalidData(err), "oversized permission set must be rejected, not truncated")
}

func TestController_GrantReplacesPermissions(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()

	require.NoError(t, c.GrantReporter(ctx, admin, "reporter-1", []uint64{1, 2}))
	require.NoError(t, c.GrantReporter(ctx, admin, "reporter-1", []uint64{9}))

	assert.False(t, c.CanMutate("reporter-1", 1, "alice"))
	assert.True(t, c.CanMutate("reporter-1", 9, "alice"))
}

func TestController_Revoke_RetainsRecord(t *testing.T) {
	c, clock := newController()
	ctx := context.Background()

	require.NoError(t, c.GrantReporter(ctx, admin, "reporter-1", []uint64{3}))
	clock.Advance(42)
	require.NoError(t, c.RevokeReporter(ctx, admin, "reporter-1"))

	assert.False(t, c.CanMutate("reporter-1", 3, "alice"))

	grant, ok := c.Grant("reporter-1")
	require.True(t, ok, "revocation must retain the record")
	assert.False(t, grant.Authorized)
	assert.Empty(t, grant.Inventories, "revocation clears the permission set")
	assert.Equal(t, uint64(42), grant.LastReport, "revocation stamps the current epoch")
}

func TestController_Revoke_Unknown(t *testing.T) {
	c, _ := newController()

	err := c.RevokeReporter(context.Background(), admin, "ghost")
	assert.True(t, errs.IsNotFound(err))
}

func TestController_Revoke_AdminOnly(t *testing.T) {
	c, _ := newController()
	ctx := context.Background()

	require.NoError(t, c.GrantReporter(ctx, admin, "reporter-1", []uint64{3}))
	err := c.RevokeReporter(ctx, "reporter-1", "reporter-1")
	assert.True(t, errs.IsUnauthorized(err))
}

func TestController_RestoreGrant(t *testing.T) {
	c, _ := newController()

	c.RestoreGrant(ReporterGrant{
		Reporter:    "reporter-1",
		Authorized:  true,
		Inventories: map[uint64]struct{}{5: {}},
		LastReport:  10,
	})

	assert.True(t, c.CanMutate("reporter-1", 5, "alice"))
	grant, ok := c.Grant("reporter-1")
	require.True(t, ok)
	assert.Equal(t, uint64(10), grant.LastReport)
}
