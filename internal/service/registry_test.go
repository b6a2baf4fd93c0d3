package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/campus-connect/internal/domain"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	events.NopEventBus
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subjects...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (RoleRegistry, *clock, *recordingBus) {
	c := &clock{now: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)}
	bus := &recordingBus{}
	return NewRoleRegistry(repository.NewMemoryUserRepository(), bus, WithRegistryClock(c.Now)), c, bus
}

func TestRegistry_EnsureUserCreates(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	u, err := reg.EnsureUser(ctx, "m@x.ac.in", false)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, u.Role)

	a, err := reg.EnsureUser(ctx, "a@x.ac.in", true)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, a.Role)
}

func TestRegistry_SeedingNeverDemotes(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	_, err := reg.EnsureUser(ctx, "u@x.ac.in", true)
	require.NoError(t, err)
	u, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestRegistry_SeedPromotionClearsPendingRequest(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)
	_, err = reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)

	u, err := reg.EnsureUser(ctx, "u@x.ac.in", true)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.False(t, u.RequestedAdmin)
	assert.Nil(t, u.RequestedAt)

	pending, err := reg.ListPendingAdminRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRegistry_GetUserUnknown(t *testing.T) {
	reg, _, _ := newTestRegistry()
	u, err := reg.GetUser(context.Background(), "nobody@x.ac.in")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestRegistry_CreateAdminRequestIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, c, bus := newTestRegistry()
	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)

	first, err := reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.False(t, first.AlreadyRequested)
	assert.Equal(t, c.Now(), first.RequestedAt)

	c.Advance(5 * time.Minute)
	second, err := reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.True(t, second.AlreadyRequested)
	assert.True(t, first.RequestedAt.Equal(second.RequestedAt))

	assert.Equal(t, []string{events.AdminRequested}, bus.published())
}

func TestRegistry_CreateAdminRequestPreconditions(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	_, err := reg.CreateAdminRequest(ctx, "ghost@x.ac.in")
	assert.ErrorIs(t, err, ErrMustVerifyFirst)

	_, err = reg.EnsureUser(ctx, "a@x.ac.in", true)
	require.NoError(t, err)
	_, err = reg.CreateAdminRequest(ctx, "a@x.ac.in")
	assert.ErrorIs(t, err, ErrAlreadyAdmin)
}

func TestRegistry_ApproveRequiresRequest(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := newTestRegistry()

	assert.ErrorIs(t, reg.ApproveAdmin(ctx, "ghost@x.ac.in", "admin@x.ac.in"), ErrTargetNotFound)

	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)
	assert.ErrorIs(t, reg.ApproveAdmin(ctx, "u@x.ac.in", "admin@x.ac.in"), ErrNoPendingRequest)

	u, err := reg.GetUser(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, u.Role)
}

func TestRegistry_ApproveAdmin(t *testing.T) {
	ctx := context.Background()
	reg, _, bus := newTestRegistry()

	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)
	_, err = reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)

	require.NoError(t, reg.ApproveAdmin(ctx, "u@x.ac.in", "admin@x.ac.in"))

	u, err := reg.GetUser(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.False(t, u.RequestedAdmin)
	assert.Nil(t, u.RequestedAt)
	assert.Equal(t, "admin@x.ac.in", u.ApprovedBy)

	_, err = reg.CreateAdminRequest(ctx, "u@x.ac.in")
	assert.ErrorIs(t, err, ErrAlreadyAdmin)
	assert.ErrorIs(t, reg.ApproveAdmin(ctx, "u@x.ac.in", "admin@x.ac.in"), ErrNoPendingRequest)

	assert.Equal(t, []string{events.AdminRequested, events.AdminApproved}, bus.published())
}

func TestRegistry_RejectAdminRequest(t *testing.T) {
	ctx := context.Background()
	reg, c, _ := newTestRegistry()

	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)
	assert.ErrorIs(t, reg.RejectAdminRequest(ctx, "u@x.ac.in", "admin@x.ac.in"), ErrNoPendingRequest)

	first, err := reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)
	require.NoError(t, reg.RejectAdminRequest(ctx, "u@x.ac.in", "admin@x.ac.in"))

	u, err := reg.GetUser(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, u.Role)
	assert.False(t, u.RequestedAdmin)

	// A rejected user may ask again and gets a fresh timestamp.
	c.Advance(time.Hour)
	again, err := reg.CreateAdminRequest(ctx, "u@x.ac.in")
	require.NoError(t, err)
	assert.False(t, again.AlreadyRequested)
	assert.True(t, again.RequestedAt.After(first.RequestedAt))
}

func TestRegistry_ListPendingInsertionOrder(t *testing.T) {
	ctx := context.Background()
	reg, c, _ := newTestRegistry()

	for _, email := range []string{"z@x.ac.in", "a@x.ac.in", "m@x.ac.in"} {
		_, err := reg.EnsureUser(ctx, email, false)
		require.NoError(t, err)
	}
	for _, email := range []string{"m@x.ac.in", "z@x.ac.in", "a@x.ac.in"} {
		c.Advance(time.Minute)
		_, err := reg.CreateAdminRequest(ctx, email)
		require.NoError(t, err)
	}
	require.NoError(t, reg.ApproveAdmin(ctx, "a@x.ac.in", "root@x.ac.in"))

	pending, err := reg.ListPendingAdminRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "z@x.ac.in", pending[0].Email)
	assert.Equal(t, "m@x.ac.in", pending[1].Email)
	assert.True(t, pending[1].RequestedAt.Before(pending[0].RequestedAt))
}

func TestRegistry_ConcurrentAdminRequestsStampOnce(t *testing.T) {
	ctx := context.Background()
	reg, c, bus := newTestRegistry()
	_, err := reg.EnsureUser(ctx, "u@x.ac.in", false)
	require.NoError(t, err)

	const n = 32
	results := make([]domain.AdminRequest, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Advance(time.Millisecond)
			res, err := reg.CreateAdminRequest(ctx, "u@x.ac.in")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	fresh := 0
	for _, r := range results {
		if !r.AlreadyRequested {
			fresh++
		}
		assert.True(t, r.RequestedAt.Equal(results[0].RequestedAt))
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, bus.published(), 1)
}
