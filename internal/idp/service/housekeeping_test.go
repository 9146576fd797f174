package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/internal/idp/metrics"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)
	ctx := context.Background()
	now := time.Now()

	_, err := e.Store.RefreshTokens().UpsertRefreshToken(ctx, domain.RefreshToken{
		ApplicationID: e.Fixture.App.ID,
		UserID:        e.Fixture.User.ID,
		TenantID:      e.Fixture.Tenant.ID,
		TokenHash:     "expired",
		StartInstant:  now.Add(-2 * time.Hour),
		ExpiresAt:     now.Add(-time.Hour),
	})
	require.NoError(t, err)

	e.Authorize.Now = fixedClock(now.Add(-time.Hour))
	code := e.login(t, LoginRequest{})

	hk := NewHousekeepingService(e.Store, slogx.Discard(), metrics.New(), 0)
	require.Equal(t, DefaultHousekeepingInterval, hk.Interval)

	res := hk.Cleanup(ctx)
	require.Equal(t, int64(1), res.RefreshTokens)
	require.Equal(t, int64(1), res.Codes)

	_, err = e.exchangeCode(code, "")
	require.ErrorIs(t, err, ErrInvalidGrant)

	reg, err := e.Store.Registrations().GetRegistration(ctx, e.Fixture.User.ID, e.Fixture.App.ID)
	require.NoError(t, err)
	require.NotEmpty(t, reg.PasswordHash, "clearing a code keeps the registration")

	res = hk.Cleanup(ctx)
	require.Zero(t, res.RefreshTokens)
	require.Zero(t, res.Codes)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t)

	hk := NewHousekeepingService(e.Store, slogx.Discard(), nil, time.Hour)
	hk.Start()
	hk.Stop()
}
