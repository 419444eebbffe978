package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository/memory"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testCredits = config.CreditsConfig{FreeLimit: 4, PremiumLimit: 0}

func TestCreditService_NewUserIsAllowed(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	status, err := svc.Evaluate(context.Background(), "new-user")
	require.NoError(t, err)

	assert.True(t, status.Allowed)
	assert.Equal(t, 0, status.Used)
	assert.Equal(t, 4, status.Limit)
	assert.Equal(t, domain.TierFree, status.Tier)
}

func TestCreditService_AtLimitDenied(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	store.PutUser(domain.User{ID: "u1", Tier: domain.TierFree, GenerationsThisMonth: 4, ResetAt: now.AddDate(0, 0, -3)})
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	status, err := svc.Evaluate(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 4, status.Used)
}

func TestCreditService_ResetsInNewMonth(t *testing.T) {
	store := memory.NewStore()
	lastMonth := time.Date(2026, 2, 27, 9, 0, 0, 0, time.UTC)
	store.PutUser(domain.User{ID: "u1", Tier: domain.TierFree, GenerationsThisMonth: 4, ResetAt: lastMonth})

	now := time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC)
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	status, err := svc.Evaluate(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 0, status.Used)
	assert.Equal(t, now, status.ResetAt)
}

func TestCreditService_SameMonthNoReset(t *testing.T) {
	store := memory.NewStore()
	store.PutUser(domain.User{ID: "u1", GenerationsThisMonth: 2, ResetAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	svc := NewCreditService(store.Users(), testCredits, fixedClock(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))

	status, err := svc.Evaluate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Used)
}

func TestCreditService_PremiumUnbounded(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store.PutUser(domain.User{ID: "pro", Tier: domain.TierPremium, GenerationsThisMonth: 40, ResetAt: now})
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	status, err := svc.Evaluate(context.Background(), "pro")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.True(t, status.Unlimited)

	require.NoError(t, svc.Charge(context.Background(), "pro"))
	u, err := store.Users().GetByID(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, 41, u.GenerationsThisMonth)
}

func TestCreditService_ChargeStopsAtCeiling(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store.PutUser(domain.User{ID: "u1", Tier: domain.TierFree, GenerationsThisMonth: 3, ResetAt: now})
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	require.NoError(t, svc.Charge(context.Background(), "u1"))

	err := svc.Charge(context.Background(), "u1")
	var qe *QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 4, qe.Limit)
}

func TestCreditService_ConcurrentChargesNeverOvershoot(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store.PutUser(domain.User{ID: "u1", Tier: domain.TierFree, GenerationsThisMonth: 2, ResetAt: now})
	svc := NewCreditService(store.Users(), testCredits, fixedClock(now))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		charged int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Charge(context.Background(), "u1") == nil {
				mu.Lock()
				charged++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, charged)
	u, err := store.Users().GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, u.GenerationsThisMonth)
}
