package service

import (
	"context"
	"errors"
	"time"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

// CreditService enforces the monthly generation quota.
type CreditService interface {
	// Evaluate applies the monthly reset rule, then reports whether the user
	// may start a new program.
	Evaluate(ctx context.Context, userID string) (*domain.CreditStatus, error)
	// Charge consumes one credit with an atomic increment-with-ceiling. It
	// returns *QuotaExceededError when a concurrent charge took the last credit.
	Charge(ctx context.Context, userID string) error
}

type creditService struct {
	userRepo repository.UserRepository
	cfg      config.CreditsConfig
	now      func() time.Time
}

// NewCreditService creates the credit gate. now may be nil for time.Now.
func NewCreditService(userRepo repository.UserRepository, cfg config.CreditsConfig, now func() time.Time) CreditService {
	if now == nil {
		now = time.Now
	}
	return &creditService{userRepo: userRepo, cfg: cfg, now: now}
}

// monthStart returns the first instant of t's calendar month in UTC.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// limitFor returns the ceiling for a tier; 0 means unbounded.
func (s *creditService) limitFor(u *domain.User) int {
	if u.IsPremium() {
		return s.cfg.PremiumLimit
	}
	return s.cfg.FreeLimit
}

func (s *creditService) Evaluate(ctx context.Context, userID string) (*domain.CreditStatus, error) {
	now := s.now().UTC()

	// 1. Make sure there is a record to meter against.
	if err := s.userRepo.EnsureUser(ctx, userID, now); err != nil {
		return nil, err
	}
	// 2. Reset if the stored month is behind, before looking at the counter.
	if _, err := s.userRepo.ResetCreditsBefore(ctx, userID, monthStart(now), now); err != nil {
		return nil, err
	}
	// 3. Evaluate.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := s.limitFor(user)
	status := &domain.CreditStatus{
		Used:      user.GenerationsThisMonth,
		Limit:     limit,
		Unlimited: limit <= 0,
		Tier:      user.Tier,
		ResetAt:   user.ResetAt,
	}
	status.Allowed = status.Unlimited || user.GenerationsThisMonth < limit
	return status, nil
}

func (s *creditService) Charge(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	limit := s.limitFor(user)

	_, err = s.userRepo.IncrementGenerations(ctx, userID, limit)
	if errors.Is(err, repository.ErrQuotaCeiling) {
		return &QuotaExceededError{Used: user.GenerationsThisMonth, Limit: limit}
	}
	return err
}
