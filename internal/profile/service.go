// Package profile owns the user profile: creation on first sign-in,
// onboarding answers, plan upgrades and self-reported KPIs.
package profile

import (
	"context"
	"errors"
	"strings"

	"growth-engine/internal/apperr"
	"growth-engine/internal/clock"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type Store interface {
	// CreateProfileIfAbsent inserts p unless a profile with the same id
	// exists, and returns the stored profile either way.
	CreateProfileIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// SaveOnboarding stores o. program and day are applied only when the
	// profile had no onboarding yet, so a repeated onboarding keeps the
	// user's progress.
	SaveOnboarding(ctx context.Context, userID string, o *models.Onboarding, program string, day int) (*models.Profile, error)
	SetPlan(ctx context.Context, userID string, plan models.Plan) (*models.Profile, error)
	InsertKPIEntry(ctx context.Context, e *models.KPIEntry) error
}

type Notifier interface {
	Welcome(ctx context.Context, p *models.Profile) error
	Upgraded(ctx context.Context, p *models.Profile) error
}

type Service struct {
	store    Store
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
}

func NewService(store Store, notifier Notifier, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{store: store, notifier: notifier, clock: clk, log: log.Named("profile")}
}

// Ensure returns the user's profile, creating a FREE one on the default
// program if this is the user's first request.
func (s *Service) Ensure(ctx context.Context, userID, email string) (*models.Profile, error) {
	p, err := s.store.CreateProfileIfAbsent(ctx, &models.Profile{
		ID:             userID,
		Email:          strings.TrimSpace(email),
		Plan:           models.PlanFree,
		CurrentProgram: models.DefaultProgram,
		CurrentDay:     1,
	})
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	return p, nil
}

// Onboard stores the onboarding answers. A first onboarding starts the user
// on day 1 of the default program; later ones only replace the answers.
func (s *Service) Onboard(ctx context.Context, userID string, o models.Onboarding) (*models.Profile, error) {
	o.Normalize()
	if len(o.Platform) == 0 {
		return nil, apperr.Validation("platform", "select at least one platform")
	}
	if o.Level == "" {
		return nil, apperr.Validation("level", "level is required")
	}

	p, err := s.store.SaveOnboarding(ctx, userID, &o, models.DefaultProgram, 1)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.Validation("profile", "profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to save onboarding", err)
	}

	s.log.Infow("user onboarded", "user_id", userID, "platforms", o.Platform, "level", o.Level)
	if err := s.notifier.Welcome(ctx, p); err != nil {
		s.log.Warnw("welcome notification failed", "user_id", userID, "error", err)
	}
	return p, nil
}

// Upgrade puts the user on the PRO plan. Upgrading a PRO user is a no-op.
func (s *Service) Upgrade(ctx context.Context, userID string) (*models.Profile, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.IsPro() {
		return current, nil
	}

	p, err := s.store.SetPlan(ctx, userID, models.PlanPro)
	if err != nil {
		return nil, apperr.Internal("failed to upgrade plan", err)
	}

	s.log.Infow("user upgraded", "user_id", userID)
	if err := s.notifier.Upgraded(ctx, p); err != nil {
		s.log.Warnw("upgrade notification failed", "user_id", userID, "error", err)
	}
	return p, nil
}

// RecordKPI stores the user's numbers against their current program day.
func (s *Service) RecordKPI(ctx context.Context, userID string, m models.KPIMetrics) (*models.KPIEntry, error) {
	for field, v := range map[string]*int{
		"conversationsCount": m.ConversationsCount,
		"dmSent":             m.DMSent,
		"interestedContacts": m.InterestedContacts,
		"salesCount":         m.SalesCount,
	} {
		if v != nil && *v < 0 {
			return nil, apperr.Validation(field, "must not be negative")
		}
	}

	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.Validation("profile", "profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}

	m.Notes = strings.TrimSpace(m.Notes)
	entry := &models.KPIEntry{
		UserID:    userID,
		Day:       p.CurrentDay,
		ProgramID: p.CurrentProgram,
		Data:      m,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.InsertKPIEntry(ctx, entry); err != nil {
		return nil, apperr.Internal("failed to save KPI entry", err)
	}
	return entry, nil
}
