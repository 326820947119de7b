// Package notify sends best-effort messages about user milestones: emails to
// the user and alerts to the operators.
package notify

import (
	"context"
	"errors"

	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type Notifier interface {
	Welcome(ctx context.Context, p *models.Profile) error
	DayCompleted(ctx context.Context, p *models.Profile, day int) error
	Upgraded(ctx context.Context, p *models.Profile) error
}

// Multi fans every event out to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Welcome(ctx context.Context, p *models.Profile) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Welcome(ctx, p))
	}
	return errors.Join(errs...)
}

func (m Multi) DayCompleted(ctx context.Context, p *models.Profile, day int) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.DayCompleted(ctx, p, day))
	}
	return errors.Join(errs...)
}

func (m Multi) Upgraded(ctx context.Context, p *models.Profile) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Upgraded(ctx, p))
	}
	return errors.Join(errs...)
}

// Log only records events. Used when no delivery channel is configured.
type Log struct {
	log *logger.Logger
}

func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (l *Log) Welcome(_ context.Context, p *models.Profile) error {
	l.log.Infow("welcome notification", "user_id", p.ID)
	return nil
}

func (l *Log) DayCompleted(_ context.Context, p *models.Profile, day int) error {
	l.log.Infow("day completed notification", "user_id", p.ID, "day", day)
	return nil
}

func (l *Log) Upgraded(_ context.Context, p *models.Profile) error {
	l.log.Infow("upgrade notification", "user_id", p.ID)
	return nil
}
