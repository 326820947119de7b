// Package tasks builds a user's daily task list and moves the user through
// the days of a program.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"growth-engine/internal/apperr"
	"growth-engine/internal/clock"
	"growth-engine/internal/matcher"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type CatalogFetcher interface {
	Fetch(ctx context.Context, tab string) ([]models.Task, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// AdvanceDay moves the user from fromDay to fromDay+1. It reports false
	// when the stored day no longer equals fromDay or one of taskIDs is not
	// settled on that day. The check and the write are atomic with respect to
	// UpsertStatus.
	AdvanceDay(ctx context.Context, userID string, fromDay int, taskIDs []string) (bool, error)
	// MoveProgram puts the user on day 1 of toProgram. It reports false when
	// the stored program or day no longer match the observed ones.
	MoveProgram(ctx context.Context, userID, fromProgram string, fromDay int, toProgram string) (bool, error)
}

type StatusStore interface {
	ListStatuses(ctx context.Context, userID, programID string, day int) ([]models.UserTaskStatus, error)
	// UpsertStatus writes the row keyed on (user, program, day, task).
	UpsertStatus(ctx context.Context, s *models.UserTaskStatus) error
}

type Notifier interface {
	DayCompleted(ctx context.Context, p *models.Profile, day int) error
}

type Service struct {
	catalog  CatalogFetcher
	profiles ProfileStore
	statuses StatusStore
	notifier Notifier
	clock    clock.Clock
	log      *logger.Logger
}

func NewService(catalog CatalogFetcher, profiles ProfileStore, statuses StatusStore, notifier Notifier, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		catalog:  catalog,
		profiles: profiles,
		statuses: statuses,
		notifier: notifier,
		clock:    clk,
		log:      log.Named("tasks"),
	}
}

// DayView is the response for a user's current day.
type DayView struct {
	Day             int                     `json:"day"`
	Program         string                  `json:"program"`
	Tasks           []models.TaskWithStatus `json:"tasks"`
	IsComplete      bool                    `json:"isComplete"`
	ProgramComplete bool                    `json:"programComplete"`
}

type Advance struct {
	NewDay     int    `json:"newDay"`
	NewProgram string `json:"newProgram"`
}

type Switch struct {
	Program string `json:"program"`
	Day     int    `json:"day"`
}

// Today returns the matched, status-merged tasks for the user's current day.
func (s *Service) Today(ctx context.Context, userID string) (*DayView, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.dayView(ctx, p)
}

func (s *Service) dayView(ctx context.Context, p *models.Profile) (*DayView, error) {
	catalog, err := s.catalog.Fetch(ctx, p.CurrentProgram)
	if err != nil {
		return nil, apperr.Internal("failed to load task catalog", err)
	}

	matched := matcher.Match(catalog, p.CurrentDay, matcher.FromOnboarding(p.Onboarding))

	statuses, err := s.statuses.ListStatuses(ctx, p.ID, p.CurrentProgram, p.CurrentDay)
	if err != nil {
		return nil, apperr.Internal("failed to load task statuses", err)
	}

	merged := Merge(matched, statuses)
	view := &DayView{
		Day:        p.CurrentDay,
		Program:    p.CurrentProgram,
		Tasks:      merged,
		IsComplete: IsComplete(merged),
	}
	if prog, ok := models.LookupProgram(p.CurrentProgram); ok {
		view.ProgramComplete = prog.Finished(p.CurrentDay)
	}
	return view, nil
}

// SetStatus records the user's status for a task. day 0 means the user's
// current day. Writing the same status twice leaves one row.
func (s *Service) SetStatus(ctx context.Context, userID, taskID string, day int, status string) error {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return apperr.Validation("taskId", "task id is required")
	}
	st, ok := models.ParseTaskStatus(status)
	if !ok {
		return apperr.Validation("status", "status must be one of Pending, Done, Skipped, Deferred")
	}
	if day < 0 {
		return apperr.Validation("day", "day must be positive")
	}

	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return err
	}
	if day == 0 {
		day = p.CurrentDay
	}

	row := &models.UserTaskStatus{
		UserID:    userID,
		TaskID:    taskID,
		Day:       day,
		ProgramID: p.CurrentProgram,
		Status:    st,
	}
	if st == models.StatusDone {
		now := s.clock.Now()
		row.CompletedAt = &now
	}

	if err := s.statuses.UpsertStatus(ctx, row); err != nil {
		return apperr.Internal("failed to save task status", err)
	}
	return nil
}

// CompleteDay advances the user by one day when every task of the current day
// is settled. Concurrent calls advance at most once.
func (s *Service) CompleteDay(ctx context.Context, userID string) (*Advance, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	view, err := s.dayView(ctx, p)
	if err != nil {
		return nil, err
	}
	if !view.IsComplete {
		return nil, apperr.Validation("day", "day not complete")
	}

	ids := make([]string, 0, len(view.Tasks))
	for _, t := range view.Tasks {
		ids = append(ids, t.TaskID)
	}
	advanced, err := s.profiles.AdvanceDay(ctx, userID, p.CurrentDay, ids)
	if err != nil {
		return nil, apperr.Internal("failed to advance day", err)
	}
	if !advanced {
		current, err := s.loadProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if current.CurrentProgram == p.CurrentProgram && current.CurrentDay == p.CurrentDay {
			return nil, apperr.Validation("day", "day not complete")
		}
		return nil, apperr.Validation("day", "day already completed")
	}

	s.log.Infow("day completed", "user_id", userID, "program", p.CurrentProgram, "day", p.CurrentDay)
	if s.notifier != nil {
		if err := s.notifier.DayCompleted(ctx, p, p.CurrentDay); err != nil {
			s.log.Warnw("day completed notification failed", "user_id", userID, "error", err)
		}
	}

	return &Advance{NewDay: p.CurrentDay + 1, NewProgram: p.CurrentProgram}, nil
}

// SwitchProgram moves the user to day 1 of another program. The user's plan
// must allow the program, and the current program must be finished unless the
// user has not left day 1 yet.
func (s *Service) SwitchProgram(ctx context.Context, userID, programID string) (*Switch, error) {
	programID = strings.ToUpper(strings.TrimSpace(programID))
	target, ok := models.LookupProgram(programID)
	if !ok {
		return nil, apperr.Validation("program", fmt.Sprintf("unknown program %q", programID))
	}

	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !target.Allows(p.Plan) {
		return nil, apperr.Forbidden(fmt.Sprintf("program %s requires the %s plan", target.ID, target.Plan))
	}
	if p.CurrentProgram == target.ID {
		return &Switch{Program: p.CurrentProgram, Day: p.CurrentDay}, nil
	}

	current, known := models.LookupProgram(p.CurrentProgram)
	if p.CurrentDay > 1 && known && !current.Finished(p.CurrentDay) {
		return nil, apperr.Validation("program",
			fmt.Sprintf("finish day %d of %s before switching", current.Days, current.ID))
	}

	moved, err := s.profiles.MoveProgram(ctx, userID, p.CurrentProgram, p.CurrentDay, target.ID)
	if err != nil {
		return nil, apperr.Internal("failed to switch program", err)
	}
	if !moved {
		return nil, apperr.Validation("program", "progress changed, retry")
	}

	s.log.Infow("program switched", "user_id", userID, "from", p.CurrentProgram, "to", target.ID)
	return &Switch{Program: target.ID, Day: 1}, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.Validation("profile", "profile not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	return p, nil
}
