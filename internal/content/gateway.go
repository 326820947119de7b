// Package content turns a catalog task's AI template into generated text and
// bills the user for it.
package content

import (
	"context"
	"strings"
	"time"

	"growth-engine/internal/apperr"
	"growth-engine/internal/ledger"
	"growth-engine/internal/models"
	"growth-engine/pkg/logger"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type TaskFinder interface {
	FindTask(ctx context.Context, taskID string) (models.Task, bool, error)
}

type Ledger interface {
	Authorize(ctx context.Context, userID string, task models.Task) (int, error)
	ChargeForGeneration(ctx context.Context, userID string, task models.Task, usage ledger.Usage) (*ledger.Charge, error)
}

type Gateway struct {
	tasks     TaskFinder
	ledger    Ledger
	generator Generator
	timeout   time.Duration
	log       *logger.Logger
}

func NewGateway(tasks TaskFinder, l Ledger, gen Generator, timeout time.Duration, log *logger.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gateway{
		tasks:     tasks,
		ledger:    l,
		generator: gen,
		timeout:   timeout,
		log:       log.Named("content"),
	}
}

type Result struct {
	Output          string `json:"output"`
	CreditsDeducted int    `json:"creditsDeducted"`
	NewBalance      int    `json:"newBalance"`
}

// Generate produces content for a task's AI template. The user is charged
// only after the generator has returned output.
func (g *Gateway) Generate(ctx context.Context, userID, taskID string, vars map[string]string) (*Result, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, apperr.Validation("taskId", "task id is required")
	}

	task, ok, err := g.tasks.FindTask(ctx, taskID)
	if !ok {
		if err != nil {
			return nil, apperr.Internal("failed to load task catalog", err)
		}
		return nil, apperr.NotFound("task not found")
	}
	if strings.TrimSpace(task.AIPromptTemplate) == "" {
		return nil, apperr.NotFound("task has no AI template")
	}

	if _, err := g.ledger.Authorize(ctx, userID, task); err != nil {
		return nil, err
	}

	prompt := Compile(task.AIPromptTemplate, vars)

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	output, err := g.generator.Generate(genCtx, prompt)
	if err != nil {
		g.log.Errorw("generation failed", "user_id", userID, "task_id", taskID, "error", err)
		return nil, apperr.Internal("generation failed", err)
	}
	g.log.Infow("content generated", "user_id", userID, "task_id", taskID,
		"duration", time.Since(start).String())

	charge, err := g.ledger.ChargeForGeneration(ctx, userID, task, ledger.Usage{
		FeatureID: task.AIFeatureID,
		Input:     vars,
		Output:    output,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Output: output, CreditsDeducted: charge.Cost, NewBalance: charge.NewBalance}, nil
}
