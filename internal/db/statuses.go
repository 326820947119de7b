package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"

	"growth-engine/internal/models"
)

func (db *PostgresDB) ListStatuses(ctx context.Context, userID, programID string, day int) ([]models.UserTaskStatus, error) {
	query := `
        SELECT id, user_id, task_id, day, program_id, status, completed_at, created_at, updated_at
        FROM user_tasks
        WHERE user_id = $1 AND program_id = $2 AND day = $3
        ORDER BY id
    `

	rows, err := db.pool.Query(ctx, query, userID, programID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list task statuses: %w", err)
	}
	defer rows.Close()

	var out []models.UserTaskStatus
	for rows.Next() {
		var s models.UserTaskStatus
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.TaskID, &s.Day, &s.ProgramID,
			&s.Status, &s.CompletedAt, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertStatus holds a share lock on the user row so it cannot interleave
// with AdvanceDay.
func (db *PostgresDB) UpsertStatus(ctx context.Context, s *models.UserTaskStatus) error {
	query := `
        INSERT INTO user_tasks (user_id, program_id, day, task_id, status, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, program_id, day, task_id) DO UPDATE
        SET status = EXCLUDED.status, completed_at = EXCLUDED.completed_at, updated_at = NOW()
        RETURNING id, created_at, updated_at
    `

	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR SHARE`, s.UserID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, query,
			s.UserID, s.ProgramID, s.Day, s.TaskID, s.Status, s.CompletedAt,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert task status: %w", err)
	}
	return nil
}
