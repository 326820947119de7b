package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"growth-engine/internal/models"
)

const profileColumns = `id, email, plan, credits_balance, current_program, current_day, onboarding, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p          models.Profile
		onboarding []byte
	)
	err := row.Scan(
		&p.ID, &p.Email, &p.Plan, &p.CreditsBalance,
		&p.CurrentProgram, &p.CurrentDay, &onboarding,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(onboarding) > 0 {
		var o models.Onboarding
		if err := json.Unmarshal(onboarding, &o); err != nil {
			return nil, fmt.Errorf("failed to decode onboarding: %w", err)
		}
		p.Onboarding = &o
	}
	return &p, nil
}

func (db *PostgresDB) CreateProfileIfAbsent(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query := `
        INSERT INTO users (id, email, plan, credits_balance, current_program, current_day)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
    `

	if _, err := db.pool.Exec(ctx, query,
		p.ID, p.Email, p.Plan, p.CreditsBalance, p.CurrentProgram, p.CurrentDay,
	); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return db.GetProfile(ctx, p.ID)
}

func (db *PostgresDB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`

	p, err := scanProfile(db.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	return p, nil
}

func (db *PostgresDB) SaveOnboarding(ctx context.Context, userID string, o *models.Onboarding, program string, day int) (*models.Profile, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode onboarding: %w", err)
	}

	query := `
        UPDATE users
        SET onboarding = $2,
            current_program = CASE WHEN onboarding IS NULL THEN $3 ELSE current_program END,
            current_day = CASE WHEN onboarding IS NULL THEN $4 ELSE current_day END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + profileColumns

	p, err := scanProfile(db.pool.QueryRow(ctx, query, userID, string(payload), program, day))
	if err != nil {
		return nil, fmt.Errorf("failed to save onboarding: %w", err)
	}
	return p, nil
}

func (db *PostgresDB) SetPlan(ctx context.Context, userID string, plan models.Plan) (*models.Profile, error) {
	query := `
        UPDATE users
        SET plan = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + profileColumns

	p, err := scanProfile(db.pool.QueryRow(ctx, query, userID, plan))
	if err != nil {
		return nil, fmt.Errorf("failed to set plan: %w", err)
	}
	return p, nil
}

// AdvanceDay locks the user row, so status writes for the user wait for it.
func (db *PostgresDB) AdvanceDay(ctx context.Context, userID string, fromDay int, taskIDs []string) (bool, error) {
	var advanced bool
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var (
			program string
			day     int
		)
		err := tx.QueryRow(ctx, `SELECT current_program, current_day FROM users WHERE id = $1 FOR UPDATE`, userID).
			Scan(&program, &day)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && day != fromDay) {
			return nil
		}
		if err != nil {
			return err
		}

		var settled int
		err = tx.QueryRow(ctx, `
            SELECT COUNT(DISTINCT task_id) FROM user_tasks
            WHERE user_id = $1 AND program_id = $2 AND day = $3
              AND task_id = ANY($4) AND status IN ('Done', 'Skipped', 'Deferred')
        `, userID, program, fromDay, taskIDs).Scan(&settled)
		if err != nil {
			return err
		}
		if settled != countDistinct(taskIDs) {
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE users SET current_day = current_day + 1, updated_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance day: %w", err)
	}
	return advanced, nil
}

func countDistinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

func (db *PostgresDB) MoveProgram(ctx context.Context, userID, fromProgram string, fromDay int, toProgram string) (bool, error) {
	query := `
        UPDATE users
        SET current_program = $4, current_day = 1, updated_at = NOW()
        WHERE id = $1 AND current_program = $2 AND current_day = $3
    `

	tag, err := db.pool.Exec(ctx, query, userID, fromProgram, fromDay, toProgram)
	if err != nil {
		return false, fmt.Errorf("failed to switch program: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (db *PostgresDB) InsertKPIEntry(ctx context.Context, e *models.KPIEntry) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode KPI data: %w", err)
	}

	query := `
        INSERT INTO kpi_entries (user_id, day, program_id, data, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `

	return db.pool.QueryRow(ctx, query,
		e.UserID, e.Day, e.ProgramID, string(payload), e.CreatedAt,
	).Scan(&e.ID)
}

func (db *PostgresDB) ListKPIEntries(ctx context.Context, userID string) ([]models.KPIEntry, error) {
	query := `
        SELECT id, user_id, day, program_id, data, created_at
        FROM kpi_entries
        WHERE user_id = $1
        ORDER BY created_at, id
    `

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list KPI entries: %w", err)
	}
	defer rows.Close()

	var out []models.KPIEntry
	for rows.Next() {
		var (
			e    models.KPIEntry
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Day, &e.ProgramID, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &e.Data); err != nil {
			return nil, fmt.Errorf("failed to decode KPI data: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
