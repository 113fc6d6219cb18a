package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayCleanAPI/internal/apperr"
	"stayCleanAPI/internal/streak"
)

type StreakService struct {
	db *pgxpool.Pool
}

func NewStreakService(db *pgxpool.Pool) *StreakService {
	return &StreakService{db: db}
}

// GetStreak returns the user's active streak (if any) plus their full
// history. Elapsed hours are derived on read, never stored.
func (s *StreakService) GetStreak(ctx context.Context, clerkID string) (*streak.Status, error) {
	query := `
	SELECT current_streak_start, streak_history
	FROM users
	WHERE clerk_id = $1
	`

	status := &streak.Status{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(&status.CurrentStreakStart, &status.History)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	if status.History == nil {
		status.History = []streak.HistoryEntry{}
	}
	status.ElapsedHours = streak.ElapsedHours(status.CurrentStreakStart, time.Now())

	return status, nil
}

// StartStreak sets the streak start to the current server time. A second
// start without a reset in between is rejected; the guard in the UPDATE
// keeps the check-and-set atomic on the user's row.
func (s *StreakService) StartStreak(ctx context.Context, clerkID string) (*time.Time, error) {
	now := time.Now()

	query := `
	UPDATE users
	SET current_streak_start = $2, updated_at = NOW()
	WHERE clerk_id = $1 AND current_streak_start IS NULL
	`

	result, err := s.db.Exec(ctx, query, clerkID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to start streak: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the user does not exist or a streak is already running.
		var existing *time.Time
		err := s.db.QueryRow(ctx, `SELECT current_streak_start FROM users WHERE clerk_id = $1`, clerkID).Scan(&existing)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperr.NotFound("user not found")
			}
			return nil, fmt.Errorf("failed to start streak: %w", err)
		}
		return nil, apperr.Conflict("you already have an active streak")
	}

	return &now, nil
}

// ResetStreak closes the active streak: exactly one history entry is
// appended and the start is cleared, in a single row update.
func (s *StreakService) ResetStreak(ctx context.Context, clerkID string) (*streak.HistoryEntry, error) {
	var start *time.Time
	err := s.db.QueryRow(ctx, `SELECT current_streak_start FROM users WHERE clerk_id = $1`, clerkID).Scan(&start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to reset streak: %w", err)
	}

	if start == nil {
		return nil, apperr.Conflict("no active streak to reset")
	}

	now := time.Now()
	entry := streak.HistoryEntry{
		StartDate:     *start,
		EndDate:       now,
		DurationHours: streak.ElapsedHours(start, now),
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history entry: %w", err)
	}

	query := `
	UPDATE users
	SET streak_history = streak_history || $2::jsonb,
	    current_streak_start = NULL,
	    updated_at = NOW()
	WHERE clerk_id = $1 AND current_streak_start IS NOT NULL
	`

	result, err := s.db.Exec(ctx, query, clerkID, entryJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to reset streak: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Lost a race with another reset on the same user.
		return nil, apperr.Conflict("no active streak to reset")
	}

	return &entry, nil
}

// ClearHistory empties the streak history. The active streak, if any, is
// untouched.
func (s *StreakService) ClearHistory(ctx context.Context, clerkID string) error {
	query := `
	UPDATE users
	SET streak_history = '[]'::jsonb, updated_at = NOW()
	WHERE clerk_id = $1
	`

	result, err := s.db.Exec(ctx, query, clerkID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}

	return nil
}
