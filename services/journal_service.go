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
	"stayCleanAPI/internal/journal"
)

type JournalService struct {
	db *pgxpool.Pool
}

func NewJournalService(db *pgxpool.Pool) *JournalService {
	return &JournalService{db: db}
}

// AddEntry appends a mood/quote entry and stamps last_check_in on the same
// row. The check-in timestamp is observability only.
func (s *JournalService) AddEntry(ctx context.Context, clerkID string, req *journal.AddEntryRequest) (*journal.Entry, error) {
	if !journal.ValidMood(req.Mood) {
		return nil, apperr.Validation("mood must be one of: strong, okay, struggling")
	}

	now := time.Now()
	entry := journal.Entry{
		Date:  now,
		Mood:  req.Mood,
		Quote: req.Quote,
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode journal entry: %w", err)
	}

	query := `
	UPDATE users
	SET journals = journals || $2::jsonb,
	    last_check_in = $3,
	    updated_at = NOW()
	WHERE clerk_id = $1
	`

	result, err := s.db.Exec(ctx, query, clerkID, entryJSON, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add journal entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return nil, apperr.NotFound("user not found")
	}

	return &entry, nil
}

func (s *JournalService) ListEntries(ctx context.Context, clerkID string) ([]journal.Entry, error) {
	var entries []journal.Entry
	err := s.db.QueryRow(ctx, `SELECT journals FROM users WHERE clerk_id = $1`, clerkID).Scan(&entries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	if entries == nil {
		entries = []journal.Entry{}
	}

	return entries, nil
}
