package user

import (
	"time"

	"github.com/google/uuid"

	"stayCleanAPI/internal/journal"
	"stayCleanAPI/internal/streak"
)

type User struct {
	ID                 uuid.UUID             `json:"id"`
	ClerkID            string                `json:"clerkId"`
	Email              string                `json:"email"`
	Username           string                `json:"username"`
	ImageURL           string                `json:"imageUrl,omitempty"`
	EmailVerified      bool                  `json:"emailVerified"`
	CurrentStreakStart *time.Time            `json:"currentStreakStart"`
	LastCheckIn        *time.Time            `json:"lastCheckIn"`
	StreakHistory      []streak.HistoryEntry `json:"streakHistory"`
	Journals           []journal.Entry       `json:"journals"`
	ActiveRoomID       *uuid.UUID            `json:"activeRoom"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}
