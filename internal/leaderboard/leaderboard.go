package leaderboard

import (
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	UserID        uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	DurationHours int       `json:"durationHours"`
	IsHost        bool      `json:"isHost"`
	IsMe          bool      `json:"isMe"`
}

type RoomSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	HostID    uuid.UUID `json:"host"`
	CreatedAt time.Time `json:"createdAt"`
}

// CurrentRoomResponse is the poll payload for /competition/current.
// InRoom false means everything else is zero-valued.
type CurrentRoomResponse struct {
	InRoom      bool         `json:"inRoom"`
	Room        *RoomSummary `json:"room,omitempty"`
	Leaderboard []*Entry     `json:"leaderboard,omitempty"`
}
