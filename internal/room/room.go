package room

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxNameLength matches the client-side limit on room names.
	MaxNameLength = 30

	// CodeLength is the fixed length of a join code.
	CodeLength = 6

	// TTL is how long a room stays live after creation. Reads treat
	// anything older as gone.
	TTL = 24 * time.Hour

	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Room struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Code      string      `json:"code"`
	HostID    uuid.UUID   `json:"host"`
	MemberIDs []uuid.UUID `json:"members"`
	CreatedAt time.Time   `json:"createdAt"`
}

// IsHost reports whether userID created the room.
func (r *Room) IsHost(userID uuid.UUID) bool {
	return r.HostID == userID
}

// HasMember reports whether userID is in the member list.
func (r *Room) HasMember(userID uuid.UUID) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Expired reports whether the room has outlived its TTL at the given time.
func (r *Room) Expired(now time.Time) bool {
	return now.Sub(r.CreatedAt) > TTL
}

// GenerateCode draws one candidate join code: CodeLength uppercase
// alphanumeric characters. Uniqueness is the caller's problem (insert and
// retry on collision). Deterministic given the rng's seed.
func GenerateCode(rng *rand.Rand) string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeCharset[rng.Intn(len(codeCharset))]
	}
	return string(b)
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
}
