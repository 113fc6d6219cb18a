package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skip2/go-qrcode"

	"stayCleanAPI/internal/apperr"
	"stayCleanAPI/internal/leaderboard"
	"stayCleanAPI/internal/room"
	"stayCleanAPI/internal/streak"
)

type RoomService struct {
	db            *pgxpool.Pool
	notifications *NotificationService

	// rng feeds join-code generation; guarded because requests share it.
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoomService(db *pgxpool.Pool, notifications *NotificationService) *RoomService {
	return &RoomService{
		db:            db,
		notifications: notifications,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type roomUser struct {
	ID           uuid.UUID
	Username     string
	ActiveRoomID *uuid.UUID
}

func (s *RoomService) getUserByClerkID(ctx context.Context, clerkID string) (*roomUser, error) {
	u := &roomUser{}
	err := s.db.QueryRow(ctx, `SELECT id, username, active_room_id FROM users WHERE clerk_id = $1`, clerkID).
		Scan(&u.ID, &u.Username, &u.ActiveRoomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *RoomService) nextCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return room.GenerateCode(s.rng)
}

// purgeExpired deletes rooms past their TTL. Called opportunistically on
// the create path so dead rooms free up their codes; all read paths filter
// on created_at regardless, so a missed purge is harmless.
func (s *RoomService) purgeExpired(ctx context.Context) {
	result, err := s.db.Exec(ctx, `DELETE FROM rooms WHERE created_at <= NOW() - INTERVAL '24 hours'`)
	if err != nil {
		log.Printf("RoomService: failed to purge expired rooms: %v", err)
		return
	}
	if n := result.RowsAffected(); n > 0 {
		log.Printf("RoomService: purged %d expired room(s)", n)
	}
}

// CreateRoom makes a new competition room with the caller as host and sole
// member. The join code is drawn at random until an insert wins the unique
// constraint; with 36^6 candidates a collision retry is practically never
// taken.
func (s *RoomService) CreateRoom(ctx context.Context, clerkID, name string) (*room.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("room name is required")
	}
	if len(name) > room.MaxNameLength {
		return nil, apperr.Validation(fmt.Sprintf("room name cannot exceed %d characters", room.MaxNameLength))
	}

	u, err := s.getUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if u.ActiveRoomID != nil {
		return nil, apperr.Conflict("you are already in a room, leave it first to create a new one")
	}

	s.purgeExpired(ctx)

	r := &room.Room{
		ID:        uuid.New(),
		Name:      name,
		HostID:    u.ID,
		MemberIDs: []uuid.UUID{u.ID},
		CreatedAt: time.Now(),
	}

	query := `
	INSERT INTO rooms (id, name, code, host_id, member_ids, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (code) DO NOTHING
	`

	for {
		r.Code = s.nextCode()
		result, err := s.db.Exec(ctx, query, r.ID, r.Name, r.Code, r.HostID, r.MemberIDs, r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
		if result.RowsAffected() > 0 {
			break
		}
		log.Printf("RoomService: join code collision on %s, retrying", r.Code)
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET active_room_id = $2, updated_at = NOW() WHERE id = $1`, u.ID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set active room: %w", err)
	}

	return r, nil
}

// getLiveRoomByCode looks a room up by its join code, case-insensitively.
// Expired rooms are invisible here.
func (s *RoomService) getLiveRoomByCode(ctx context.Context, code string) (*room.Room, error) {
	query := `
	SELECT id, name, code, host_id, member_ids, created_at
	FROM rooms
	WHERE code = $1 AND created_at > NOW() - INTERVAL '24 hours'
	`

	r := &room.Room{}
	err := s.db.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(code))).
		Scan(&r.ID, &r.Name, &r.Code, &r.HostID, &r.MemberIDs, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return r, nil
}

func (s *RoomService) getLiveRoomByID(ctx context.Context, id uuid.UUID) (*room.Room, error) {
	query := `
	SELECT id, name, code, host_id, member_ids, created_at
	FROM rooms
	WHERE id = $1 AND created_at > NOW() - INTERVAL '24 hours'
	`

	r := &room.Room{}
	err := s.db.QueryRow(ctx, query, id).
		Scan(&r.ID, &r.Name, &r.Code, &r.HostID, &r.MemberIDs, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room not found")
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return r, nil
}

// JoinRoom adds the caller to the room behind the given code. Joining the
// room you are already in is a silent success; being in a different room is
// a conflict.
func (s *RoomService) JoinRoom(ctx context.Context, clerkID, code string) (*room.Room, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperr.Validation("room code is required")
	}

	u, err := s.getUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	r, err := s.getLiveRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if u.ActiveRoomID != nil && *u.ActiveRoomID != r.ID {
		return nil, apperr.Conflict("you are already in a room, leave it first to join another")
	}

	if !r.HasMember(u.ID) {
		query := `
		UPDATE rooms
		SET member_ids = array_append(member_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(member_ids))
		`
		if _, err := s.db.Exec(ctx, query, r.ID, u.ID); err != nil {
			return nil, fmt.Errorf("failed to join room: %w", err)
		}
		r.MemberIDs = append(r.MemberIDs, u.ID)

		s.notifyRoomJoin(ctx, r, u)
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET active_room_id = $2, updated_at = NOW() WHERE id = $1`, u.ID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set active room: %w", err)
	}

	return r, nil
}

// notifyRoomJoin pushes a best-effort heads-up to the existing members.
// Failures are logged and swallowed; the push only prompts a poll.
func (s *RoomService) notifyRoomJoin(ctx context.Context, r *room.Room, joiner *roomUser) {
	if s.notifications == nil {
		return
	}

	var others []uuid.UUID
	for _, id := range r.MemberIDs {
		if id != joiner.ID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return
	}

	err := s.notifications.NotifyUsers(ctx, others,
		r.Name,
		fmt.Sprintf("%s just joined the room", joiner.Username),
		map[string]string{"type": "room_join", "roomId": r.ID.String()},
	)
	if err != nil {
		log.Printf("RoomService: room join push failed: %v", err)
	}
}

// LeaveRoom removes the caller from their room. The caller's own reference
// is cleared first so their state is never stuck, even if the room lookup
// fails afterwards. A host leaving deletes the room and best-effort clears
// every other member's reference; getCurrentRoom repairs any stragglers.
func (s *RoomService) LeaveRoom(ctx context.Context, clerkID string) error {
	u, err := s.getUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}
	if u.ActiveRoomID == nil {
		return apperr.Validation("you are not in a room")
	}
	roomID := *u.ActiveRoomID

	_, err = s.db.Exec(ctx, `UPDATE users SET active_room_id = NULL, updated_at = NOW() WHERE id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("failed to clear active room: %w", err)
	}

	r, err := s.getLiveRoomByID(ctx, roomID)
	if err != nil {
		var notFound *apperr.NotFoundError
		if errors.As(err, &notFound) {
			// Room already gone (expired or host left); nothing else to do.
			return nil
		}
		return err
	}

	if r.IsHost(u.ID) {
		if _, err := s.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, r.ID); err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		// Cascade: clear every member still pointing at the dead room.
		if _, err := s.db.Exec(ctx, `UPDATE users SET active_room_id = NULL, updated_at = NOW() WHERE active_room_id = $1`, r.ID); err != nil {
			log.Printf("RoomService: cascade cleanup after host leave failed for room %s: %v", r.ID, err)
		}
		return nil
	}

	_, err = s.db.Exec(ctx, `UPDATE rooms SET member_ids = array_remove(member_ids, $2) WHERE id = $1`, r.ID, u.ID)
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

// MemberStreak is the per-member slice of user state the leaderboard needs.
type MemberStreak struct {
	ID                 uuid.UUID
	Username           string
	ImageURL           string
	CurrentStreakStart *time.Time
}

// BuildLeaderboard derives the ranked view for a room at the given instant.
// Descending by elapsed hours; ties keep the members' join order (stable
// sort over the member list).
func BuildLeaderboard(r *room.Room, members []MemberStreak, requesterID uuid.UUID, now time.Time) []*leaderboard.Entry {
	entries := make([]*leaderboard.Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, &leaderboard.Entry{
			UserID:        m.ID,
			Username:      m.Username,
			ImageURL:      m.ImageURL,
			DurationHours: streak.ElapsedHours(m.CurrentStreakStart, now),
			IsHost:        r.IsHost(m.ID),
			IsMe:          m.ID == requesterID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DurationHours > entries[j].DurationHours
	})

	return entries
}

// getMemberStreaks loads the leaderboard inputs for every room member,
// preserving the room's member order.
func (s *RoomService) getMemberStreaks(ctx context.Context, r *room.Room) ([]MemberStreak, error) {
	query := `
	SELECT id, username, COALESCE(image_url, ''), current_streak_start
	FROM users
	WHERE id = ANY($1)
	`

	rows, err := s.db.Query(ctx, query, r.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load room members: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]MemberStreak, len(r.MemberIDs))
	for rows.Next() {
		var m MemberStreak
		if err := rows.Scan(&m.ID, &m.Username, &m.ImageURL, &m.CurrentStreakStart); err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room members: %w", err)
	}

	members := make([]MemberStreak, 0, len(r.MemberIDs))
	for _, id := range r.MemberIDs {
		if m, ok := byID[id]; ok {
			members = append(members, m)
		}
	}

	return members, nil
}

// GetCurrentRoom returns the caller's room with its leaderboard, or
// inRoom=false when they have none. A stale active_room_id pointing at a
// deleted or expired room is repaired here: host-leave cascades and TTL
// expiry are not atomic with member references, so every read must
// self-heal.
func (s *RoomService) GetCurrentRoom(ctx context.Context, clerkID string) (*leaderboard.CurrentRoomResponse, error) {
	u, err := s.getUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if u.ActiveRoomID == nil {
		return &leaderboard.CurrentRoomResponse{InRoom: false}, nil
	}

	r, err := s.getLiveRoomByID(ctx, *u.ActiveRoomID)
	if err != nil {
		var notFound *apperr.NotFoundError
		if errors.As(err, &notFound) {
			if _, err := s.db.Exec(ctx, `UPDATE users SET active_room_id = NULL, updated_at = NOW() WHERE id = $1`, u.ID); err != nil {
				log.Printf("RoomService: failed to self-heal stale room reference for user %s: %v", u.ID, err)
			}
			return &leaderboard.CurrentRoomResponse{InRoom: false}, nil
		}
		return nil, err
	}

	members, err := s.getMemberStreaks(ctx, r)
	if err != nil {
		return nil, err
	}

	return &leaderboard.CurrentRoomResponse{
		InRoom: true,
		Room: &leaderboard.RoomSummary{
			ID:        r.ID,
			Name:      r.Name,
			Code:      r.Code,
			HostID:    r.HostID,
			CreatedAt: r.CreatedAt,
		},
		Leaderboard: BuildLeaderboard(r, members, u.ID, time.Now()),
	}, nil
}

type RoomQRResponse struct {
	Code         string `json:"code"`
	QrCodeBase64 string `json:"qr_code_base64"`
}

// RoomQR renders the caller's room join code as a QR deep link so another
// phone can scan its way in instead of typing the code.
func (s *RoomService) RoomQR(ctx context.Context, clerkID string) (*RoomQRResponse, error) {
	u, err := s.getUserByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	if u.ActiveRoomID == nil {
		return nil, apperr.Validation("you are not in a room")
	}

	r, err := s.getLiveRoomByID(ctx, *u.ActiveRoomID)
	if err != nil {
		return nil, err
	}

	qrContent := fmt.Sprintf("stayclean://competition/join/%s", r.Code)

	pngBytes, err := qrcode.Encode(qrContent, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}

	return &RoomQRResponse{
		Code:         r.Code,
		QrCodeBase64: base64.StdEncoding.EncodeToString(pngBytes),
	}, nil
}
