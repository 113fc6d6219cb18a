package integration

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayCleanAPI/internal/apperr"
	"stayCleanAPI/services"
	"stayCleanAPI/tests/helpers"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateAndJoinRoomWithLeaderboard(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))
	streakService := services.NewStreakService(pool)

	hostID, hostClerkID := helpers.CreateTestUser(t, pool, "roomhost")
	_, guestClerkID := helpers.CreateTestUser(t, pool, "roomguest")

	ctx := context.Background()

	// Host has a three-day streak running; guest has none.
	_, err := streakService.StartStreak(ctx, hostClerkID)
	require.NoError(t, err)
	helpers.BackdateStreakStart(t, pool, hostID, 72*time.Hour+10*time.Minute)

	created, err := roomService.CreateRoom(ctx, hostClerkID, "Focus")
	require.NoError(t, err)
	assert.Equal(t, "Focus", created.Name)
	assert.Regexp(t, codePattern, created.Code)

	// Joining is case-insensitive on the code.
	joined, err := roomService.JoinRoom(ctx, guestClerkID, strings.ToLower(created.Code))
	require.NoError(t, err)
	assert.Equal(t, created.ID, joined.ID)

	current, err := roomService.GetCurrentRoom(ctx, guestClerkID)
	require.NoError(t, err)
	require.True(t, current.InRoom)
	assert.Equal(t, created.Code, current.Room.Code)
	require.Len(t, current.Leaderboard, 2)

	// Host ranks first with ~72 elapsed hours; guest trails at 0.
	assert.Equal(t, "roomhost", current.Leaderboard[0].Username)
	assert.Equal(t, 72, current.Leaderboard[0].DurationHours)
	assert.True(t, current.Leaderboard[0].IsHost)
	assert.Equal(t, "roomguest", current.Leaderboard[1].Username)
	assert.Equal(t, 0, current.Leaderboard[1].DurationHours)
	assert.True(t, current.Leaderboard[1].IsMe)
}

func TestJoinRoomIsIdempotentForSameRoom(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))

	_, hostClerkID := helpers.CreateTestUser(t, pool, "idemhost")
	_, guestClerkID := helpers.CreateTestUser(t, pool, "idemguest")

	ctx := context.Background()

	created, err := roomService.CreateRoom(ctx, hostClerkID, "Idempotent")
	require.NoError(t, err)

	_, err = roomService.JoinRoom(ctx, guestClerkID, created.Code)
	require.NoError(t, err)
	again, err := roomService.JoinRoom(ctx, guestClerkID, created.Code)
	require.NoError(t, err)
	assert.Len(t, again.MemberIDs, 2, "second join must not duplicate the member")
}

func TestJoinRoomUnknownCode(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))
	userID, clerkID := helpers.CreateTestUser(t, pool, "nocode")

	ctx := context.Background()

	_, err := roomService.JoinRoom(ctx, clerkID, "ZZZZZ0")
	require.Error(t, err)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	var activeRoomID *uuid.UUID
	require.NoError(t, pool.QueryRow(ctx, `SELECT active_room_id FROM users WHERE id = $1`, userID).Scan(&activeRoomID))
	assert.Nil(t, activeRoomID, "failed join must leave activeRoom unchanged")
}

func TestCreateRoomWhileAlreadyInRoom(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))
	_, clerkID := helpers.CreateTestUser(t, pool, "doublecreate")

	ctx := context.Background()

	_, err := roomService.CreateRoom(ctx, clerkID, "First")
	require.NoError(t, err)

	_, err = roomService.CreateRoom(ctx, clerkID, "Second")
	require.Error(t, err)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms WHERE name = 'Second'`).Scan(&count))
	assert.Zero(t, count, "conflicting create must not leave a room behind")
}

func TestCreateRoomValidatesName(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))
	_, clerkID := helpers.CreateTestUser(t, pool, "badname")

	ctx := context.Background()

	var validation *apperr.ValidationError

	_, err := roomService.CreateRoom(ctx, clerkID, "   ")
	require.Error(t, err)
	assert.ErrorAs(t, err, &validation)

	_, err = roomService.CreateRoom(ctx, clerkID, strings.Repeat("x", 31))
	require.Error(t, err)
	assert.ErrorAs(t, err, &validation)
}

func TestHostLeaveDeletesRoomAndCascades(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))

	_, hostClerkID := helpers.CreateTestUser(t, pool, "leavehost")
	guestID, guestClerkID := helpers.CreateTestUser(t, pool, "leaveguest")

	ctx := context.Background()

	created, err := roomService.CreateRoom(ctx, hostClerkID, "Doomed")
	require.NoError(t, err)
	_, err = roomService.JoinRoom(ctx, guestClerkID, created.Code)
	require.NoError(t, err)

	require.NoError(t, roomService.LeaveRoom(ctx, hostClerkID))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms WHERE id = $1`, created.ID).Scan(&count))
	assert.Zero(t, count, "host leave must delete the room")

	var guestRoomID *uuid.UUID
	require.NoError(t, pool.QueryRow(ctx, `SELECT active_room_id FROM users WHERE id = $1`, guestID).Scan(&guestRoomID))
	assert.Nil(t, guestRoomID, "cascade must clear member references")

	// Simulate a partially applied cascade: re-point the guest at the
	// dead room and confirm the read path repairs it on its own.
	_, err = pool.Exec(ctx, `UPDATE users SET active_room_id = $2 WHERE id = $1`, guestID, created.ID)
	require.NoError(t, err)

	current, err := roomService.GetCurrentRoom(ctx, guestClerkID)
	require.NoError(t, err)
	assert.False(t, current.InRoom)

	require.NoError(t, pool.QueryRow(ctx, `SELECT active_room_id FROM users WHERE id = $1`, guestID).Scan(&guestRoomID))
	assert.Nil(t, guestRoomID, "self-heal must persist the cleared reference")
}

func TestNonHostLeaveKeepsRoomAlive(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))

	_, hostClerkID := helpers.CreateTestUser(t, pool, "stayhost")
	guestID, guestClerkID := helpers.CreateTestUser(t, pool, "quitguest")

	ctx := context.Background()

	created, err := roomService.CreateRoom(ctx, hostClerkID, "Survivors")
	require.NoError(t, err)
	_, err = roomService.JoinRoom(ctx, guestClerkID, created.Code)
	require.NoError(t, err)

	require.NoError(t, roomService.LeaveRoom(ctx, guestClerkID))

	current, err := roomService.GetCurrentRoom(ctx, hostClerkID)
	require.NoError(t, err)
	require.True(t, current.InRoom, "room must survive a non-host leave")
	require.Len(t, current.Leaderboard, 1)
	assert.NotEqual(t, guestID, current.Leaderboard[0].UserID)
}

func TestLeaveRoomWithoutRoom(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))
	_, clerkID := helpers.CreateTestUser(t, pool, "noroom")

	err := roomService.LeaveRoom(context.Background(), clerkID)
	require.Error(t, err)
	var validation *apperr.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestExpiredRoomBehavesAsGone(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	roomService := services.NewRoomService(pool, services.NewNotificationService(pool))

	_, hostClerkID := helpers.CreateTestUser(t, pool, "ttlhost")
	_, lateClerkID := helpers.CreateTestUser(t, pool, "ttllate")

	ctx := context.Background()

	created, err := roomService.CreateRoom(ctx, hostClerkID, "Ephemeral")
	require.NoError(t, err)
	helpers.BackdateRoomCreation(t, pool, created.ID, 25*time.Hour)

	// Joining an expired room reports not found.
	_, err = roomService.JoinRoom(ctx, lateClerkID, created.Code)
	require.Error(t, err)
	var notFound *apperr.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	// The host's own read self-heals to "not in a room".
	current, err := roomService.GetCurrentRoom(ctx, hostClerkID)
	require.NoError(t, err)
	assert.False(t, current.InRoom)
}
