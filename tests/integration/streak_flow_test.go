package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayCleanAPI/handlers"
	"stayCleanAPI/internal/apperr"
	"stayCleanAPI/middleware"
	"stayCleanAPI/services"
	"stayCleanAPI/tests/helpers"
)

func TestStartStreakDoubleStartIsRejected(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	streakService := services.NewStreakService(pool)
	_, clerkID := helpers.CreateTestUser(t, pool, "doublestart")

	ctx := context.Background()

	first, err := streakService.StartStreak(ctx, clerkID)
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = streakService.StartStreak(ctx, clerkID)
	require.Error(t, err)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)

	// The failed second call must not touch the original start time.
	status, err := streakService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	require.NotNil(t, status.CurrentStreakStart)
	assert.WithinDuration(t, *first, *status.CurrentStreakStart, time.Second)
}

func TestResetStreakProducesOneHistoryEntry(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	streakService := services.NewStreakService(pool)
	userID, clerkID := helpers.CreateTestUser(t, pool, "reset26")

	ctx := context.Background()

	_, err := streakService.StartStreak(ctx, clerkID)
	require.NoError(t, err)
	helpers.BackdateStreakStart(t, pool, userID, 26*time.Hour+15*time.Minute)

	entry, err := streakService.ResetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 26, entry.DurationHours)

	status, err := streakService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Nil(t, status.CurrentStreakStart)
	assert.Equal(t, 0, status.ElapsedHours)
	require.Len(t, status.History, 1)
	assert.Equal(t, 26, status.History[0].DurationHours)
}

func TestResetStreakWithoutActiveStreak(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	streakService := services.NewStreakService(pool)
	_, clerkID := helpers.CreateTestUser(t, pool, "noreset")

	ctx := context.Background()

	_, err := streakService.ResetStreak(ctx, clerkID)
	require.Error(t, err)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)

	status, err := streakService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Empty(t, status.History)
}

func TestClearHistoryEmptiesHistoryOnly(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	streakService := services.NewStreakService(pool)
	userID, clerkID := helpers.CreateTestUser(t, pool, "clearhist")

	ctx := context.Background()

	// Two completed streaks, then a fresh active one.
	for i := 0; i < 2; i++ {
		_, err := streakService.StartStreak(ctx, clerkID)
		require.NoError(t, err)
		helpers.BackdateStreakStart(t, pool, userID, 2*time.Hour)
		_, err = streakService.ResetStreak(ctx, clerkID)
		require.NoError(t, err)
	}
	_, err := streakService.StartStreak(ctx, clerkID)
	require.NoError(t, err)

	require.NoError(t, streakService.ClearHistory(ctx, clerkID))

	status, err := streakService.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.Empty(t, status.History)
	assert.NotNil(t, status.CurrentStreakStart, "clearing history must not end the active streak")
}

// TestStreakHandlerFlow drives the HTTP layer the way the mobile client
// does: authenticated context, JSON responses, conflict surfaced as 409.
func TestStreakHandlerFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	streakService := services.NewStreakService(pool)
	streakHandler := handlers.NewStreakHandler(streakService)
	_, clerkID := helpers.CreateTestUser(t, pool, "handlerflow")

	authedRequest := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
		return req.WithContext(ctx)
	}

	rr := httptest.NewRecorder()
	streakHandler.StartStreak(rr, authedRequest(http.MethodPost, "/api/v1/streak/start"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	streakHandler.StartStreak(rr, authedRequest(http.MethodPost, "/api/v1/streak/start"))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	streakHandler.GetStreak(rr, authedRequest(http.MethodGet, "/api/v1/streak"))
	require.Equal(t, http.StatusOK, rr.Code)

	var status struct {
		CurrentStreakStart *time.Time `json:"currentStreakStart"`
		ElapsedHours       int        `json:"elapsedHours"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.NotNil(t, status.CurrentStreakStart)
	assert.Equal(t, 0, status.ElapsedHours)
}
