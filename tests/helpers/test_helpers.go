package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	clerk_id TEXT UNIQUE NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	current_streak_start TIMESTAMPTZ,
	last_check_in TIMESTAMPTZ,
	streak_history JSONB NOT NULL DEFAULT '[]',
	journals JSONB NOT NULL DEFAULT '[]',
	active_room_id UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT UNIQUE NOT NULL,
	host_id UUID NOT NULL,
	member_ids UUID[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS devices (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	token TEXT UNIQUE NOT NULL,
	platform TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// SetupTestDB connects to the test database and makes sure the schema
// exists. Tests are skipped when no database is configured so the pure
// logic suites still run anywhere.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL must be set for integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatalf("Failed to ensure test schema: %v", err)
	}

	return pool
}

// CleanupTestDB removes rows created by the helpers and closes the pool.
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `DELETE FROM rooms WHERE host_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test rooms: %v", err)
	}
	_, err = pool.Exec(ctx, `DELETE FROM devices WHERE user_id IN (SELECT id FROM users WHERE clerk_id LIKE 'user_test_%')`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test devices: %v", err)
	}
	_, err = pool.Exec(ctx, `DELETE FROM users WHERE clerk_id LIKE 'user_test_%'`)
	if err != nil {
		t.Logf("Warning: failed to cleanup test users: %v", err)
	}
	pool.Close()
}

// CreateTestUser inserts a bare user row and returns its IDs. The clerk ID
// carries the user_test_ prefix CleanupTestDB keys on.
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, username string) (uuid.UUID, string) {
	id := uuid.New()
	clerkID := fmt.Sprintf("user_test_%s_%s", username, id.String()[:8])

	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, clerk_id, email, username)
		VALUES ($1, $2, $3, $4)
	`, id, clerkID, fmt.Sprintf("test_%s@example.com", username), username)
	if err != nil {
		t.Fatalf("Failed to create test user %s: %v", username, err)
	}

	return id, clerkID
}

// BackdateStreakStart pushes a user's active streak start into the past so
// elapsed-hours assertions don't need to sleep.
func BackdateStreakStart(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, ago time.Duration) {
	_, err := pool.Exec(context.Background(),
		`UPDATE users SET current_streak_start = NOW() - make_interval(secs => $2) WHERE id = $1`,
		userID, ago.Seconds())
	if err != nil {
		t.Fatalf("Failed to backdate streak start: %v", err)
	}
}

// BackdateRoomCreation ages a room so TTL paths can be exercised.
func BackdateRoomCreation(t *testing.T, pool *pgxpool.Pool, roomID uuid.UUID, ago time.Duration) {
	_, err := pool.Exec(context.Background(),
		`UPDATE rooms SET created_at = NOW() - make_interval(secs => $2) WHERE id = $1`,
		roomID, ago.Seconds())
	if err != nil {
		t.Fatalf("Failed to backdate room creation: %v", err)
	}
}

// GenerateMockClerkJWT generates a mock JWT token for testing
func GenerateMockClerkJWT(clerkID string) (string, error) {
	secretKey := []byte("test-secret-key-for-testing-only")

	claims := jwt.MapClaims{
		"sub": clerkID,
		"iss": "https://clerk.test",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
		"azp": "test-app-id",
		"sid": "sess_test123",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
