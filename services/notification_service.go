package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayCleanAPI/internal/apperr"
	"stayCleanAPI/internal/notification"
)

// PushProvider is what actually delivers a push. FCM in production; nil or
// a fake in tests.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]string) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) SetPushProvider(provider PushProvider) {
	s.pushProvider = provider
}

// RegisterDevice stores (or re-binds) a push token. A token moving between
// accounts follows the most recent login.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return apperr.Validation("device token is required")
	}
	switch req.Platform {
	case "ios", "android", "web":
	default:
		return apperr.Validation("platform must be one of: ios, android, web")
	}

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	query := `
	INSERT INTO devices (id, user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`

	_, err = s.db.Exec(ctx, query, uuid.New(), userID, req.Token, req.Platform, time.Now())
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	return nil
}

// NotifyUsers pushes to every device registered by the given users. No-op
// without a configured provider.
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []uuid.UUID, title, body string, data map[string]string) error {
	if s.pushProvider == nil || len(userIDs) == 0 {
		return nil
	}

	rows, err := s.db.Query(ctx, `SELECT id, user_id, token, platform, created_at FROM devices WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating device tokens: %w", err)
	}

	return s.pushProvider.SendPush(ctx, tokens, title, body, data)
}
