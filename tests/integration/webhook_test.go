package integration

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayCleanAPI/handlers"
	"stayCleanAPI/services"
	"stayCleanAPI/tests/helpers"
)

func clerkUserCreatedPayload(clerkID, username string) []byte {
	return []byte(fmt.Sprintf(`{
		"type": "user.created",
		"data": {
			"id": "%s",
			"username": "%s",
			"first_name": "Test",
			"last_name": "User",
			"image_url": "https://example.com/image.jpg",
			"email_addresses": [{
				"id": "email_123",
				"email_address": "test.user@example.com",
				"verification": {"status": "verified"}
			}],
			"primary_email_address_id": "email_123"
		}
	}`, clerkID, username))
}

func TestClerkWebhookUserLifecycle(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_webhook_" + time.Now().Format("20060102150405")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(clerkUserCreatedPayload(clerkID, "webhooker")))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	ctx := context.Background()
	created, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", created.Email)
	assert.Equal(t, "webhooker", created.Username)
	assert.True(t, created.EmailVerified)
	assert.Nil(t, created.CurrentStreakStart)
	assert.Empty(t, created.StreakHistory)

	deletePayload := []byte(fmt.Sprintf(`{"type": "user.deleted", "data": {"id": "%s", "deleted": true}}`, clerkID))
	req = httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(deletePayload))
	rr = httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "user should be deleted")
}
