package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givebridge/messaging/internal/api"
	"github.com/givebridge/messaging/internal/auth"
	"github.com/givebridge/messaging/internal/database"
	"github.com/givebridge/messaging/internal/models"
)

// startBackend runs the real API over the in-memory store and returns
// its base URL plus two registered users with session tokens.
func startBackend(t *testing.T) (baseURL string, donor, recipient *models.User, donorToken, recipientToken string) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	auth.InitJWTKey([]byte("client-test-secret"))

	db := database.NewMemoryDB()

	router := gin.New()
	messageHandler := api.NewMessageHandler(db, nil)

	authorized := router.Group("/api")
	authorized.Use(api.AuthMiddleware())
	{
		authorized.POST("/messages", messageHandler.SendMessage)
		authorized.GET("/messages/inbox", messageHandler.GetInbox)
		authorized.GET("/messages/sent", messageHandler.GetSent)
		authorized.PUT("/messages/:messageID/read", messageHandler.MarkMessageRead)
		authorized.GET("/conversations", messageHandler.GetConversations)
		authorized.GET("/conversations/:userID", messageHandler.GetThread)
		authorized.PUT("/conversations/:userID/read", messageHandler.MarkConversationRead)
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	var err error
	donor, err = db.CreateUser("Dana", "dana@example.com", "hash", models.RoleDonor)
	require.NoError(t, err)
	recipient, err = db.CreateUser("Rita", "rita@example.com", "hash", models.RoleRecipient)
	require.NoError(t, err)

	donorToken, _, err = auth.GenerateToken(donor)
	require.NoError(t, err)
	recipientToken, _, err = auth.GenerateToken(recipient)
	require.NoError(t, err)

	return server.URL, donor, recipient, donorToken, recipientToken
}

func TestClientEmptyConversations(t *testing.T) {
	baseURL, donor, _, donorToken, _ := startBackend(t)
	c := New(baseURL, WithToken(donorToken))

	// A user with zero messages gets an empty list, not an error
	summaries, err := c.Conversations(context.Background(), donor.ID)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestClientSendRoundTrip(t *testing.T) {
	baseURL, donor, recipient, donorToken, _ := startBackend(t)
	c := New(baseURL, WithToken(donorToken))
	ctx := context.Background()

	sent, err := c.Send(ctx, models.SendRequest{
		SenderID:    donor.ID,
		ReceiverID:  recipient.ID,
		Subject:     "Winter coats",
		Content:     "I have three coats to give away",
		MessageType: models.MessageTypeHelpOffer,
	})
	require.NoError(t, err)
	assert.NotZero(t, sent.ID)
	assert.Equal(t, models.StatusUnread, sent.Status)

	// After a re-fetch the new message appears exactly once, last
	thread, err := c.Thread(ctx, donor.ID, recipient.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, sent.ID, thread[0].ID)

	_, err = c.Send(ctx, models.SendRequest{
		SenderID:   donor.ID,
		ReceiverID: recipient.ID,
		Content:    "They are size medium",
	})
	require.NoError(t, err)

	thread, err = c.Thread(ctx, donor.ID, recipient.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	count := 0
	for _, m := range thread {
		if m.ID == sent.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
	for i := 1; i < len(thread); i++ {
		assert.False(t, thread[i].CreatedAt.Before(thread[i-1].CreatedAt))
	}
}

func TestClientSendValidation(t *testing.T) {
	baseURL, donor, recipient, donorToken, _ := startBackend(t)
	c := New(baseURL, WithToken(donorToken))
	ctx := context.Background()

	// Rejected locally, before any request goes out
	_, err := c.Send(ctx, models.SendRequest{
		SenderID:   donor.ID,
		ReceiverID: recipient.ID,
		Content:    "   ",
	})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = c.Send(ctx, models.SendRequest{
		SenderID:   donor.ID,
		ReceiverID: donor.ID,
		Content:    "hello",
	})
	assert.ErrorIs(t, err, ErrSelfMessage)
}

func TestClientConversationsDerivedAndServerSideAgree(t *testing.T) {
	baseURL, donor, recipient, donorToken, recipientToken := startBackend(t)
	donorClient := New(baseURL, WithToken(donorToken))
	ctx := context.Background()

	for _, content := range []string{"first", "second"} {
		_, err := donorClient.Send(ctx, models.SendRequest{
			SenderID:   donor.ID,
			ReceiverID: recipient.ID,
			Content:    content,
		})
		require.NoError(t, err)
	}

	derived := New(baseURL, WithToken(recipientToken))
	serverSide := New(baseURL, WithToken(recipientToken), WithServerConversations())

	a, err := derived.Conversations(ctx, recipient.ID)
	require.NoError(t, err)
	b, err := serverSide.Conversations(ctx, recipient.ID)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].OtherUser.ID, b[0].OtherUser.ID)
	assert.Equal(t, a[0].UnreadCount, b[0].UnreadCount)
	assert.Equal(t, a[0].LatestMessage.ID, b[0].LatestMessage.ID)
	assert.Equal(t, 2, a[0].UnreadCount)
}

func TestClientMarkConversationReadClearsUnread(t *testing.T) {
	baseURL, donor, recipient, donorToken, recipientToken := startBackend(t)
	donorClient := New(baseURL, WithToken(donorToken))
	recipientClient := New(baseURL, WithToken(recipientToken))
	ctx := context.Background()

	_, err := donorClient.Send(ctx, models.SendRequest{
		SenderID:   donor.ID,
		ReceiverID: recipient.ID,
		Content:    "are the coats still available?",
	})
	require.NoError(t, err)

	summaries, err := recipientClient.Conversations(ctx, recipient.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].UnreadCount)

	// Opening the thread marks it read
	require.NoError(t, recipientClient.MarkConversationRead(ctx, recipient.ID, donor.ID))

	summaries, err = recipientClient.Conversations(ctx, recipient.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].UnreadCount)
}

func TestClientMarkReadIdempotent(t *testing.T) {
	baseURL, donor, recipient, donorToken, recipientToken := startBackend(t)
	donorClient := New(baseURL, WithToken(donorToken))
	recipientClient := New(baseURL, WithToken(recipientToken))
	ctx := context.Background()

	msg, err := donorClient.Send(ctx, models.SendRequest{
		SenderID:   donor.ID,
		ReceiverID: recipient.ID,
		Content:    "hello",
	})
	require.NoError(t, err)

	require.NoError(t, recipientClient.MarkRead(ctx, msg.ID))
	// Marking twice yields the same state and no error
	require.NoError(t, recipientClient.MarkRead(ctx, msg.ID))

	inbox, err := recipientClient.Inbox(ctx, recipient.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, models.StatusRead, inbox[0].Status)
}

func TestClientViewerMustMatchToken(t *testing.T) {
	baseURL, donor, recipient, donorToken, _ := startBackend(t)
	c := New(baseURL, WithToken(donorToken))
	ctx := context.Background()

	// The backend scopes collections by the token; a diverging id would
	// derive summaries for the wrong viewer, so it is rejected up front
	_, err := c.Conversations(ctx, recipient.ID)
	assert.ErrorIs(t, err, ErrViewerMismatch)
	_, err = c.Inbox(ctx, recipient.ID)
	assert.ErrorIs(t, err, ErrViewerMismatch)
	_, err = c.Thread(ctx, recipient.ID, donor.ID)
	assert.ErrorIs(t, err, ErrViewerMismatch)

	_, err = c.Inbox(ctx, donor.ID)
	assert.NoError(t, err)
}

func TestClientBackendErrorSurfacesAsAPIError(t *testing.T) {
	// A backend that fails every request
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer broken.Close()

	c := New(broken.URL, WithToken("irrelevant"))

	_, err := c.Inbox(context.Background(), 7)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClientUnauthorized(t *testing.T) {
	baseURL, donor, _, _, _ := startBackend(t)
	c := New(baseURL) // no token

	_, err := c.Inbox(context.Background(), donor.ID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
