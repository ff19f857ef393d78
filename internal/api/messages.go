package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/givebridge/messaging/internal/database"
	"github.com/givebridge/messaging/internal/messaging"
	"github.com/givebridge/messaging/internal/models"
)

// Notifier pushes new-message hints to connected receivers. It is
// optional; a nil notifier disables live updates.
type Notifier interface {
	NotifyNewMessage(msg *models.Message)
}

// MessageHandler handles message-related routes
type MessageHandler struct {
	DB       database.DBInterface
	Notifier Notifier
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(db database.DBInterface, notifier Notifier) *MessageHandler {
	return &MessageHandler{DB: db, Notifier: notifier}
}

func viewerID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID.(int64), true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// SendMessage handles the creation of a new message
func (h *MessageHandler) SendMessage(c *gin.Context) {
	senderID, ok := viewerID(c)
	if !ok {
		return
	}

	var req models.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The sender is always the authenticated user, regardless of what
	// the payload claims.
	req.SenderID = senderID

	if req.ReceiverID == senderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot send a message to yourself"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content must not be empty"})
		return
	}

	message, err := h.DB.CreateMessage(req)
	if err == database.ErrUserNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Receiver not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyNewMessage(message)
	}

	c.JSON(http.StatusCreated, message)
}

// GetInbox returns all messages addressed to the authenticated user,
// newest first
func (h *MessageHandler) GetInbox(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	messages, err := h.DB.GetInbox(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetSent returns all messages the authenticated user sent, newest first
func (h *MessageHandler) GetSent(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	messages, err := h.DB.GetSent(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// GetConversations returns the authenticated user's conversation
// summaries, grouped per counterpart with unread counts
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	inbox, err := h.DB.GetInbox(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sent, err := h.DB.GetSent(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	messages := make([]models.Message, 0, len(inbox)+len(sent))
	for _, m := range inbox {
		messages = append(messages, *m)
	}
	for _, m := range sent {
		messages = append(messages, *m)
	}

	c.JSON(http.StatusOK, messaging.DeriveSummaries(userID, messages))
}

// GetThread returns all messages between the authenticated user and
// another user, oldest first
func (h *MessageHandler) GetThread(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	otherUserID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	messages, err := h.DB.GetThread(userID, otherUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// MarkMessageRead marks a single message as read. Marking an
// already-read message is a no-op, not an error.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	messageID, ok := pathID(c, "messageID")
	if !ok {
		return
	}

	message, err := h.DB.GetMessageByID(messageID)
	if err == database.ErrMessageNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Only the receiver may mark a message read
	if message.ReceiverID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the receiver of this message"})
		return
	}

	if err := h.DB.MarkMessageRead(messageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

// MarkConversationRead marks every unread message addressed to the
// authenticated user in one conversation as read
func (h *MessageHandler) MarkConversationRead(c *gin.Context) {
	userID, ok := viewerID(c)
	if !ok {
		return
	}

	otherUserID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	updated, err := h.DB.MarkThreadRead(userID, otherUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Conversation marked as read",
		"updatedCount": updated,
	})
}
