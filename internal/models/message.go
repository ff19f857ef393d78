package models

import "time"

// MessageType classifies the intent of a message. It only affects
// display labeling, never routing.
type MessageType string

const (
	MessageTypeHelpOffer MessageType = "help_offer"
	MessageTypeContact   MessageType = "contact"
	MessageTypeGeneral   MessageType = "general"
)

// MessageStatus is the read state of a message. It moves from unread to
// read exactly once and never reverses.
type MessageStatus string

const (
	StatusUnread MessageStatus = "unread"
	StatusRead   MessageStatus = "read"
)

// UserRef is the denormalized identity snapshot that travels with a
// message so list views can render names without a separate user lookup.
type UserRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message is a single point-to-point message between two users,
// optionally tied to the help-request or donation-offer post that
// motivated it.
type Message struct {
	ID          int64         `json:"id"`
	SenderID    int64         `json:"sender_id"`
	ReceiverID  int64         `json:"receiver_id"`
	PostID      *int64        `json:"post_id,omitempty"`
	Subject     string        `json:"subject"`
	Content     string        `json:"content"`
	MessageType MessageType   `json:"message_type"`
	Status      MessageStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	Sender      *UserRef      `json:"sender,omitempty"`
	Receiver    *UserRef      `json:"receiver,omitempty"`
}

// CounterpartID returns the non-viewer participant of the message.
func (m *Message) CounterpartID(viewerID int64) int64 {
	if m.SenderID == viewerID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Counterpart returns the denormalized snapshot of the non-viewer
// participant, or nil when the message does not carry one.
func (m *Message) Counterpart(viewerID int64) *UserRef {
	if m.SenderID == viewerID {
		return m.Receiver
	}
	return m.Sender
}

// SendRequest carries everything needed to create a new message. The
// backend assigns the id, created_at and the initial unread status.
type SendRequest struct {
	SenderID    int64       `json:"sender_id"`
	ReceiverID  int64       `json:"receiver_id" binding:"required"`
	PostID      *int64      `json:"post_id,omitempty"`
	Subject     string      `json:"subject"`
	Content     string      `json:"content" binding:"required,min=1"`
	MessageType MessageType `json:"message_type"`
}

// ConversationSummary is a derived digest of one conversation, used by
// list views. It is recomputed from the authoritative message set on
// every fetch and never persisted.
type ConversationSummary struct {
	OtherUser     UserRef   `json:"other_user"`
	LatestMessage Message   `json:"latest_message"`
	UnreadCount   int       `json:"unread_count"`
	LastActivity  time.Time `json:"last_activity"`
}
