package messaging

import (
	"context"

	"github.com/givebridge/messaging/internal/models"
)

// Store is the backend contract the messaging views run against. All
// calls may fail with a transport error; callers degrade to an empty
// view rather than surfacing the failure.
//
// Ordering: Inbox and Sent come back newest first, Thread oldest first.
type Store interface {
	Inbox(ctx context.Context, userID int64) ([]models.Message, error)
	Sent(ctx context.Context, userID int64) ([]models.Message, error)
	Conversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
	Thread(ctx context.Context, userID, otherUserID int64) ([]models.Message, error)
	Send(ctx context.Context, req models.SendRequest) (*models.Message, error)
	MarkRead(ctx context.Context, messageID int64) error
	MarkConversationRead(ctx context.Context, userID, otherUserID int64) error
}
