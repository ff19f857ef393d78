package database

import (
	"errors"
	"fmt"

	"github.com/givebridge/messaging/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrMessageNotFound   = errors.New("message not found")
	ErrSelfMessage       = errors.New("sender and receiver must differ")
	ErrEmptyContent      = errors.New("message content must not be empty")
)

// DBInterface is the storage contract behind the message API. Message
// collections come back with sender and receiver snapshots populated.
type DBInterface interface {
	// User methods
	CreateUser(name, email, passwordHash string, role models.Role) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetAllUsers(excludeUserID int64) ([]*models.User, error)

	// Message methods
	CreateMessage(req models.SendRequest) (*models.Message, error)
	GetInbox(userID int64) ([]*models.Message, error)
	GetSent(userID int64) ([]*models.Message, error)
	GetThread(userID, otherUserID int64) ([]*models.Message, error)
	GetMessageByID(messageID int64) (*models.Message, error)
	MarkMessageRead(messageID int64) error
	MarkThreadRead(userID, otherUserID int64) (int64, error)

	Close() error
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
	InMemory   DatabaseType = "memory"
)

// NewDatabase builds a store for the configured backend type. The
// in-memory store backs tests and local development; postgres is the
// production engine.
func NewDatabase(dbType DatabaseType, connStr string) (DBInterface, error) {
	switch dbType {
	case PostgreSQL:
		return NewPostgresDB(connStr)
	case InMemory:
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
