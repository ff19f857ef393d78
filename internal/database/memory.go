package database

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/givebridge/messaging/internal/models"
)

// MemoryDB is an in-process store with the same semantics as the
// postgres implementation. It backs the test suite and the dev server
// mode, where standing up postgres would be overkill.
type MemoryDB struct {
	mu            sync.Mutex
	users         map[int64]*models.User
	messages      []*models.Message
	nextUserID    int64
	nextMessageID int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:         make(map[int64]*models.User),
		nextUserID:    1,
		nextMessageID: 1,
	}
}

func (db *MemoryDB) CreateUser(name, email, passwordHash string, role models.Role) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			return nil, ErrUserAlreadyExists
		}
	}

	user := &models.User{
		ID:           db.nextUserID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	db.nextUserID++
	db.users[user.ID] = user

	out := *user
	return &out, nil
}

func (db *MemoryDB) GetUserByEmail(email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (db *MemoryDB) GetUserByID(id int64) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.userLocked(id)
}

func (db *MemoryDB) userLocked(id int64) (*models.User, error) {
	u, ok := db.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (db *MemoryDB) GetAllUsers(excludeUserID int64) ([]*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var users []*models.User
	for _, u := range db.users {
		if u.ID == excludeUserID {
			continue
		}
		out := *u
		users = append(users, &out)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (db *MemoryDB) CreateMessage(req models.SendRequest) (*models.Message, error) {
	if req.SenderID == req.ReceiverID {
		return nil, ErrSelfMessage
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	sender, err := db.userLocked(req.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := db.userLocked(req.ReceiverID)
	if err != nil {
		return nil, err
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = models.MessageTypeGeneral
	}

	senderRef := sender.Ref()
	receiverRef := receiver.Ref()

	message := &models.Message{
		ID:          db.nextMessageID,
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		PostID:      req.PostID,
		Subject:     req.Subject,
		Content:     req.Content,
		MessageType: msgType,
		Status:      models.StatusUnread,
		CreatedAt:   time.Now().UTC(),
		Sender:      &senderRef,
		Receiver:    &receiverRef,
	}
	db.nextMessageID++
	db.messages = append(db.messages, message)

	out := *message
	return &out, nil
}

// collect copies matching messages. Insert order equals id order, so a
// stable sort on created_at preserves relative order for equal stamps.
func (db *MemoryDB) collect(match func(*models.Message) bool, newestFirst bool) []*models.Message {
	var out []*models.Message
	for _, m := range db.messages {
		if match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (db *MemoryDB) GetInbox(userID int64) ([]*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collect(func(m *models.Message) bool {
		return m.ReceiverID == userID
	}, true), nil
}

func (db *MemoryDB) GetSent(userID int64) ([]*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collect(func(m *models.Message) bool {
		return m.SenderID == userID
	}, true), nil
}

func (db *MemoryDB) GetThread(userID, otherUserID int64) ([]*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collect(func(m *models.Message) bool {
		return (m.SenderID == userID && m.ReceiverID == otherUserID) ||
			(m.SenderID == otherUserID && m.ReceiverID == userID)
	}, false), nil
}

func (db *MemoryDB) GetMessageByID(messageID int64) (*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range db.messages {
		if m.ID == messageID {
			out := *m
			return &out, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (db *MemoryDB) MarkMessageRead(messageID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range db.messages {
		if m.ID == messageID {
			m.Status = models.StatusRead
			return nil
		}
	}
	return ErrMessageNotFound
}

func (db *MemoryDB) MarkThreadRead(userID, otherUserID int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var updated int64
	for _, m := range db.messages {
		if m.ReceiverID == userID && m.SenderID == otherUserID && m.Status == models.StatusUnread {
			m.Status = models.StatusRead
			updated++
		}
	}
	return updated, nil
}

func (db *MemoryDB) Close() error {
	return nil
}
