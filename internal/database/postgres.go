package database

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/givebridge/messaging/internal/models"
)

type PostgresDB struct {
	*sql.DB
}

func NewPostgresDB(connStr string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresDB{db}, nil
}

func (db *PostgresDB) CreateUser(name, email, passwordHash string, role models.Role) (*models.User, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = $1", email).Scan(&count)
	if err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	err = db.QueryRow(
		"INSERT INTO users (name, email, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE email = $1`, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	err := db.QueryRow(`
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE id = $1`,
		id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (db *PostgresDB) GetAllUsers(excludeUserID int64) ([]*models.User, error) {
	rows, err := db.Query(`
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id != $1
		ORDER BY name`, excludeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (db *PostgresDB) CreateMessage(req models.SendRequest) (*models.Message, error) {
	if req.SenderID == req.ReceiverID {
		return nil, ErrSelfMessage
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}

	sender, err := db.GetUserByID(req.SenderID)
	if err != nil {
		return nil, err
	}

	receiver, err := db.GetUserByID(req.ReceiverID)
	if err != nil {
		return nil, err
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = models.MessageTypeGeneral
	}

	message := &models.Message{
		SenderID:    req.SenderID,
		ReceiverID:  req.ReceiverID,
		PostID:      req.PostID,
		Subject:     req.Subject,
		Content:     req.Content,
		MessageType: msgType,
		Status:      models.StatusUnread,
		CreatedAt:   time.Now().UTC(),
	}

	err = db.QueryRow(
		`INSERT INTO messages (sender_id, receiver_id, post_id, subject, content, message_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		message.SenderID, message.ReceiverID, message.PostID, message.Subject,
		message.Content, message.MessageType, message.Status, message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		return nil, err
	}

	senderRef := sender.Ref()
	receiverRef := receiver.Ref()
	message.Sender = &senderRef
	message.Receiver = &receiverRef

	return message, nil
}

// messageSelect joins both participant snapshots onto each row so the
// API can return denormalized messages in one query.
const messageSelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.post_id, m.subject, m.content,
	       m.message_type, m.status, m.created_at,
	       s.name, s.email, r.name, r.email
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id`

func (db *PostgresDB) scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var msg models.Message
	var postID sql.NullInt64
	var sender, receiver models.UserRef

	err := row.Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &postID, &msg.Subject, &msg.Content,
		&msg.MessageType, &msg.Status, &msg.CreatedAt,
		&sender.Name, &sender.Email, &receiver.Name, &receiver.Email,
	)
	if err != nil {
		return nil, err
	}

	if postID.Valid {
		msg.PostID = &postID.Int64
	}
	sender.ID = msg.SenderID
	receiver.ID = msg.ReceiverID
	msg.Sender = &sender
	msg.Receiver = &receiver

	return &msg, nil
}

func (db *PostgresDB) GetInbox(userID int64) ([]*models.Message, error) {
	rows, err := db.Query(
		messageSelect+" WHERE m.receiver_id = $1 ORDER BY m.created_at DESC, m.id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanMessages(rows)
}

func (db *PostgresDB) GetSent(userID int64) ([]*models.Message, error) {
	rows, err := db.Query(
		messageSelect+" WHERE m.sender_id = $1 ORDER BY m.created_at DESC, m.id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanMessages(rows)
}

func (db *PostgresDB) GetThread(userID, otherUserID int64) ([]*models.Message, error) {
	rows, err := db.Query(
		messageSelect+` WHERE (m.sender_id = $1 AND m.receiver_id = $2)
		   OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at ASC, m.id ASC`,
		userID, otherUserID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return db.scanMessages(rows)
}

func (db *PostgresDB) GetMessageByID(messageID int64) (*models.Message, error) {
	msg, err := scanMessage(db.QueryRow(messageSelect+" WHERE m.id = $1", messageID))
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// MarkMessageRead is idempotent: updating an already-read message
// still matches the row and is a no-op.
func (db *PostgresDB) MarkMessageRead(messageID int64) error {
	result, err := db.Exec(
		"UPDATE messages SET status = $1 WHERE id = $2",
		models.StatusRead, messageID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// MarkThreadRead flips every unread message addressed to userID within
// the {userID, otherUserID} conversation. Returns the number updated.
func (db *PostgresDB) MarkThreadRead(userID, otherUserID int64) (int64, error) {
	result, err := db.Exec(
		"UPDATE messages SET status = $1 WHERE receiver_id = $2 AND sender_id = $3 AND status = $4",
		models.StatusRead, userID, otherUserID, models.StatusUnread,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
