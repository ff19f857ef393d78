package messaging

import (
	"strings"

	"github.com/givebridge/messaging/internal/models"
)

// Direction is a message's placement relative to the viewer.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// MessageDirection derives placement from sender_id alone; direction is
// never stored.
func MessageDirection(m models.Message, viewerID int64) Direction {
	if m.SenderID == viewerID {
		return DirectionSent
	}
	return DirectionReceived
}

// ThreadRow is one rendered message with its computed placement.
type ThreadRow struct {
	models.Message
	Direction Direction `json:"direction"`
}

// Thread is the view-model for one open conversation: the chronological
// rows, the autoscroll target, and the compose state. It holds no
// backend handle; the controller owns all I/O.
type Thread struct {
	viewerID    int64
	otherUserID int64
	otherUser   models.UserRef

	rows       []ThreadRow
	lastSeenID int64
	scrollToID int64

	draft   string
	sending bool
	sendErr error
}

// NewThread builds the view for a chronologically-ordered message list.
// The initial scroll target is the newest message.
func NewThread(viewerID int64, otherUser models.UserRef, messages []models.Message) *Thread {
	t := &Thread{
		viewerID:    viewerID,
		otherUserID: otherUser.ID,
		otherUser:   otherUser,
	}
	t.SetMessages(messages)
	return t
}

// SetMessages replaces the rendered list with a fresh fetch. The scroll
// target moves only when the newest message changed; unrelated state
// updates never trigger autoscroll.
func (t *Thread) SetMessages(messages []models.Message) {
	rows := make([]ThreadRow, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, ThreadRow{Message: m, Direction: MessageDirection(m, t.viewerID)})

		// Backfill the counterpart snapshot if the summary that opened
		// this thread lacked one.
		if t.otherUser.Name == "" {
			if ref := m.Counterpart(t.viewerID); ref != nil {
				t.otherUser = *ref
			}
		}
	}
	t.rows = rows

	if len(rows) > 0 {
		newest := rows[len(rows)-1].ID
		if newest != t.lastSeenID {
			t.lastSeenID = newest
			t.scrollToID = newest
		}
	}
}

// Rows returns the rendered messages, oldest first.
func (t *Thread) Rows() []ThreadRow {
	return t.rows
}

// OtherUser returns the counterpart's identity snapshot.
func (t *Thread) OtherUser() models.UserRef {
	return t.otherUser
}

// OtherUserID returns the counterpart's id.
func (t *Thread) OtherUserID() int64 {
	return t.otherUserID
}

// ConsumeScrollTarget returns the message to scroll to, once. The flag
// clears on read so a re-render without new messages stays put.
func (t *Thread) ConsumeScrollTarget() (int64, bool) {
	if t.scrollToID == 0 {
		return 0, false
	}
	id := t.scrollToID
	t.scrollToID = 0
	return id, true
}

// SetDraft updates the compose buffer and clears any stale send error.
func (t *Thread) SetDraft(text string) {
	t.draft = text
	t.sendErr = nil
}

// Draft returns the current compose buffer.
func (t *Thread) Draft() string {
	return t.draft
}

// CanSend reports whether the compose control should be enabled: a
// non-whitespace draft and no send in flight.
func (t *Thread) CanSend() bool {
	return !t.sending && strings.TrimSpace(t.draft) != ""
}

// Sending reports whether a send is in flight.
func (t *Thread) Sending() bool {
	return t.sending
}

// SendError returns the inline error from the last failed send, if any.
func (t *Thread) SendError() error {
	return t.sendErr
}
