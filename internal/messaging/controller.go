package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/givebridge/messaging/internal/logger"
	"github.com/givebridge/messaging/internal/models"
)

// ViewMode is one of the four messaging views.
type ViewMode string

const (
	ViewConversations ViewMode = "conversations"
	ViewInbox         ViewMode = "inbox"
	ViewSent          ViewMode = "sent"
	ViewThread        ViewMode = "conversation"
)

var (
	// ErrInvalidTransition is returned for navigation the view does not
	// offer, e.g. jumping from an open conversation straight to the
	// inbox. The only way out of a conversation is Back.
	ErrInvalidTransition = errors.New("view transition not allowed")

	// ErrEmptyDraft is returned when a reply is submitted with an empty
	// or whitespace-only compose buffer. No backend call is made and
	// the buffer is left untouched.
	ErrEmptyDraft = errors.New("reply content must not be empty")

	// ErrNoThread is returned when a reply is submitted outside an open
	// conversation.
	ErrNoThread = errors.New("no conversation is open")
)

// Controller drives the messaging views for one signed-in user: which
// view is active, what data it shows, and which store calls fire on
// each transition. It exclusively owns the open thread and selected
// conversation.
//
// Fetch failures degrade to an empty view and are only logged; a
// response that arrives after the view has moved on is discarded.
type Controller struct {
	store    Store
	viewerID int64
	cfg      RoleConfig
	log      *logger.Logger

	mu            sync.Mutex
	mode          ViewMode
	gen           uint64
	conversations []models.ConversationSummary
	listing       []models.Message
	thread        *Thread
}

// NewController builds a controller in the conversations view. Call
// Refresh to load the initial summaries.
func NewController(store Store, viewerID int64, cfg RoleConfig) *Controller {
	return &Controller{
		store:    store,
		viewerID: viewerID,
		cfg:      cfg,
		log:      logger.New("messaging"),
		mode:     ViewConversations,
	}
}

// Mode returns the active view.
func (c *Controller) Mode() ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Config returns the role configuration the controller renders with.
func (c *Controller) Config() RoleConfig {
	return c.cfg
}

// ViewerID returns the signed-in user the views are computed for.
func (c *Controller) ViewerID() int64 {
	return c.viewerID
}

// Conversations returns the loaded summaries, newest activity first.
func (c *Controller) Conversations() []models.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversations
}

// Listing returns the loaded inbox or sent rows, newest first.
func (c *Controller) Listing() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listing
}

// Thread returns the open conversation view, or nil outside of one.
func (c *Controller) Thread() *Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.thread
}

// begin commits a view transition: clears data belonging to the old
// view and invalidates any in-flight fetch.
func (c *Controller) begin(mode ViewMode) uint64 {
	c.mode = mode
	c.conversations = nil
	c.listing = nil
	if mode != ViewThread {
		c.thread = nil
	}
	c.gen++
	return c.gen
}

// current reports whether a fetch started at generation gen may still
// commit its result.
func (c *Controller) current(gen uint64) bool {
	return gen == c.gen
}

// Refresh reloads the conversations list. Valid in the conversations
// view only; other views re-enter it through their own transitions.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ViewConversations {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	gen := c.begin(ViewConversations)
	c.mu.Unlock()

	return c.fetchConversations(ctx, gen)
}

// ShowConversations navigates laterally from the inbox or sent views.
func (c *Controller) ShowConversations(ctx context.Context) error {
	c.mu.Lock()
	if c.mode == ViewThread {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	gen := c.begin(ViewConversations)
	c.mu.Unlock()

	return c.fetchConversations(ctx, gen)
}

func (c *Controller) fetchConversations(ctx context.Context, gen uint64) error {
	summaries, err := c.store.Conversations(ctx, c.viewerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return nil
	}
	if err != nil {
		c.log.Error("fetch conversations for user %d: %v", c.viewerID, err)
		return nil
	}
	c.conversations = summaries
	return nil
}

// ShowInbox navigates to the received-messages view.
func (c *Controller) ShowInbox(ctx context.Context) error {
	return c.showListing(ctx, ViewInbox, c.store.Inbox)
}

// ShowSent navigates to the sent-messages view.
func (c *Controller) ShowSent(ctx context.Context) error {
	return c.showListing(ctx, ViewSent, c.store.Sent)
}

func (c *Controller) showListing(ctx context.Context, mode ViewMode, fetch func(context.Context, int64) ([]models.Message, error)) error {
	c.mu.Lock()
	if c.mode == ViewThread {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	gen := c.begin(mode)
	c.mu.Unlock()

	messages, err := fetch(ctx, c.viewerID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return nil
	}
	if err != nil {
		c.log.Error("fetch %s for user %d: %v", mode, c.viewerID, err)
		return nil
	}
	c.listing = messages
	return nil
}

// OpenThread opens the conversation with the given counterpart: fetches
// the thread, then marks every message addressed to the viewer as read.
// Read-marking is fire-and-forget; it runs after the thread is ready to
// render, and a failure is logged, never surfaced.
func (c *Controller) OpenThread(ctx context.Context, otherUser models.UserRef) error {
	c.mu.Lock()
	if c.mode == ViewThread {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	gen := c.begin(ViewThread)
	c.mu.Unlock()

	messages, err := c.store.Thread(ctx, c.viewerID, otherUser.ID)

	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.log.Error("fetch thread %d/%d: %v", c.viewerID, otherUser.ID, err)
		messages = nil
	}
	c.thread = NewThread(c.viewerID, otherUser, messages)
	c.mu.Unlock()

	if err := c.store.MarkConversationRead(ctx, c.viewerID, otherUser.ID); err != nil {
		c.log.Warn("mark conversation %d/%d read: %v", c.viewerID, otherUser.ID, err)
	}
	return nil
}

// Back leaves the open conversation and returns to the conversations
// list, re-fetching the summaries.
func (c *Controller) Back(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ViewThread {
		c.mu.Unlock()
		return ErrInvalidTransition
	}
	gen := c.begin(ViewConversations)
	c.mu.Unlock()

	return c.fetchConversations(ctx, gen)
}

// SendReply submits the thread's compose buffer. A whitespace-only
// draft is rejected before any backend call. On success the buffer
// clears and the thread is re-fetched so the rendered list reflects the
// backend's acknowledged state; on failure the buffer is preserved and
// the error is kept for inline display.
func (c *Controller) SendReply(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ViewThread || c.thread == nil {
		c.mu.Unlock()
		return ErrNoThread
	}
	t := c.thread
	if !t.CanSend() {
		c.mu.Unlock()
		return ErrEmptyDraft
	}
	t.sending = true
	t.sendErr = nil
	req := models.SendRequest{
		SenderID:    c.viewerID,
		ReceiverID:  t.otherUserID,
		Content:     t.draft,
		MessageType: models.MessageTypeGeneral,
	}
	gen := c.gen
	c.mu.Unlock()

	_, err := c.store.Send(ctx, req)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.sending = false
		if c.current(gen) {
			t.sendErr = err
		}
		return err
	}

	messages, fetchErr := c.store.Thread(ctx, c.viewerID, t.otherUserID)

	c.mu.Lock()
	defer c.mu.Unlock()
	t.sending = false
	t.draft = ""
	if !c.current(gen) {
		return nil
	}
	if fetchErr != nil {
		// The send went through; the thread stays stale-but-consistent
		// until the next fetch.
		c.log.Error("refresh thread %d/%d after send: %v", c.viewerID, t.otherUserID, fetchErr)
		return nil
	}
	t.SetMessages(messages)
	return nil
}

// Notify is the hook for live-update hints (e.g. a websocket event
// announcing a new message from senderID). It only re-fetches the view
// that could be affected; delivery itself stays fetch-based.
func (c *Controller) Notify(ctx context.Context, senderID int64) {
	c.mu.Lock()
	mode := c.mode
	var other models.UserRef
	if c.thread != nil {
		other = c.thread.otherUser
	}
	gen := c.gen
	c.mu.Unlock()

	switch {
	case mode == ViewThread && other.ID == senderID:
		messages, err := c.store.Thread(ctx, c.viewerID, senderID)

		c.mu.Lock()
		if !c.current(gen) || c.thread == nil {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.mu.Unlock()
			c.log.Error("refresh thread %d/%d on notify: %v", c.viewerID, senderID, err)
			return
		}
		c.thread.SetMessages(messages)
		c.mu.Unlock()

		// New messages in an open thread are read on arrival.
		if err := c.store.MarkConversationRead(ctx, c.viewerID, senderID); err != nil {
			c.log.Warn("mark conversation %d/%d read: %v", c.viewerID, senderID, err)
		}

	case mode == ViewConversations:
		c.fetchConversations(ctx, gen)
	}
}
