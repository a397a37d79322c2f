// Package chat implements the client-side conversation engine: a per-session
// state machine that owns the message log, drives the streaming transport,
// and reconciles agent-pushed cart snapshots.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diogo/shopchat/internal/api"
	"github.com/diogo/shopchat/internal/cart"
	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
)

// State is the conversation state machine. One enum instead of scattered
// booleans, so "streaming with no streaming id" is unrepresentable.
type State int

const (
	// StateIdle: no send in flight; input enabled.
	StateIdle State = iota
	// StateSending: request issued, no chunk received yet.
	StateSending
	// StateStreaming: at least one chunk received, stream still open.
	StateStreaming
)

// Controller owns one conversation's message log. At most one session's log
// is current at a time; switching sessions invalidates everything in flight
// via the generation counter.
type Controller struct {
	client api.StoreClientInterface
	cart   *cart.Store
	logger zerolog.Logger

	mu        sync.Mutex
	sessionID string
	// generation is bumped on every session switch, history load, and clear.
	// Stream and history callbacks capture the generation at issue time and
	// discard themselves if it has moved on (stale-response guard).
	generation  uint64
	messages    []models.Message
	state       State
	streamingID string
	cancel      context.CancelFunc
	onChange    func()
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the structured logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithOnChange registers a hook invoked after every visible state change,
// without the controller lock held. The TUI uses it to re-render.
func WithOnChange(fn func()) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// NewController creates a controller bound to a client and the shared cart
func NewController(client api.StoreClientInterface, cartStore *cart.Store, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		cart:   cartStore,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

// SendMessage appends the user's message optimistically, opens a stream for
// the agent's reply, and fills the placeholder as chunks arrive.
//
// Precondition failures (empty text, no user, a stream already in flight) are
// rejected synchronously with a PreconditionError; no network call is made.
// Stream failures never propagate past the controller: the placeholder ends
// up showing a fallback string and the state returns to Idle so the shopper
// can retry.
func (c *Controller) SendMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apierrors.NewPreconditionError(apierrors.ErrEmptyMessage)
	}

	userID := c.client.UserID()
	if userID == "" {
		return apierrors.NewPreconditionError(apierrors.ErrNotAuthenticated)
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return apierrors.NewPreconditionError(apierrors.ErrStreamBusy)
	}

	now := time.Now()
	userMsg := models.Message{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    models.SenderUser,
		Timestamp: now,
	}
	placeholder := models.Message{
		ID:        uuid.New().String(),
		Sender:    models.SenderAgent,
		Timestamp: now,
	}
	c.messages = append(c.messages, userMsg, placeholder)

	c.state = StateSending
	c.streamingID = placeholder.ID

	gen := c.generation
	sessionID := c.sessionID
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.notifyChange()

	// Callbacks arrive sequentially from the transport's read loop. Each one
	// re-checks the generation: a stream that outlived a session switch must
	// not touch the new session's log.
	c.client.Stream(ctx, userID, text, sessionID, api.StreamCallbacks{
		OnChunk: func(content string) {
			c.mu.Lock()
			if gen != c.generation {
				c.mu.Unlock()
				return
			}
			c.state = StateStreaming
			c.appendToMessageLocked(placeholder.ID, content)
			c.mu.Unlock()
			c.notifyChange()
		},
		OnComplete: func(finalText string, products []models.ProductCard, cartSummary *models.CartSummary) {
			c.mu.Lock()
			if gen != c.generation {
				c.mu.Unlock()
				return
			}
			if msg := c.findMessageLocked(placeholder.ID); msg != nil {
				// The displayed text is the chunk concatenation; final_text
				// only fills in when the backend skipped chunking entirely.
				if msg.Text == "" {
					msg.Text = finalText
				}
				msg.Products = products
			}
			c.state = StateIdle
			c.streamingID = ""
			c.cancel = nil
			c.mu.Unlock()

			if cartSummary != nil {
				c.cart.ApplySnapshot(*cartSummary)
			}
			c.notifyChange()
		},
		OnError: func(err error) {
			c.mu.Lock()
			if gen != c.generation {
				c.mu.Unlock()
				return
			}
			if msg := c.findMessageLocked(placeholder.ID); msg != nil {
				msg.Text = models.FallbackErrorText
			}
			c.state = StateIdle
			c.streamingID = ""
			c.cancel = nil
			c.mu.Unlock()

			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("send failed")
			c.notifyChange()
		},
	})

	return nil
}

// LoadHistory makes sessionID the current session and wholesale-replaces the
// in-memory log with the persisted one. Safe to call repeatedly and during
// an in-flight stream or load: each call bumps the generation, so whichever
// response belongs to a session that is no longer selected gets discarded.
//
// A fetch failure is logged and swallowed; the log starts empty and the
// conversation continues in memory.
func (c *Controller) LoadHistory(sessionID string) {
	c.mu.Lock()
	c.invalidateLocked()
	c.sessionID = sessionID
	gen := c.generation
	c.mu.Unlock()

	c.notifyChange()

	messages, err := c.client.GetHistory(sessionID)

	c.mu.Lock()
	if gen != c.generation {
		// A newer switch or clear happened while we were fetching
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load history")
		c.messages = nil
	} else {
		c.messages = messages
	}
	c.mu.Unlock()

	c.notifyChange()
}

// ClearHistory deletes the persisted log for the current session and resets
// the in-memory log. Idempotent; a deletion failure is logged and swallowed,
// the in-memory log is cleared regardless.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	c.invalidateLocked()
	sessionID := c.sessionID
	c.messages = nil
	c.mu.Unlock()

	if sessionID != "" {
		if err := c.client.ClearHistory(sessionID); err != nil {
			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to clear persisted history")
		}
	}

	c.notifyChange()
}

// CancelStream abandons the in-flight send, if any. The placeholder keeps
// whatever chunks already arrived; the state machine returns to Idle so the
// shopper can type again.
func (c *Controller) CancelStream() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.invalidateLocked()
	c.mu.Unlock()

	c.notifyChange()
}

// Reset abandons any in-flight work and empties the controller without
// touching persisted state. Used when the current session was deleted out
// from under us and a fresh one is being handed over.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.invalidateLocked()
	c.sessionID = ""
	c.messages = nil
	c.mu.Unlock()

	c.notifyChange()
}

// invalidateLocked bumps the generation, cancels the in-flight stream if any,
// and forces the state machine back to Idle. Callers hold c.mu.
func (c *Controller) invalidateLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.streamingID = ""
}

func (c *Controller) findMessageLocked(id string) *models.Message {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return &c.messages[i]
		}
	}
	return nil
}

func (c *Controller) appendToMessageLocked(id, content string) {
	if msg := c.findMessageLocked(id); msg != nil {
		msg.Text += content
	}
}

// Messages returns a copy of the current log
func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages := make([]models.Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}

// SessionID returns the currently selected session id
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State returns the current conversation state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsLoading reports whether a send is in flight (input should be disabled)
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// IsStreaming reports whether chunks are actively arriving
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateStreaming
}

// StreamingID returns the id of the message being streamed into, or "" when
// no stream is active. The TUI uses it for the typing cursor.
func (c *Controller) StreamingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamingID
}

// Close cancels any in-flight stream. The controller is not reusable after.
func (c *Controller) Close() {
	c.mu.Lock()
	c.invalidateLocked()
	c.mu.Unlock()
}
