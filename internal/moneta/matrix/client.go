// Package matrix provides the Matrix chat transport for Moneta.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/moneta-bot/moneta/internal/moneta/kvstore"
)

// Config holds Matrix client configuration.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	DeviceID    string
	// SyncStore persists the sync position (next_batch) across restarts.
	// When nil, an in-memory store is used and all room history is
	// replayed on every restart.
	SyncStore kvstore.Store
}

// Message is an inbound chat message stripped down to what the engine
// needs.
type Message struct {
	EventID   string
	RoomID    string
	Sender    string
	Body      string
	Voice     bool
	Timestamp time.Time
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message)

// Client wraps the mautrix client.
type Client struct {
	client     *mautrix.Client
	config     *Config
	stopCh     chan struct{}
	msgHandler MessageHandler
}

// New creates a Matrix client.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}
	if config.DeviceID != "" {
		client.DeviceID = id.DeviceID(config.DeviceID)
	}

	c := &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}

	// Resume from the last sync position after a restart instead of
	// replaying old messages, which would re-run commands.
	if config.SyncStore != nil {
		client.Store = newKVSyncStore(config.SyncStore)
		slog.Info("Matrix sync store: using persistent store")
	} else {
		slog.Warn("Matrix sync store: none configured, history will replay on restart")
	}

	return c, nil
}

// Start begins syncing with the homeserver.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	c.msgHandler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)
	syncer.OnEventType(event.StateMember, c.handleInvite)

	// Sync in the background with exponential back-off reconnection.
	// Without retries a transient homeserver error would silently kill
	// the sync goroutine and leave the bot deaf to all new messages.
	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			backoff = backoffMin
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				slog.Error("Matrix sync stopped; reconnecting", "err", err, "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returned nil — only happens on a clean StopSync() call.
			return
		}
	}()

	return nil
}

// Stop stops the client.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendMessage sends a plain text message to a room.
func (c *Client) SendMessage(ctx context.Context, roomID, message string) error {
	_, err := c.client.SendText(ctx, id.RoomID(roomID), message)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendMarkdown sends message rendered as HTML with the raw text as
// fallback body.
func (c *Client) SendMarkdown(ctx context.Context, roomID, message string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          message,
		Format:        event.FormatHTML,
		FormattedBody: markdownToHTML(message),
	}

	_, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send formatted message: %w", err)
	}
	return nil
}

// ReplyToMessage sends a reply threaded onto a specific message.
func (c *Client) ReplyToMessage(ctx context.Context, roomID, eventID, message string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          message,
		Format:        event.FormatHTML,
		FormattedBody: markdownToHTML(message),
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{
				EventID: id.EventID(eventID),
			},
		},
	}

	_, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// SendNotice sends a notice (less intrusive than a normal message).
func (c *Client) SendNotice(ctx context.Context, roomID, message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}

	_, err := c.client.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}
	return nil
}

// SetTyping sets the typing indicator while a command executes.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	_, err := c.client.UserTyping(ctx, id.RoomID(roomID), typing, timeout)
	if err != nil {
		return fmt.Errorf("failed to set typing: %w", err)
	}
	return nil
}

// GetUserID returns the bot's user ID.
func (c *Client) GetUserID() string {
	return c.config.UserID
}

// GetDisplayName gets a user's display name.
func (c *Client) GetDisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.client.GetProfile(ctx, id.UserID(userID))
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.DisplayName, nil
}

// RoomIsDirect reports whether the room has exactly two joined members,
// which is how direct chats look to the bot.
func (c *Client) RoomIsDirect(ctx context.Context, roomID string) (bool, error) {
	members, err := c.client.JoinedMembers(ctx, id.RoomID(roomID))
	if err != nil {
		return false, fmt.Errorf("failed to list members: %w", err)
	}
	return len(members.Joined) == 2, nil
}

func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}

	msgContent := evt.Content.AsMessage()
	if msgContent == nil {
		return
	}

	// Voice notes arrive as m.audio with the transcript (when the
	// client produced one) in the body.
	var voice bool
	switch msgContent.MsgType {
	case event.MsgText:
	case event.MsgAudio:
		voice = true
	default:
		return
	}
	if msgContent.Body == "" {
		return
	}

	if c.msgHandler != nil {
		c.msgHandler(ctx, &Message{
			EventID:   evt.ID.String(),
			RoomID:    evt.RoomID.String(),
			Sender:    evt.Sender.String(),
			Body:      msgContent.Body,
			Voice:     voice,
			Timestamp: time.UnixMilli(evt.Timestamp),
		})
	}
}

// handleInvite accepts room invites addressed to the bot so users can
// start a direct chat without operator intervention.
func (c *Client) handleInvite(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != c.config.UserID {
		return
	}
	member := evt.Content.AsMember()
	if member == nil || member.Membership != event.MembershipInvite {
		return
	}

	if err := c.joinRoom(ctx, evt.RoomID); err != nil {
		slog.Error("failed to join room on invite", "room", evt.RoomID, "err", err)
	}
}

func (c *Client) joinRoom(ctx context.Context, roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(ctx, roomID)
	if err != nil {
		// M_FORBIDDEN is what homeservers return when the bot is already
		// a member. Use mautrix's typed error check instead of string
		// matching.
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
