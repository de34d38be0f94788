package chatlog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"alumni-chat/internal/models"
	"alumni-chat/internal/reactions"
	"alumni-chat/internal/store"
	"alumni-chat/internal/view"
)

var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrOffline         = errors.New("client is offline")
	ErrNotAuthor       = errors.New("not the message author")
	ErrMessageNotFound = errors.New("message not found")
)

// Identity is the acting user for one mutation. It is read per call and
// never cached here.
type Identity struct {
	ID          string
	DisplayName string
	Role        string
}

// ConnectivitySource reports whether sends may reach the store.
type ConnectivitySource interface {
	Online() bool
}

// Log is the in-memory mirror of one channel. The store's snapshot stream is
// the only thing that mutates it: every mutation method validates, forwards
// a write to the store, and leaves the mirror untouched until the change
// echoes back through ApplySnapshot. There is no optimistic local state to
// roll back when a write fails.
type Log struct {
	channelID    string
	writer       store.Writer
	connectivity ConnectivitySource
	now          func() time.Time
	loc          *time.Location

	mu        sync.RWMutex
	msgs      []models.Message
	listeners []func(models.ChannelView)
}

// New constructs a Log for one channel.
func New(channelID string, writer store.Writer, connectivity ConnectivitySource) *Log {
	return &Log{
		channelID:    channelID,
		writer:       writer,
		connectivity: connectivity,
		now:          time.Now,
		loc:          time.Local,
	}
}

// ApplySnapshot replaces the mirror wholesale with the store's latest
// snapshot, re-sorted by timestamp with pending messages last. It never
// fails; listeners receive the rebuilt view afterwards.
func (l *Log) ApplySnapshot(msgs []models.Message) {
	sorted := append([]models.Message(nil), msgs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp, sorted[j].Timestamp
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})

	l.mu.Lock()
	l.msgs = sorted
	listeners := append(([]func(models.ChannelView))(nil), l.listeners...)
	l.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	rendered := l.View()
	for _, fn := range listeners {
		fn(rendered)
	}
}

// OnView registers a listener invoked with the rebuilt view model after
// every applied snapshot.
func (l *Log) OnView(fn func(models.ChannelView)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Messages returns a copy of the current mirror.
func (l *Log) Messages() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Message(nil), l.msgs...)
}

// View derives the current render model.
func (l *Log) View() models.ChannelView {
	return view.Build(l.Messages(), l.now(), l.loc)
}

// Send validates and forwards a new message to the store. The message
// becomes visible only once it echoes back through the snapshot stream.
func (l *Log) Send(ctx context.Context, actor Identity, text string, replyTo *models.ReplyRef) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if !l.connectivity.Online() {
		return ErrOffline
	}

	msg := models.Message{
		ChannelID:  l.channelID,
		Text:       trimmed,
		SenderID:   actor.ID,
		SenderName: actor.DisplayName,
		Role:       actor.Role,
		Edited:     false,
		Reactions:  map[string][]string{},
		ReplyTo:    replyTo,
	}
	return l.writer.Append(ctx, l.channelID, msg)
}

// Edit forwards a text change for the actor's own message. Editing to the
// same text or to nothing cancels silently with no write. Edits are not
// gated by connectivity.
func (l *Log) Edit(ctx context.Context, actor Identity, messageID, newText string) error {
	current, err := l.authorOnly(actor, messageID)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(newText)
	if trimmed == "" || trimmed == current.Text {
		return nil
	}

	return l.writer.Patch(ctx, messageID, store.PatchFields{
		store.FieldText:     trimmed,
		store.FieldEdited:   true,
		store.FieldEditedAt: l.now(),
	})
}

// Remove forwards a hard delete of the actor's own message. Replies keep
// their denormalized snapshot of it.
func (l *Log) Remove(ctx context.Context, actor Identity, messageID string) error {
	if _, err := l.authorOnly(actor, messageID); err != nil {
		return err
	}
	return l.writer.Remove(ctx, messageID)
}

// ToggleReaction computes the toggled reactions map and forwards it as a
// full replacement. Any participant may react to any message.
func (l *Log) ToggleReaction(ctx context.Context, actor Identity, messageID, emoji string) error {
	msg, ok := l.find(messageID)
	if !ok {
		return ErrMessageNotFound
	}

	next := reactions.Toggle(msg.Reactions, emoji, actor.ID)
	return l.writer.Patch(ctx, messageID, store.PatchFields{
		store.FieldReactions: next,
	})
}

// ReplySnapshot captures the denormalized reply reference for a message at
// reply time, or nil if the message is gone.
func (l *Log) ReplySnapshot(messageID string) *models.ReplyRef {
	msg, ok := l.find(messageID)
	if !ok {
		return nil
	}
	return &models.ReplyRef{MessageID: msg.ID, SenderName: msg.SenderName, Text: msg.Text}
}

// Follow pumps a subscription into the mirror until it ends. It returns nil
// on a clean unsubscribe and the stream error when the subscription itself
// failed, which invalidates the whole mirror.
func (l *Log) Follow(sub store.Subscription) error {
	for snapshot := range sub.Snapshots() {
		l.ApplySnapshot(snapshot)
	}
	select {
	case err := <-sub.Err():
		return err
	default:
		return nil
	}
}

// authorOnly fails closed: the surface hides edit and delete controls from
// non-authors, but the guard must hold even if a request gets past it.
func (l *Log) authorOnly(actor Identity, messageID string) (models.Message, error) {
	msg, ok := l.find(messageID)
	if !ok {
		return models.Message{}, ErrMessageNotFound
	}
	if msg.SenderID != actor.ID {
		return models.Message{}, ErrNotAuthor
	}
	return msg, nil
}

func (l *Log) find(messageID string) (models.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, msg := range l.msgs {
		if msg.ID == messageID {
			return msg, true
		}
	}
	return models.Message{}, false
}

// SetClock overrides the time source and location used for edit timestamps
// and view derivation. Tests only.
func (l *Log) SetClock(now func() time.Time, loc *time.Location) {
	l.now = now
	l.loc = loc
}
