package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"alumni-chat/internal/authclient"
	"alumni-chat/internal/chatlog"
	"alumni-chat/internal/models"
	"alumni-chat/internal/store"
)

type WriterMock struct {
	mock.Mock
}

func (m *WriterMock) Append(ctx context.Context, channelID string, msg models.Message) error {
	args := m.Called(ctx, channelID, msg)
	return args.Error(0)
}

func (m *WriterMock) Patch(ctx context.Context, messageID string, fields store.PatchFields) error {
	args := m.Called(ctx, messageID, fields)
	return args.Error(0)
}

func (m *WriterMock) Remove(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) Send(ctx context.Context, actor chatlog.Identity, text string, replyTo *models.ReplyRef) error {
	args := m.Called(ctx, actor, text, replyTo)
	return args.Error(0)
}

func (m *ChatServiceMock) Edit(ctx context.Context, actor chatlog.Identity, messageID, newText string) error {
	args := m.Called(ctx, actor, messageID, newText)
	return args.Error(0)
}

func (m *ChatServiceMock) Remove(ctx context.Context, actor chatlog.Identity, messageID string) error {
	args := m.Called(ctx, actor, messageID)
	return args.Error(0)
}

func (m *ChatServiceMock) ToggleReaction(ctx context.Context, actor chatlog.Identity, messageID, emoji string) error {
	args := m.Called(ctx, actor, messageID, emoji)
	return args.Error(0)
}

func (m *ChatServiceMock) View() models.ChannelView {
	args := m.Called()
	var v models.ChannelView
	if val := args.Get(0); val != nil {
		v = val.(models.ChannelView)
	}
	return v
}

func (m *ChatServiceMock) ReplySnapshot(messageID string) *models.ReplyRef {
	args := m.Called(messageID)
	if val := args.Get(0); val != nil {
		return val.(*models.ReplyRef)
	}
	return nil
}

type AuthClientMock struct {
	mock.Mock
}

func (m *AuthClientMock) ValidateToken(ctx context.Context, token string) (authclient.Identity, error) {
	args := m.Called(ctx, token)
	var identity authclient.Identity
	if val := args.Get(0); val != nil {
		identity = val.(authclient.Identity)
	}
	return identity, args.Error(1)
}

// SubscriptionFake is a hand-driven store.Subscription for log tests.
type SubscriptionFake struct {
	snapshots chan []models.Message
	errs      chan error
	once      sync.Once
}

func NewSubscriptionFake() *SubscriptionFake {
	return &SubscriptionFake{
		snapshots: make(chan []models.Message, 8),
		errs:      make(chan error, 1),
	}
}

func (s *SubscriptionFake) Snapshots() <-chan []models.Message { return s.snapshots }

func (s *SubscriptionFake) Err() <-chan error { return s.errs }

func (s *SubscriptionFake) Unsubscribe() { s.Close(nil) }

// Push delivers one snapshot.
func (s *SubscriptionFake) Push(msgs []models.Message) { s.snapshots <- msgs }

// Close ends the stream, optionally with a stream-fatal error.
func (s *SubscriptionFake) Close(err error) {
	s.once.Do(func() {
		if err != nil {
			s.errs <- err
		}
		close(s.snapshots)
	})
}
