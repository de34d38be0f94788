package chatlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"alumni-chat/internal/chatlog"
	"alumni-chat/internal/connectivity"
	"alumni-chat/internal/mocks"
	"alumni-chat/internal/models"
	"alumni-chat/internal/store"
)

var alice = chatlog.Identity{ID: "u-alice", DisplayName: "Alice", Role: "alumni"}

func newTestLog(writer store.Writer, monitor *connectivity.Monitor) *chatlog.Log {
	if monitor == nil {
		monitor = connectivity.NewMonitor()
	}
	l := chatlog.New("global", writer, monitor)
	l.SetClock(func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }, time.UTC)
	return l
}

func ts(t time.Time) *time.Time { return &t }

func TestApplySnapshotKeepsTimestampOrder(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.ApplySnapshot([]models.Message{
		{ID: "c", Timestamp: ts(base.Add(2 * time.Hour))},
		{ID: "pending"},
		{ID: "a", Timestamp: ts(base)},
		{ID: "b", Timestamp: ts(base.Add(time.Hour))},
	})

	var ids []string
	for _, m := range l.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "pending"}, ids)
}

func TestApplySnapshotStableForEqualTimestamps(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)

	same := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.ApplySnapshot([]models.Message{
		{ID: "first", Timestamp: ts(same)},
		{ID: "second", Timestamp: ts(same)},
	})

	msgs := l.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].ID)
	assert.Equal(t, "second", msgs[1].ID)
}

func TestSendForwardsAppend(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)

	writer.On("Append", mock.Anything, "global", mock.MatchedBy(func(msg models.Message) bool {
		return msg.Text == "hello" && !msg.Edited && len(msg.Reactions) == 0 &&
			msg.SenderID == alice.ID && msg.SenderName == "Alice" && msg.Role == "alumni"
	})).Return(nil).Once()

	require.NoError(t, l.Send(context.Background(), alice, "  hello  ", nil))
	writer.AssertExpectations(t)
}

func TestSendRejectsEmptyText(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)

	assert.ErrorIs(t, l.Send(context.Background(), alice, "   \n\t ", nil), chatlog.ErrEmptyMessage)
	writer.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendWhileOfflineThenOnline(t *testing.T) {
	writer := new(mocks.WriterMock)
	monitor := connectivity.NewMonitor()
	l := newTestLog(writer, monitor)

	monitor.SetOffline()
	assert.ErrorIs(t, l.Send(context.Background(), alice, "hello", nil), chatlog.ErrOffline)
	writer.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)

	monitor.SetOnline()
	writer.On("Append", mock.Anything, "global", mock.MatchedBy(func(msg models.Message) bool {
		return msg.Text == "hello" && !msg.Edited && len(msg.Reactions) == 0
	})).Return(nil).Once()
	require.NoError(t, l.Send(context.Background(), alice, "hello", nil))
	writer.AssertExpectations(t)
}

func TestSendDoesNotTouchMirror(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	writer.On("Append", mock.Anything, "global", mock.Anything).Return(nil).Once()

	require.NoError(t, l.Send(context.Background(), alice, "hello", nil))
	assert.Empty(t, l.Messages(), "no optimistic local echo before the snapshot round-trip")
}

func TestEditForwardsPatch(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{ID: "m1", SenderID: alice.ID, Text: "old"}})

	writer.On("Patch", mock.Anything, "m1", mock.MatchedBy(func(fields store.PatchFields) bool {
		return fields[store.FieldText] == "new" && fields[store.FieldEdited] == true && fields[store.FieldEditedAt] != nil
	})).Return(nil).Once()

	require.NoError(t, l.Edit(context.Background(), alice, "m1", "new"))
	writer.AssertExpectations(t)
}

func TestEditSameTextIsSilentNoOp(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{ID: "m1", SenderID: alice.ID, Text: "same"}})

	require.NoError(t, l.Edit(context.Background(), alice, "m1", "  same  "))
	require.NoError(t, l.Edit(context.Background(), alice, "m1", ""))
	writer.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditByNonAuthorFailsClosed(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{ID: "m1", SenderID: "someone-else", Text: "old"}})

	assert.ErrorIs(t, l.Edit(context.Background(), alice, "m1", "new"), chatlog.ErrNotAuthor)
	writer.AssertNotCalled(t, "Patch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditUnknownMessage(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)
	assert.ErrorIs(t, l.Edit(context.Background(), alice, "ghost", "new"), chatlog.ErrMessageNotFound)
}

func TestRemoveForwardsRemove(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{ID: "m1", SenderID: alice.ID}})

	writer.On("Remove", mock.Anything, "m1").Return(nil).Once()
	require.NoError(t, l.Remove(context.Background(), alice, "m1"))
	writer.AssertExpectations(t)
}

func TestRemoveByNonAuthorFailsClosed(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{ID: "m1", SenderID: "someone-else"}})

	assert.ErrorIs(t, l.Remove(context.Background(), alice, "m1"), chatlog.ErrNotAuthor)
	writer.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestToggleReactionPatchesFullReplacement(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{
		ID:        "m1",
		SenderID:  "someone-else",
		Reactions: map[string][]string{"👍": {"u-bob"}},
	}})

	writer.On("Patch", mock.Anything, "m1", mock.MatchedBy(func(fields store.PatchFields) bool {
		next, ok := fields[store.FieldReactions].(map[string][]string)
		return ok && len(next["👍"]) == 2
	})).Return(nil).Once()

	require.NoError(t, l.ToggleReaction(context.Background(), alice, "m1", "👍"))
	writer.AssertExpectations(t)
}

func TestToggleReactionOffEmptiesKey(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)
	l.ApplySnapshot([]models.Message{{
		ID:        "m1",
		SenderID:  "someone-else",
		Reactions: map[string][]string{"👍": {alice.ID}},
	}})

	writer.On("Patch", mock.Anything, "m1", mock.MatchedBy(func(fields store.PatchFields) bool {
		next, ok := fields[store.FieldReactions].(map[string][]string)
		if !ok {
			return false
		}
		_, present := next["👍"]
		return !present
	})).Return(nil).Once()

	require.NoError(t, l.ToggleReaction(context.Background(), alice, "m1", "👍"))
	writer.AssertExpectations(t)
}

func TestWriteFailurePropagatesWithoutRollback(t *testing.T) {
	writer := new(mocks.WriterMock)
	l := newTestLog(writer, nil)

	writer.On("Append", mock.Anything, "global", mock.Anything).Return(assert.AnError).Once()
	assert.ErrorIs(t, l.Send(context.Background(), alice, "hello", nil), assert.AnError)
	assert.Empty(t, l.Messages())
}

func TestReplySnapshotStaysFrozenAcrossEdit(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	l.ApplySnapshot([]models.Message{
		{ID: "a", SenderID: "u-bob", SenderName: "Bob", Text: "original", Timestamp: ts(base)},
	})

	ref := l.ReplySnapshot("a")
	require.NotNil(t, ref)
	assert.Equal(t, "original", ref.Text)

	// Message A gets edited and the reply lands with the frozen snapshot.
	l.ApplySnapshot([]models.Message{
		{ID: "a", SenderID: "u-bob", SenderName: "Bob", Text: "changed", Edited: true, Timestamp: ts(base)},
		{ID: "b", SenderID: alice.ID, Text: "reply", ReplyTo: ref, Timestamp: ts(base.Add(time.Minute))},
	})

	msgs := l.Messages()
	require.Len(t, msgs, 2)
	require.NotNil(t, msgs[1].ReplyTo)
	assert.Equal(t, "original", msgs[1].ReplyTo.Text)
	assert.Equal(t, "changed", msgs[0].Text)
}

func TestOnViewFiresAfterSnapshot(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)

	var views []models.ChannelView
	l.OnView(func(v models.ChannelView) { views = append(views, v) })

	l.ApplySnapshot([]models.Message{
		{ID: "a", SenderID: "u-bob", SenderName: "Bob", Timestamp: ts(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))},
	})

	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].TodayCount)
	require.Len(t, views[0].Participants, 1)
	assert.Equal(t, "Bob", views[0].Participants[0].Name)
}

func TestFollowAppliesSnapshotsUntilUnsubscribe(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)
	sub := mocks.NewSubscriptionFake()

	done := make(chan error, 1)
	go func() { done <- l.Follow(sub) }()

	sub.Push([]models.Message{{ID: "a", SenderID: "u-bob"}})
	sub.Close(nil)

	require.NoError(t, <-done)
	assert.Len(t, l.Messages(), 1)
}

func TestFollowReturnsStreamError(t *testing.T) {
	l := newTestLog(new(mocks.WriterMock), nil)
	sub := mocks.NewSubscriptionFake()

	done := make(chan error, 1)
	go func() { done <- l.Follow(sub) }()

	sub.Close(assert.AnError)
	assert.ErrorIs(t, <-done, assert.AnError)
}
