package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumni-chat/internal/models"
)

func TestMessageRowDecodesJSONFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	edited := created.Add(time.Minute)
	row := messageRow{
		ID:         "m1",
		ChannelID:  "global",
		Text:       "hello",
		SenderID:   "u1",
		SenderName: "Alice",
		Role:       "alumni",
		CreatedAt:  created,
		Edited:     true,
		EditedAt:   sql.NullTime{Time: edited, Valid: true},
		Reactions:  []byte(`{"👍":["u2","u3"]}`),
		ReplyTo:    sql.NullString{String: `{"message_id":"m0","sender_name":"Bob","text":"original"}`, Valid: true},
	}

	msg, err := row.toMessage()
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	require.NotNil(t, msg.Timestamp)
	assert.True(t, msg.Timestamp.Equal(created))
	require.NotNil(t, msg.EditedAt)
	assert.Equal(t, []string{"u2", "u3"}, msg.Reactions["👍"])
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "original", msg.ReplyTo.Text)
}

func TestMessageRowDefaults(t *testing.T) {
	row := messageRow{ID: "m1", CreatedAt: time.Now()}

	msg, err := row.toMessage()
	require.NoError(t, err)
	assert.NotNil(t, msg.Reactions)
	assert.Empty(t, msg.Reactions)
	assert.Nil(t, msg.ReplyTo)
	assert.Nil(t, msg.EditedAt)
}

func TestMessageRowRejectsMalformedReactions(t *testing.T) {
	row := messageRow{ID: "m1", Reactions: []byte(`nope`)}
	_, err := row.toMessage()
	assert.Error(t, err)
}

func TestFeedSubscriptionConflatesSnapshots(t *testing.T) {
	sub := &feedSubscription{snapshots: make(chan []models.Message, 1)}

	sub.push([]models.Message{{ID: "stale"}})
	sub.push([]models.Message{{ID: "fresh"}})

	got := <-sub.snapshots
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID, "a slow consumer sees only the latest snapshot")

	select {
	case extra := <-sub.snapshots:
		t.Fatalf("unexpected extra snapshot: %v", extra)
	default:
	}
}
