package models

import "time"

// Message represents one message in the community channel.
//
// Timestamp is assigned by the store on creation; it is nil only for a
// pending message that has not round-tripped through the store yet.
type Message struct {
	ID         string              `db:"id" json:"id"`
	ChannelID  string              `db:"channel_id" json:"channel_id"`
	Text       string              `db:"text" json:"text"`
	SenderID   string              `db:"sender_id" json:"sender_id"`
	SenderName string              `db:"sender_name" json:"sender_name"`
	Role       string              `db:"role" json:"role,omitempty"`
	Timestamp  *time.Time          `db:"created_at" json:"timestamp"`
	Edited     bool                `db:"edited" json:"edited"`
	EditedAt   *time.Time          `db:"edited_at" json:"edited_at,omitempty"`
	Reactions  map[string][]string `json:"reactions"`
	ReplyTo    *ReplyRef           `json:"reply_to,omitempty"`
}

// ReplyRef is a denormalized snapshot of the replied-to message taken at
// reply time. It is never re-joined against the live message: editing or
// deleting the original leaves the snapshot as it was.
type ReplyRef struct {
	MessageID  string `json:"message_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

// DisplayRole maps a stored role tag to its display form. Messages written
// before roles existed carry no tag and render as plain members.
func DisplayRole(role string) string {
	if role == "" {
		return "Member"
	}
	return role
}

// ChatEvent is broadcast to websocket surface clients.
type ChatEvent struct {
	Type string       `json:"type"`
	View *ChannelView `json:"view,omitempty"`
}
