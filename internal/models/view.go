package models

import "time"

// Participant is a derived roster entry, recomputed from the message log on
// every snapshot. It is never persisted.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// RenderedMessage wraps a message with its rendering hints. Header marks the
// first message of a consecutive same-sender run.
type RenderedMessage struct {
	Message
	Header bool `json:"header"`
}

// DateGroup is one calendar-date bucket of rendered messages. A zero Date
// with Pending set holds messages whose store timestamp has not arrived yet;
// that bucket always sorts last.
type DateGroup struct {
	Date     time.Time         `json:"date"`
	Pending  bool              `json:"pending,omitempty"`
	Messages []RenderedMessage `json:"messages"`
}

// ChannelView is everything the rendering surface consumes.
type ChannelView struct {
	Groups       []DateGroup   `json:"groups"`
	Participants []Participant `json:"participants"`
	TodayCount   int           `json:"today_count"`
}
