package view

import (
	"sort"
	"time"

	"alumni-chat/internal/models"
)

// Build derives the full render model from one message snapshot. The input
// is expected in log order (timestamp ascending, pending last) and is not
// modified. All derivations are pure; nothing here is persisted.
func Build(msgs []models.Message, now time.Time, loc *time.Location) models.ChannelView {
	return models.ChannelView{
		Groups:       DateGroups(msgs, loc),
		Participants: Roster(msgs),
		TodayCount:   TodayCount(msgs, now, loc),
	}
}

// DateGroups partitions messages into calendar-date buckets in local time,
// preserving member order. Messages still waiting for a store timestamp go
// into a trailing pending bucket. Within each bucket, the first message of a
// consecutive same-sender run is marked as the run header.
func DateGroups(msgs []models.Message, loc *time.Location) []models.DateGroup {
	var groups []models.DateGroup
	byDate := map[time.Time]int{}
	pending := -1

	for _, msg := range msgs {
		if msg.Timestamp == nil {
			if pending < 0 {
				groups = append(groups, models.DateGroup{Pending: true})
				pending = len(groups) - 1
			}
			groups[pending].Messages = append(groups[pending].Messages, models.RenderedMessage{Message: msg})
			continue
		}

		day := localDate(*msg.Timestamp, loc)
		idx, ok := byDate[day]
		if !ok {
			groups = append(groups, models.DateGroup{Date: day})
			idx = len(groups) - 1
			byDate[day] = idx
		}
		groups[idx].Messages = append(groups[idx].Messages, models.RenderedMessage{Message: msg})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Pending || groups[j].Pending {
			return groups[j].Pending && !groups[i].Pending
		}
		return groups[i].Date.Before(groups[j].Date)
	})

	for g := range groups {
		markRunHeaders(groups[g].Messages)
	}
	return groups
}

// markRunHeaders flags the start of each consecutive same-sender run. Runs
// are positional: a gap in time does not break a run, a different sender
// in between does.
func markRunHeaders(msgs []models.RenderedMessage) {
	for i := range msgs {
		msgs[i].Header = i == 0 || msgs[i].SenderID != msgs[i-1].SenderID
	}
}

// Roster aggregates every distinct sender in the log into a participant
// entry. Name and role come from the sender's most recent message, so a
// display-name change propagates once the user posts again. Sorted by
// message count descending; ties keep first-seen order.
func Roster(msgs []models.Message) []models.Participant {
	byID := map[string]int{}
	var roster []models.Participant

	for _, msg := range msgs {
		idx, ok := byID[msg.SenderID]
		if !ok {
			roster = append(roster, models.Participant{ID: msg.SenderID})
			idx = len(roster) - 1
			byID[msg.SenderID] = idx
		}
		roster[idx].Name = msg.SenderName
		roster[idx].Role = models.DisplayRole(msg.Role)
		roster[idx].Count++
	}

	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Count > roster[j].Count
	})
	return roster
}

// TodayCount counts messages whose local calendar date matches now's.
func TodayCount(msgs []models.Message, now time.Time, loc *time.Location) int {
	today := localDate(now, loc)
	count := 0
	for _, msg := range msgs {
		if msg.Timestamp != nil && localDate(*msg.Timestamp, loc).Equal(today) {
			count++
		}
	}
	return count
}

func localDate(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
