package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumni-chat/internal/models"
)

func msgAt(id, sender string, ts time.Time) models.Message {
	return models.Message{ID: id, SenderID: sender, SenderName: sender, Timestamp: &ts}
}

func TestDateGroupsSplitsByCalendarDay(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, loc)
	msgs := []models.Message{
		msgAt("a", "u1", day1),
		msgAt("b", "u1", day1.Add(time.Hour)),
		msgAt("c", "u2", day1.AddDate(0, 0, 1)),
	}

	groups := DateGroups(msgs, loc)
	require.Len(t, groups, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), groups[0].Date)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), groups[1].Date)
	require.Len(t, groups[0].Messages, 2)
	assert.Equal(t, "a", groups[0].Messages[0].ID)
	assert.Equal(t, "b", groups[0].Messages[1].ID)
	require.Len(t, groups[1].Messages, 1)
}

func TestDateGroupsPendingBucketSortsLast(t *testing.T) {
	loc := time.UTC
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, loc)
	msgs := []models.Message{
		{ID: "pending", SenderID: "u1"},
		msgAt("a", "u1", ts),
	}

	groups := DateGroups(msgs, loc)
	require.Len(t, groups, 2)
	assert.False(t, groups[0].Pending)
	assert.True(t, groups[1].Pending)
	assert.Equal(t, "pending", groups[1].Messages[0].ID)
}

func TestSenderRunHeaders(t *testing.T) {
	loc := time.UTC
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, loc)
	msgs := []models.Message{
		msgAt("1", "A", base),
		msgAt("2", "A", base.Add(time.Minute)),
		msgAt("3", "B", base.Add(2*time.Minute)),
		msgAt("4", "A", base.Add(3*time.Minute)),
	}

	groups := DateGroups(msgs, loc)
	require.Len(t, groups, 1)
	var headers []string
	for _, m := range groups[0].Messages {
		if m.Header {
			headers = append(headers, m.ID)
		}
	}
	assert.Equal(t, []string{"1", "3", "4"}, headers)
}

func TestRunHeaderResetsAcrossDateBuckets(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, loc)
	day2 := time.Date(2026, 3, 2, 1, 0, 0, 0, loc)
	msgs := []models.Message{
		msgAt("1", "A", day1),
		msgAt("2", "A", day2),
	}

	groups := DateGroups(msgs, loc)
	require.Len(t, groups, 2)
	assert.True(t, groups[0].Messages[0].Header)
	assert.True(t, groups[1].Messages[0].Header, "a run never spans a date bucket")
}

func TestRosterCountsAndOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		msgAt("1", "A", base),
		msgAt("2", "B", base.Add(time.Minute)),
		msgAt("3", "B", base.Add(2*time.Minute)),
		msgAt("4", "A", base.Add(3*time.Minute)),
		msgAt("5", "B", base.Add(4*time.Minute)),
	}

	roster := Roster(msgs)
	require.Len(t, roster, 2)
	assert.Equal(t, "B", roster[0].ID)
	assert.Equal(t, 3, roster[0].Count)
	assert.Equal(t, "A", roster[1].ID)
	assert.Equal(t, 2, roster[1].Count)
}

func TestRosterUsesMostRecentNameAndRole(t *testing.T) {
	ts1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(time.Hour)
	msgs := []models.Message{
		{ID: "1", SenderID: "u1", SenderName: "Old Name", Role: "", Timestamp: &ts1},
		{ID: "2", SenderID: "u1", SenderName: "New Name", Role: "alumni", Timestamp: &ts2},
	}

	roster := Roster(msgs)
	require.Len(t, roster, 1)
	assert.Equal(t, "New Name", roster[0].Name)
	assert.Equal(t, "alumni", roster[0].Role)
	assert.Equal(t, 2, roster[0].Count)
}

func TestRosterDefaultsUnsetRole(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	roster := Roster([]models.Message{{ID: "1", SenderID: "u1", Timestamp: &ts}})
	require.Len(t, roster, 1)
	assert.Equal(t, "Member", roster[0].Role)
}

func TestTodayCount(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, loc)
	msgs := []models.Message{
		msgAt("1", "A", time.Date(2026, 3, 1, 23, 59, 0, 0, loc)),
		msgAt("2", "A", time.Date(2026, 3, 2, 0, 1, 0, 0, loc)),
		msgAt("3", "B", time.Date(2026, 3, 2, 14, 0, 0, 0, loc)),
		{ID: "4", SenderID: "B"},
	}

	assert.Equal(t, 2, TodayCount(msgs, now, loc))
}

func TestBuildAssemblesAllDerivations(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	msgs := []models.Message{msgAt("1", "A", now.Add(-time.Hour))}

	viewModel := Build(msgs, now, loc)
	assert.Len(t, viewModel.Groups, 1)
	assert.Len(t, viewModel.Participants, 1)
	assert.Equal(t, 1, viewModel.TodayCount)
}
