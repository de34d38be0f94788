package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitorStartsOnline(t *testing.T) {
	m := NewMonitor()
	assert.True(t, m.Online())
}

func TestMonitorTransitions(t *testing.T) {
	m := NewMonitor()

	m.SetOffline()
	assert.False(t, m.Online())

	m.SetOnline()
	assert.True(t, m.Online())
}

func TestMonitorNotifiesObserversOnTransitionOnly(t *testing.T) {
	m := NewMonitor()
	var seen []bool
	m.Observe(func(online bool) { seen = append(seen, online) })

	m.SetOnline() // already online, no notification
	m.SetOffline()
	m.SetOffline() // repeated, no notification
	m.SetOnline()

	assert.Equal(t, []bool{false, true}, seen)
}
