package ws

import "testing"

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient("global", nil, ConnInfo{ConnID: "c1"})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected channel room to be created")
	}

	hub.RemoveClient("global", nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected channel room to be removed")
	}
}

func TestHubConnInfoTracksClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient("global", nil, ConnInfo{ConnID: "c1", UserID: "u1"})
	info, ok := hub.getConnInfo("global", nil)
	if !ok || info.UserID != "u1" {
		t.Fatalf("expected conn info for registered client")
	}

	hub.RemoveClient("global", nil)
	if _, ok := hub.getConnInfo("global", nil); ok {
		t.Fatalf("expected conn info to be removed")
	}
}
