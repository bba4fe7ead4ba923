package domain

import (
	"testing"
	"time"
)

func TestTypingMarker_Expired(t *testing.T) {
	now := time.Now()
	ttl := 3 * time.Second

	fresh := TypingMarker{StartedAt: now.Add(-time.Second)}
	if fresh.Expired(now, ttl) {
		t.Fatal("marker within the ttl must not be expired")
	}
	stale := TypingMarker{StartedAt: now.Add(-3 * time.Second)}
	if !stale.Expired(now, ttl) {
		t.Fatal("marker at exactly the ttl boundary is expired")
	}
}

func TestPresenceRecord_ActiveWithin(t *testing.T) {
	now := time.Now()
	window := 5 * time.Minute

	fresh := PresenceRecord{LastSeen: now.Add(-4 * time.Minute)}
	if !fresh.ActiveWithin(now, window) {
		t.Fatal("record inside the window must be active")
	}
	stale := PresenceRecord{LastSeen: now.Add(-6 * time.Minute)}
	if stale.ActiveWithin(now, window) {
		t.Fatal("record outside the window must not be active")
	}
}

func TestModerationStatus_Valid(t *testing.T) {
	for _, s := range []ModerationStatus{ModerationPending, ModerationApproved, ModerationRejected} {
		if !s.Valid() {
			t.Fatalf("%q must be valid", s)
		}
	}
	if ModerationStatus("banned").Valid() {
		t.Fatal("unknown status must be invalid")
	}
}

func TestMessage_Rejected(t *testing.T) {
	m := Message{ModerationStatus: ModerationRejected}
	if !m.Rejected() {
		t.Fatal("rejected status must report Rejected")
	}
	m.ModerationStatus = ModerationApproved
	if m.Rejected() {
		t.Fatal("approved message is not rejected")
	}
}
