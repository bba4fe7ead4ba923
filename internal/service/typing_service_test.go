package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type fakeTypingRepo struct {
	mu      sync.Mutex
	markers map[typingKey]domain.TypingMarker
}

func newFakeTypingRepo() *fakeTypingRepo {
	return &fakeTypingRepo{markers: make(map[typingKey]domain.TypingMarker)}
}

func (r *fakeTypingRepo) Upsert(_ context.Context, m *domain.TypingMarker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[typingKey{channelID: m.ChannelID, userID: m.UserID}] = *m
	return nil
}

func (r *fakeTypingRepo) Delete(_ context.Context, channelID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.markers, typingKey{channelID: channelID, userID: userID})
	return nil
}

func (r *fakeTypingRepo) ListActive(_ context.Context, channelID string, ttl time.Duration) ([]domain.TypingMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []domain.TypingMarker
	for k, m := range r.markers {
		if k.channelID != channelID {
			continue
		}
		if m.Expired(now, ttl) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeTypingRepo) has(channelID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.markers[typingKey{channelID: channelID, userID: userID}]
	return ok
}

func TestSetTyping_TimerRemovesMarker(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(50 * time.Millisecond)
	defer svc.Close()

	if err := svc.SetTyping(context.Background(), "ch1", "u1", "alice", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	if !repo.has("ch1", "u1") {
		t.Fatal("marker must be stored immediately")
	}

	deadline := time.Now().Add(2 * time.Second)
	for repo.has("ch1", "u1") {
		if time.Now().After(deadline) {
			t.Fatal("marker was not removed after ttl")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSetTyping_RepeatRearmsTimer(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(300 * time.Millisecond)
	defer svc.Close()

	ctx := context.Background()
	if err := svc.SetTyping(ctx, "ch1", "u1", "alice", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	// повторный ввод до истечения — таймер перевзводится
	if err := svc.SetTyping(ctx, "ch1", "u1", "alice", true); err != nil {
		t.Fatalf("re-set typing: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if !repo.has("ch1", "u1") {
		t.Fatal("marker must survive while the user keeps typing")
	}
}

func TestSetTyping_ExplicitClear(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(time.Hour) // таймер не должен понадобиться
	defer svc.Close()

	ctx := context.Background()
	if err := svc.SetTyping(ctx, "ch1", "u1", "alice", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	if err := svc.SetTyping(ctx, "ch1", "u1", "alice", false); err != nil {
		t.Fatalf("clear typing: %v", err)
	}
	if repo.has("ch1", "u1") {
		t.Fatal("explicit isTyping=false must remove the marker at once")
	}
}

func TestSetTyping_OnChangeHook(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(time.Hour)
	defer svc.Close()

	var mu sync.Mutex
	var calls []string
	svc.OnChange(func(channelID string) {
		mu.Lock()
		calls = append(calls, channelID)
		mu.Unlock()
	})

	ctx := context.Background()
	_ = svc.SetTyping(ctx, "ch1", "u1", "alice", true)
	_ = svc.SetTyping(ctx, "ch1", "u1", "alice", false)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[0] != "ch1" || calls[1] != "ch1" {
		t.Fatalf("expected 2 hook calls for ch1, got %v", calls)
	}
}

func TestListActive_FiltersExpired(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(3 * time.Second)
	defer svc.Close()

	now := time.Now()
	repo.markers[typingKey{channelID: "ch1", userID: "fresh"}] = domain.TypingMarker{
		ChannelID: "ch1", UserID: "fresh", Username: "alice", StartedAt: now.Add(-time.Second),
	}
	repo.markers[typingKey{channelID: "ch1", userID: "stale"}] = domain.TypingMarker{
		ChannelID: "ch1", UserID: "stale", Username: "bob", StartedAt: now.Add(-10 * time.Second),
	}

	got, err := svc.ListActive(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "fresh" {
		t.Fatalf("expected only the fresh marker, got %v", got)
	}
}

func TestClose_StopsPendingTimers(t *testing.T) {
	repo := newFakeTypingRepo()
	svc := NewTypingService(repo)
	svc.SetTTL(50 * time.Millisecond)

	if err := svc.SetTyping(context.Background(), "ch1", "u1", "alice", true); err != nil {
		t.Fatalf("set typing: %v", err)
	}
	svc.Close()

	time.Sleep(150 * time.Millisecond)
	if !repo.has("ch1", "u1") {
		t.Fatal("closed service must not fire expirations")
	}
}
