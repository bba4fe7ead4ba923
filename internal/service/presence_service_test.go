package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type fakePresenceRepo struct {
	records map[string]domain.PresenceRecord
	upserts int
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{records: make(map[string]domain.PresenceRecord)}
}

func (r *fakePresenceRepo) Upsert(_ context.Context, rec *domain.PresenceRecord) error {
	r.upserts++
	r.records[rec.UserID] = *rec
	return nil
}

func (r *fakePresenceRepo) ListOnline(_ context.Context, window time.Duration) ([]domain.PresenceRecord, error) {
	now := time.Now()
	var out []domain.PresenceRecord
	for _, rec := range r.records {
		if rec.ActiveWithin(now, window) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestHeartbeat_DefaultsToOnline(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewPresenceService(repo)

	if err := svc.Heartbeat(context.Background(), "u1", "alice", ""); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if got := repo.records["u1"].Status; got != domain.PresenceOnline {
		t.Fatalf("empty status must default to online, got %q", got)
	}
}

func TestHeartbeat_RejectsUnknownStatus(t *testing.T) {
	svc := NewPresenceService(newFakePresenceRepo())

	err := svc.Heartbeat(context.Background(), "u1", "alice", domain.PresenceStatus("sleeping"))
	if !errors.Is(err, domain.ErrInvalidPresenceStatus) {
		t.Fatalf("expected ErrInvalidPresenceStatus, got %v", err)
	}
}

func TestHeartbeat_UpsertsSingleRecord(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewPresenceService(repo)
	ctx := context.Background()

	if err := svc.Heartbeat(ctx, "u1", "alice", domain.PresenceOnline); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	first := repo.records["u1"].LastSeen
	time.Sleep(5 * time.Millisecond)
	if err := svc.Heartbeat(ctx, "u1", "alice", domain.PresenceAway); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	if len(repo.records) != 1 {
		t.Fatalf("expected a single record per user, got %d", len(repo.records))
	}
	rec := repo.records["u1"]
	if !rec.LastSeen.After(first) {
		t.Fatal("last_seen must be refreshed by every heartbeat")
	}
	if rec.Status != domain.PresenceAway {
		t.Fatalf("status not updated: %q", rec.Status)
	}
}

func TestListOnline_FreshnessWindow(t *testing.T) {
	repo := newFakePresenceRepo()
	svc := NewPresenceService(repo)
	svc.SetWindow(5 * time.Minute)

	now := time.Now()
	repo.records["fresh"] = domain.PresenceRecord{
		UserID: "fresh", Username: "alice", Status: domain.PresenceOnline, LastSeen: now.Add(-time.Minute),
	}
	// строка не удаляется, просто выпадает из окна на чтении
	repo.records["stale"] = domain.PresenceRecord{
		UserID: "stale", Username: "bob", Status: domain.PresenceOnline, LastSeen: now.Add(-10 * time.Minute),
	}

	got, err := svc.ListOnline(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "fresh" {
		t.Fatalf("expected only the fresh record, got %v", got)
	}
	if len(repo.records) != 2 {
		t.Fatal("stale records must stay in the store")
	}
}
