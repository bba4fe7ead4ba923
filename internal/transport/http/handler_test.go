package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
	"github.com/Lee21-bot/crime-chat/internal/identity"
	httpmw "github.com/Lee21-bot/crime-chat/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type stubChannelSvc struct {
	channels map[string]domain.Channel
}

func (s *stubChannelSvc) GetChannel(_ context.Context, id string) (*domain.Channel, error) {
	if ch, ok := s.channels[id]; ok {
		return &ch, nil
	}
	return nil, domain.ErrChannelNotFound
}

func (s *stubChannelSvc) ListChannels(_ context.Context) ([]domain.Channel, error) {
	var out []domain.Channel
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	return out, nil
}

type stubMessageSvc struct {
	recent    []domain.Message
	sendErr   error
	modErr    error
	sent      []domain.Message
	moderated []string
}

func (s *stubMessageSvc) Send(_ context.Context, channelID, userID, username, content, key string) (*domain.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	m := domain.Message{
		ID: "msg-1", ChannelID: channelID, UserID: userID, Username: username,
		Content: content, CreatedAt: time.Now(), ModerationStatus: domain.ModerationApproved,
		IdempotencyKey: key,
	}
	s.sent = append(s.sent, m)
	return &m, nil
}

func (s *stubMessageSvc) ListRecent(_ context.Context, _ string, _ int) ([]domain.Message, error) {
	return s.recent, nil
}

func (s *stubMessageSvc) History(_ context.Context, _, _ string, _ int) ([]domain.Message, string, error) {
	return s.recent, "next-1", nil
}

func (s *stubMessageSvc) Moderate(_ context.Context, messageID string, _ domain.ModerationStatus, _ string, _ *string) error {
	if s.modErr != nil {
		return s.modErr
	}
	s.moderated = append(s.moderated, messageID)
	return nil
}

type stubTypingSvc struct {
	cleared []string
	markers []domain.TypingMarker
}

func (s *stubTypingSvc) SetTyping(_ context.Context, channelID, userID, _ string, isTyping bool) error {
	if !isTyping {
		s.cleared = append(s.cleared, channelID+"/"+userID)
	}
	return nil
}

func (s *stubTypingSvc) ListActive(_ context.Context, _ string) ([]domain.TypingMarker, error) {
	return s.markers, nil
}

type stubPresenceSvc struct {
	beats []domain.PresenceStatus
	recs  []domain.PresenceRecord
}

func (s *stubPresenceSvc) Heartbeat(_ context.Context, _, _ string, status domain.PresenceStatus) error {
	if status != "" && !status.Valid() {
		return domain.ErrInvalidPresenceStatus
	}
	s.beats = append(s.beats, status)
	return nil
}

func (s *stubPresenceSvc) ListOnline(_ context.Context) ([]domain.PresenceRecord, error) {
	return s.recs, nil
}

type stubDirectory struct {
	users map[string]identity.User
	roles map[string]identity.Role
}

func (d *stubDirectory) GetUser(_ context.Context, id string) (*identity.User, error) {
	if u, ok := d.users[id]; ok {
		return &u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (d *stubDirectory) GetRole(_ context.Context, id string) (identity.Role, error) {
	return d.roles[id], nil
}

type testEnv struct {
	handler  *Handler
	channels *stubChannelSvc
	messages *stubMessageSvc
	typing   *stubTypingSvc
	presence *stubPresenceSvc
	router   chi.Router
}

func newTestEnv() *testEnv {
	channels := &stubChannelSvc{channels: map[string]domain.Channel{
		"ch1": {ID: "ch1", Name: "general", CreatedAt: time.Now()},
	}}
	messages := &stubMessageSvc{}
	typing := &stubTypingSvc{}
	presence := &stubPresenceSvc{}
	dir := &stubDirectory{
		users: map[string]identity.User{"u1": {ID: "u1", DisplayName: "Alice", Email: "alice@example.com"}},
		roles: map[string]identity.Role{"mod-1": {IsModerator: true}},
	}

	h := NewHandler(channels, messages, typing, presence, dir)

	r := chi.NewRouter()
	r.Get("/channels", h.ListChannels)
	r.Get("/channels/{id}", h.GetChannel)
	r.Get("/channels/{id}/messages", h.ListMessages)
	r.Get("/channels/{id}/messages/history", h.GetHistory)
	r.Post("/channels/{id}/messages", h.SendMessage)
	r.Post("/channels/{id}/messages/{msgID}/moderate", h.ModerateMessage)
	r.Post("/channels/{id}/typing", h.SetTyping)
	r.Get("/channels/{id}/typing", h.ListTyping)
	r.Post("/presence/heartbeat", h.Heartbeat)
	r.Get("/presence/online", h.ListOnline)
	r.Get("/me", h.Me)

	return &testEnv{handler: h, channels: channels, messages: messages, typing: typing, presence: presence, router: r}
}

func (e *testEnv) do(t *testing.T, method, target string, body string, user *httpmw.User) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = int64(len(body))
	}
	if user != nil {
		req = req.WithContext(httpmw.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv()
	user := &httpmw.User{ID: "u1", DisplayName: "Alice"}

	rec := env.do(t, http.MethodPost, "/channels/ch1/messages", `{"content":"hello","idempotency_key":"k1"}`, user)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var item MessageItem
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Content != "hello" || item.Username != "Alice" || item.IdempotencyKey != "k1" {
		t.Fatalf("unexpected item: %+v", item)
	}
	// отправка снимает маркер «печатает…»
	if len(env.typing.cleared) != 1 || env.typing.cleared[0] != "ch1/u1" {
		t.Fatalf("typing marker not cleared: %v", env.typing.cleared)
	}
}

func TestSendMessage_UnknownChannel(t *testing.T) {
	env := newTestEnv()
	user := &httpmw.User{ID: "u1"}

	rec := env.do(t, http.MethodPost, "/channels/nope/messages", `{"content":"hi"}`, user)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSendMessage_ValidationErrors(t *testing.T) {
	env := newTestEnv()
	env.messages.sendErr = domain.ErrEmptyMessage
	user := &httpmw.User{ID: "u1"}

	rec := env.do(t, http.MethodPost, "/channels/ch1/messages", `{"content":"  "}`, user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessage_RequiresUser(t *testing.T) {
	env := newTestEnv()
	rec := env.do(t, http.MethodPost, "/channels/ch1/messages", `{"content":"hi"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestModerateMessage_StatusMapping(t *testing.T) {
	env := newTestEnv()
	user := &httpmw.User{ID: "mod-1"}

	cases := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidModerationStatus, http.StatusBadRequest},
		{domain.ErrNotModerator, http.StatusForbidden},
		{domain.ErrMessageNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		env.messages.modErr = tc.err
		rec := env.do(t, http.MethodPost, "/channels/ch1/messages/msg-1/moderate", `{"status":"rejected","reason":"spam"}`, user)
		if rec.Code != tc.code {
			t.Fatalf("err=%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv()
	env.messages.recent = []domain.Message{
		{ID: "msg-1", ChannelID: "ch1", Content: "hi", CreatedAt: time.Now(), ModerationStatus: domain.ModerationApproved},
	}

	rec := env.do(t, http.MethodGet, "/channels/ch1/messages?limit=10", "", &httpmw.User{ID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp MessagesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "msg-1" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv()
	env.messages.recent = []domain.Message{
		{ID: "msg-2", ChannelID: "ch1", Content: "older", CreatedAt: time.Now(), ModerationStatus: domain.ModerationApproved},
	}

	rec := env.do(t, http.MethodGet, "/channels/ch1/messages/history?limit=1", "", &httpmw.User{ID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.NextCursor != "next-1" {
		t.Fatalf("unexpected history: %+v", resp)
	}
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv()
	user := &httpmw.User{ID: "u1", DisplayName: "Alice"}

	// тело опционально — пустой heartbeat означает online
	rec := env.do(t, http.MethodPost, "/presence/heartbeat", "", user)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/presence/heartbeat", `{"status":"offline"}`, user)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if len(env.presence.beats) != 2 || env.presence.beats[1] != domain.PresenceOffline {
		t.Fatalf("unexpected beats: %v", env.presence.beats)
	}

	rec = env.do(t, http.MethodPost, "/presence/heartbeat", `{"status":"sleeping"}`, user)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListOnline(t *testing.T) {
	env := newTestEnv()
	env.presence.recs = []domain.PresenceRecord{
		{UserID: "u1", Username: "alice", Status: domain.PresenceOnline, LastSeen: time.Now()},
	}

	rec := env.do(t, http.MethodGet, "/presence/online", "", &httpmw.User{ID: "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp OnlineResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Username != "alice" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestTypingEndpoints(t *testing.T) {
	env := newTestEnv()
	env.typing.markers = []domain.TypingMarker{
		{ChannelID: "ch1", UserID: "u2", Username: "bob", StartedAt: time.Now()},
	}
	user := &httpmw.User{ID: "u1"}

	rec := env.do(t, http.MethodPost, "/channels/ch1/typing", `{"is_typing":true}`, user)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/channels/ch1/typing", "", user)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp TypingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Username != "bob" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/me", "", &httpmw.User{ID: "u1", DisplayName: "claims-name"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// профиль из directory важнее клеймов
	if resp.DisplayName != "Alice" || resp.Email != "alice@example.com" {
		t.Fatalf("profile not merged: %+v", resp)
	}
	if resp.IsModerator {
		t.Fatal("u1 is not a moderator")
	}

	rec = env.do(t, http.MethodGet, "/me", "", &httpmw.User{ID: "mod-1", DisplayName: "Mod"})
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsModerator {
		t.Fatal("mod-1 must report the moderator capability")
	}
	// неизвестный в directory пользователь деградирует до клеймов
	if resp.DisplayName != "Mod" {
		t.Fatalf("claims fallback broken: %+v", resp)
	}
}
