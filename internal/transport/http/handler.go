package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Lee21-bot/crime-chat/internal/domain"
	"github.com/Lee21-bot/crime-chat/internal/identity"
	"github.com/Lee21-bot/crime-chat/internal/metrics"
	"github.com/Lee21-bot/crime-chat/internal/postgres"
	httpmw "github.com/Lee21-bot/crime-chat/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type ChannelSvc interface {
	GetChannel(ctx context.Context, id string) (*domain.Channel, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

type MessageSvc interface {
	Send(ctx context.Context, channelID, userID, username, content, idempotencyKey string) (*domain.Message, error)
	ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
	History(ctx context.Context, channelID, after string, limit int) ([]domain.Message, string, error)
	Moderate(ctx context.Context, messageID string, status domain.ModerationStatus, moderatorID string, reason *string) error
}

type TypingSvc interface {
	SetTyping(ctx context.Context, channelID, userID, username string, isTyping bool) error
	ListActive(ctx context.Context, channelID string) ([]domain.TypingMarker, error)
}

type PresenceSvc interface {
	Heartbeat(ctx context.Context, userID, username string, status domain.PresenceStatus) error
	ListOnline(ctx context.Context) ([]domain.PresenceRecord, error)
}

// Notifier — опциональный пуш изменений в ws-фид.
type Notifier interface {
	NotifyMessage(m domain.Message)
	NotifyModeration(channelID, messageID string, status domain.ModerationStatus)
}

type Handler struct {
	channelSvc  ChannelSvc
	messageSvc  MessageSvc
	typingSvc   TypingSvc
	presenceSvc PresenceSvc
	directory   identity.Directory
	notifier    Notifier // nil допустим

	recentLimit int
}

func NewHandler(channel ChannelSvc, message MessageSvc, typing TypingSvc, presence PresenceSvc, directory identity.Directory) *Handler {
	return &Handler{
		channelSvc:  channel,
		messageSvc:  message,
		typingSvc:   typing,
		presenceSvc: presence,
		directory:   directory,
		recentLimit: 50,
	}
}

func (h *Handler) SetNotifier(n Notifier) { h.notifier = n }

func (h *Handler) SetRecentLimit(n int) {
	if n > 0 {
		h.recentLimit = n
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /channels
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelSvc.ListChannels(r.Context())
	if err != nil {
		slog.Error("handler.ListChannels:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := ChannelsListResponse{Items: make([]ChannelItem, 0, len(channels))}
	for _, ch := range channels {
		resp.Items = append(resp.Items, ChannelItem{ID: ch.ID, Name: ch.Name, CreatedAt: ch.CreatedAt})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /channels/{id}
func (h *Handler) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ch, err := h.channelSvc.GetChannel(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		slog.Error("handler.GetChannel:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ChannelItem{ID: ch.ID, Name: ch.Name, CreatedAt: ch.CreatedAt})
}

// GET /channels/{id}/messages?limit=
// Отдаёт последние сообщения канала oldest→newest, готовые к отображению.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	limit := h.recentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	metrics.PollRequests.WithLabelValues("messages").Inc()

	msgs, err := h.messageSvc.ListRecent(r.Context(), channelID, limit)
	if err != nil {
		slog.Error("handler.ListMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Items: toMessageItems(msgs)})
}

// GET /channels/{id}/messages/history?after=&limit=
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	msgs, next, err := h.messageSvc.History(r.Context(), channelID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: toMessageItems(msgs), NextCursor: next})
}

// POST /channels/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	if _, err := h.channelSvc.GetChannel(r.Context(), channelID); err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		slog.Error("handler.SendMessage.GetChannel:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	msg, err := h.messageSvc.Send(r.Context(), channelID, user.ID, user.Name(), req.Content, req.IdempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrMessageTooLong):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			slog.Error("handler.SendMessage:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	// отправка снимает маркер «печатает…»
	if err := h.typingSvc.SetTyping(r.Context(), channelID, user.ID, user.Name(), false); err != nil {
		slog.Debug("handler.SendMessage clear typing failed", "channel", channelID, "user", user.ID, "err", err)
	}

	if h.notifier != nil {
		h.notifier.NotifyMessage(*msg)
	}

	writeJSON(w, http.StatusCreated, toMessageItem(*msg))
}

// POST /channels/{id}/messages/{msgID}/moderate
func (h *Handler) ModerateMessage(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	messageID := chi.URLParam(r, "msgID")
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	var req ModerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	status := domain.ModerationStatus(req.Status)
	err := h.messageSvc.Moderate(r.Context(), messageID, status, user.ID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidModerationStatus):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrNotModerator):
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "moderator capability required"})
		case errors.Is(err, domain.ErrMessageNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "message not found"})
		default:
			slog.Error("handler.ModerateMessage:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyModeration(channelID, messageID, status)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "moderated"})
}

// POST /channels/{id}/typing
func (h *Handler) SetTyping(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	var req TypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	if err := h.typingSvc.SetTyping(r.Context(), channelID, user.ID, user.Name(), req.IsTyping); err != nil {
		slog.Error("handler.SetTyping:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /channels/{id}/typing
func (h *Handler) ListTyping(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "id")
	metrics.PollRequests.WithLabelValues("typing").Inc()

	markers, err := h.typingSvc.ListActive(r.Context(), channelID)
	if err != nil {
		slog.Error("handler.ListTyping:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, TypingResponse{Items: toTypingItems(markers)})
}

// POST /presence/heartbeat
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	var req HeartbeatRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
	}

	status := domain.PresenceStatus(req.Status)
	if err := h.presenceSvc.Heartbeat(r.Context(), user.ID, user.Name(), status); err != nil {
		if errors.Is(err, domain.ErrInvalidPresenceStatus) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		slog.Error("handler.Heartbeat:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	metrics.Heartbeats.Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /presence/online
func (h *Handler) ListOnline(w http.ResponseWriter, r *http.Request) {
	metrics.PollRequests.WithLabelValues("presence").Inc()

	recs, err := h.presenceSvc.ListOnline(r.Context())
	if err != nil {
		slog.Error("handler.ListOnline:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, OnlineResponse{Items: toPresenceItems(recs)})
}

// GET /me — профиль и модераторская способность. Только для гейтинга UI:
// авторитетная проверка — в Moderate на границе стора.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing user"})
		return
	}

	resp := MeResponse{UserID: user.ID, DisplayName: user.DisplayName, Email: user.Email}

	if profile, err := h.directory.GetUser(r.Context(), user.ID); err == nil {
		if profile.DisplayName != "" {
			resp.DisplayName = profile.DisplayName
		}
		if profile.Email != "" {
			resp.Email = profile.Email
		}
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		slog.Error("handler.Me.GetUser:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	role, err := h.directory.GetRole(r.Context(), user.ID)
	if err != nil {
		slog.Error("handler.Me.GetRole:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp.IsModerator = role.IsModerator

	writeJSON(w, http.StatusOK, resp)
}
