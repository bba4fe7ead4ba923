package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
	"github.com/Lee21-bot/crime-chat/internal/metrics"
	httpmw "github.com/Lee21-bot/crime-chat/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type MessageSvc interface {
	Send(ctx context.Context, channelID, userID, username, content, idempotencyKey string) (*domain.Message, error)
	ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
}

type TypingSvc interface {
	SetTyping(ctx context.Context, channelID, userID, username string, isTyping bool) error
	ListActive(ctx context.Context, channelID string) ([]domain.TypingMarker, error)
}

type PresenceSvc interface {
	Heartbeat(ctx context.Context, userID, username string, status domain.PresenceStatus) error
	ListOnline(ctx context.Context) ([]domain.PresenceRecord, error)
}

// Server — push-замена поллинга при тех же контрактах сущностей:
// фан-аут событий канала всем подключённым клиентам.
type Server struct {
	upgrader    websocket.Upgrader
	hub         *Hub
	messageSvc  MessageSvc
	typingSvc   TypingSvc
	presenceSvc PresenceSvc
	secret      []byte

	pingEvery time.Duration
}

func NewServer(hub *Hub, message MessageSvc, typing TypingSvc, presence PresenceSvc, secret []byte) *Server {
	return &Server{
		hub:         hub,
		messageSvc:  message,
		typingSvc:   typing,
		presenceSvc: presence,
		secret:      secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/channels/{id}?access_token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	accessToken := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if accessToken == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}
	user, err := httpmw.ParseToken(s.secret, accessToken)
	if err != nil {
		http.Error(w, "invalid access_token", http.StatusUnauthorized)
		return
	}
	channelID := chi.URLParam(r, "id")
	if channelID == "" {
		http.Error(w, "missing channel id", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, channelID, user)
	s.hub.Add(c)
	metrics.WSConnections.Inc()

	_ = s.presenceSvc.Heartbeat(r.Context(), user.ID, user.Name(), domain.PresenceOnline)

	if err := s.sendState(r.Context(), c); err != nil {
		slog.Warn("ws send initial state failed", "channel", channelID, "user", user.ID, "err", err)
	}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.hub.Remove(c)
	metrics.WSConnections.Dec()

	// teardown: независимые best-effort действия, как при unmount поллера
	if err := s.typingSvc.SetTyping(r.Context(), channelID, user.ID, user.Name(), false); err != nil {
		slog.Debug("ws clear typing failed", "channel", channelID, "user", user.ID, "err", err)
	}
	if err := s.presenceSvc.Heartbeat(r.Context(), user.ID, user.Name(), domain.PresenceOffline); err != nil {
		slog.Debug("ws offline heartbeat failed", "user", user.ID, "err", err)
	}
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "channel", channelID, "user", user.ID, "err", err)
	}
}

// NotifyMessage — фан-аут нового сообщения (вызывается HTTP-хендлером).
func (s *Server) NotifyMessage(m domain.Message) {
	s.hub.Broadcast(m.ChannelID, Event{Type: TypeMessage, Payload: toMessageItem(m)})
}

// NotifyModeration — фан-аут смены статуса; отклонённый контент
// читатели перезапросят уже с заглушкой.
func (s *Server) NotifyModeration(channelID, messageID string, status domain.ModerationStatus) {
	s.hub.Broadcast(channelID, Event{Type: TypeModeration, Payload: ModerationPayload{
		ChannelID: channelID,
		MessageID: messageID,
		Status:    string(status),
	}})
}

// TypingChanged — хук для TypingService.OnChange: рассылает актуальный
// список печатающих, включая снятие по таймеру.
func (s *Server) TypingChanged(channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	markers, err := s.typingSvc.ListActive(ctx, channelID)
	if err != nil {
		slog.Debug("ws typing list failed", "channel", channelID, "err", err)
		return
	}
	items := make([]TypingItem, 0, len(markers))
	for _, t := range markers {
		items = append(items, TypingItem{UserID: t.UserID, Username: t.Username})
	}
	s.hub.Broadcast(channelID, Event{Type: TypeTyping, Payload: items})
}

func (s *Server) sendState(ctx context.Context, c *wsConn) error {
	online, err := s.presenceSvc.ListOnline(ctx)
	if err != nil {
		return err
	}
	typing, err := s.typingSvc.ListActive(ctx, c.channelID)
	if err != nil {
		return err
	}
	recent, err := s.messageSvc.ListRecent(ctx, c.channelID, 50)
	if err != nil {
		return err
	}

	p := StatePayload{ChannelID: c.channelID}
	for _, o := range online {
		p.Online = append(p.Online, OnlineItem{UserID: o.UserID, Username: o.Username, LastSeen: o.LastSeen.Unix()})
	}
	for _, t := range typing {
		p.Typing = append(p.Typing, TypingItem{UserID: t.UserID, Username: t.Username})
	}
	for _, m := range recent {
		p.Messages = append(p.Messages, toMessageItem(m))
	}

	return c.Send(Event{Type: TypeState, Payload: p})
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		// pong — тоже heartbeat
		_ = s.presenceSvc.Heartbeat(ctx, c.user.ID, c.user.Name(), domain.PresenceOnline)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		switch evt.Type {
		case TypeMessage:
			var p SendPayload
			if decode(evt.Payload, &p) != nil {
				continue
			}
			msg, err := s.messageSvc.Send(ctx, c.channelID, c.user.ID, c.user.Name(), p.Content, p.IdempotencyKey)
			if err != nil {
				slog.Warn("ws message save failed", "channel", c.channelID, "user", c.user.ID, "err", err)
				continue
			}
			_ = s.typingSvc.SetTyping(ctx, c.channelID, c.user.ID, c.user.Name(), false)

			// ЕДИНЫЙ broadcast всем (включая отправителя) + лёгкий ACK отправителю
			s.hub.Broadcast(c.channelID, Event{Type: TypeMessage, Payload: toMessageItem(*msg)})
			_ = c.Send(Event{Type: TypeMessageAck, Payload: AckPayload{
				MsgID:          msg.ID,
				IdempotencyKey: msg.IdempotencyKey,
			}})

		case TypeTyping:
			var p TypingPayload
			if decode(evt.Payload, &p) != nil {
				continue
			}
			if err := s.typingSvc.SetTyping(ctx, c.channelID, c.user.ID, c.user.Name(), p.IsTyping); err != nil {
				slog.Debug("ws set typing failed", "channel", c.channelID, "user", c.user.ID, "err", err)
			}

		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func toMessageItem(m domain.Message) MessageItem {
	content := m.Content
	if m.Rejected() {
		content = domain.RejectedPlaceholder
	}
	return MessageItem{
		ID:               m.ID,
		ChannelID:        m.ChannelID,
		UserID:           m.UserID,
		Username:         m.Username,
		Content:          content,
		CreatedAt:        m.CreatedAt,
		ModerationStatus: string(m.ModerationStatus),
	}
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn      *websocket.Conn
	channelID string
	user      *httpmw.User
	sendMu    chan struct{}
	closed    chan struct{}
}

func newWsConn(c *websocket.Conn, channelID string, user *httpmw.User) *wsConn {
	return &wsConn{
		conn:      c,
		channelID: channelID,
		user:      user,
		sendMu:    make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

func (c *wsConn) Send(evt Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(evt)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) UserID() string    { return c.user.ID }
func (c *wsConn) ChannelID() string { return c.channelID }
