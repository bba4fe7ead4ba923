package client

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/google/uuid"
)

// Интервалы из исходного поведения: сообщения каждые 3с, presence каждые
// 5с, heartbeat каждые 4 минуты — строго меньше 5-минутного окна свежести.
const (
	DefaultMessagePoll    = 3 * time.Second
	DefaultPresencePoll   = 5 * time.Second
	DefaultHeartbeatEvery = 4 * time.Minute
	DefaultRecentLimit    = 50
)

var ErrNotMounted = errors.New("channel view is not mounted")

type API interface {
	ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, channelID, content, idempotencyKey string) (*domain.Message, error)
	SetTyping(ctx context.Context, channelID string, isTyping bool) error
	ListTyping(ctx context.Context, channelID string) ([]domain.TypingMarker, error)
	Heartbeat(ctx context.Context, status domain.PresenceStatus) error
	ListOnline(ctx context.Context) ([]domain.PresenceRecord, error)
}

type Options struct {
	MessagePoll    time.Duration
	PresencePoll   time.Duration
	HeartbeatEvery time.Duration
	RecentLimit    int
}

func (o *Options) fill() {
	if o.MessagePoll <= 0 {
		o.MessagePoll = DefaultMessagePoll
	}
	if o.PresencePoll <= 0 {
		o.PresencePoll = DefaultPresencePoll
	}
	if o.HeartbeatEvery <= 0 {
		o.HeartbeatEvery = DefaultHeartbeatEvery
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
}

// ChannelView — поллинг-синхронизатор одного представления канала.
// Сводит опрошенное серверное состояние с локальными оптимистичными
// вставками и отдаёт готовые снапшоты в колбэк рендера.
type ChannelView struct {
	api       API
	channelID string
	selfID    string
	selfName  string
	opts      Options

	mu         sync.Mutex
	mounted    bool
	onSnapshot func(Snapshot)
	confirmed  []domain.Message
	optimistic []domain.Message
	typing     []domain.TypingMarker
	online     []domain.PresenceRecord
	lastTyping bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChannelView(api API, channelID, selfID, selfName string, onSnapshot func(Snapshot), opts Options) *ChannelView {
	opts.fill()
	return &ChannelView{
		api:        api,
		channelID:  channelID,
		selfID:     selfID,
		selfName:   selfName,
		onSnapshot: onSnapshot,
		opts:       opts,
	}
}

// Start монтирует представление: немедленный fetch сообщений и онлайна,
// немедленный heartbeat, затем три независимых тикера.
func (v *ChannelView) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return errors.New("channel view already started")
	}
	v.mounted = true
	loopCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	go v.heartbeatTick()
	go v.messagesTick()
	go v.presenceTick()

	v.wg.Add(3)
	go v.loop(loopCtx, v.opts.MessagePoll, v.messagesTick)
	go v.loop(loopCtx, v.opts.PresencePoll, v.presenceTick)
	go v.loop(loopCtx, v.opts.HeartbeatEvery, v.heartbeatTick)

	return nil
}

// Каждый тик — независимый fire-and-forget вызов: медленный или упавший
// тик не блокирует и не отменяет следующий по расписанию.
func (v *ChannelView) loop(ctx context.Context, every time.Duration, tick func()) {
	defer v.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			go tick()
		}
	}
}

// fetch-и живут на фоновом контексте: unmount не отменяет уже ушедший
// запрос, поздний ответ отбрасывает проверка mounted перед коммитом.
func (v *ChannelView) fetchCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func (v *ChannelView) messagesTick() {
	ctx, cancel := v.fetchCtx()
	defer cancel()

	msgs, err := v.api.ListRecent(ctx, v.channelID, v.opts.RecentLimit)
	if err != nil {
		slog.Debug("message poll failed", "channel", v.channelID, "err", err)
	} else {
		v.commitMessages(msgs)
	}

	markers, err := v.api.ListTyping(ctx, v.channelID)
	if err != nil {
		slog.Debug("typing poll failed", "channel", v.channelID, "err", err)
		return
	}
	v.commitTyping(markers)
}

func (v *ChannelView) presenceTick() {
	ctx, cancel := v.fetchCtx()
	defer cancel()

	online, err := v.api.ListOnline(ctx)
	if err != nil {
		slog.Debug("presence poll failed", "channel", v.channelID, "err", err)
		return
	}
	v.commitOnline(online)
}

func (v *ChannelView) heartbeatTick() {
	ctx, cancel := v.fetchCtx()
	defer cancel()

	if err := v.api.Heartbeat(ctx, domain.PresenceOnline); err != nil {
		slog.Debug("heartbeat failed", "channel", v.channelID, "err", err)
	}
}

// commitMessages замещает подтверждённую модель целиком и выбрасывает
// оптимистичные вставки, которые сервер уже подтвердил (дедуп по
// ключу идемпотентности и id).
func (v *ChannelView) commitMessages(msgs []domain.Message) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.confirmed = msgs

	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m.IdempotencyKey != "" {
			seen[m.IdempotencyKey] = struct{}{}
		}
		seen[m.ID] = struct{}{}
	}
	kept := v.optimistic[:0]
	for _, m := range v.optimistic {
		if _, ok := seen[m.IdempotencyKey]; ok {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		kept = append(kept, m)
	}
	v.optimistic = kept

	cb, snap := v.snapshotLocked(false)
	v.mu.Unlock()
	emit(cb, snap)
}

func (v *ChannelView) commitTyping(markers []domain.TypingMarker) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.typing = markers
	cb, snap := v.snapshotLocked(false)
	v.mu.Unlock()
	emit(cb, snap)
}

func (v *ChannelView) commitOnline(online []domain.PresenceRecord) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.online = online
	cb, snap := v.snapshotLocked(false)
	v.mu.Unlock()
	emit(cb, snap)
}

// SendMessage — оптимистичная вставка до подтверждения стором.
// При ошибке вставка остаётся висеть (известное поведение источника),
// а ошибка отдаётся вызывающему для показа пользователю.
func (v *ChannelView) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}

	key := uuid.New().String()
	local := domain.Message{
		ID:               "local-" + key,
		ChannelID:        v.channelID,
		UserID:           v.selfID,
		Username:         v.selfName,
		Content:          text,
		CreatedAt:        time.Now(),
		ModerationStatus: domain.ModerationApproved,
		IdempotencyKey:   key,
	}

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return ErrNotMounted
	}
	v.optimistic = append(v.optimistic, local)
	v.lastTyping = false
	cb, snap := v.snapshotLocked(true) // скролл к свежему сообщению
	v.mu.Unlock()
	emit(cb, snap)

	saved, err := v.api.SendMessage(ctx, v.channelID, text, key)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.mounted {
		kept := v.optimistic[:0]
		for _, m := range v.optimistic {
			if m.IdempotencyKey != key {
				kept = append(kept, m)
			}
		}
		v.optimistic = kept
		v.confirmed = upsertByID(v.confirmed, *saved)
		cb, snap = v.snapshotLocked(true)
	} else {
		cb = nil
	}
	v.mu.Unlock()
	emit(cb, snap)

	// отправка снимает typing; сервер делает то же самое, это подстраховка
	if err := v.api.SetTyping(ctx, v.channelID, false); err != nil {
		slog.Debug("clear typing after send failed", "channel", v.channelID, "err", err)
	}
	return nil
}

// SetInput двигает typing-статус по каждому изменению ввода:
// непустой ввод публикует маркер, опустевший — снимает.
func (v *ChannelView) SetInput(ctx context.Context, text string) error {
	nonEmpty := strings.TrimSpace(text) != ""

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return ErrNotMounted
	}
	wasTyping := v.lastTyping
	v.lastTyping = nonEmpty
	v.mu.Unlock()

	if !nonEmpty && !wasTyping {
		return nil
	}
	return v.api.SetTyping(ctx, v.channelID, nonEmpty)
}

// Stop размонтирует представление. Четыре независимых действия —
// остановка тикеров, снятие typing, offline heartbeat, отписка колбэка —
// выполняются все, даже если какое-то упало.
func (v *ChannelView) Stop() {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = false
	wasTyping := v.lastTyping
	v.onSnapshot = nil // отписка рендера
	cancel := v.cancel
	v.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, cancelIO := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelIO()

	if wasTyping {
		if err := v.api.SetTyping(ctx, v.channelID, false); err != nil {
			slog.Debug("teardown clear typing failed", "channel", v.channelID, "err", err)
		}
	}
	if err := v.api.Heartbeat(ctx, domain.PresenceOffline); err != nil {
		slog.Debug("teardown offline heartbeat failed", "channel", v.channelID, "err", err)
	}

	v.wg.Wait()
}

// snapshotLocked собирает снапшот под мьютексом; колбэк зовётся уже без
// него (см. emit), чтобы рендер не мог сдедлочиться с коммитами.
func (v *ChannelView) snapshotLocked(forceScroll bool) (func(Snapshot), Snapshot) {
	return v.onSnapshot, buildSnapshot(v.channelID, v.selfID, v.confirmed, v.optimistic, v.typing, v.online, forceScroll)
}

func emit(cb func(Snapshot), snap Snapshot) {
	if cb != nil {
		cb(snap)
	}
}

// Snapshot текущего состояния (для опроса извне).
func (v *ChannelView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, snap := v.snapshotLocked(false)
	return snap
}

func upsertByID(msgs []domain.Message, m domain.Message) []domain.Message {
	for i := range msgs {
		if msgs[i].ID == m.ID {
			msgs[i] = m
			return msgs
		}
	}
	return append(msgs, m)
}
