package client

import (
	"sort"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

// Snapshot — готовая к рендеру модель представления канала.
type Snapshot struct {
	ChannelID string
	Messages  []MessageView
	Typing    []domain.TypingMarker // без самого зрителя
	Online    []domain.PresenceRecord
	// ForceScroll — прокрутить к свежему сообщению (своя отправка).
	ForceScroll bool
}

// MessageView — сообщение с атрибуцией отправителя для рендера.
type MessageView struct {
	domain.Message
	Own     bool // своё против чужого
	Pending bool // оптимистичная вставка, ещё не подтверждена стором
}

func buildSnapshot(channelID, selfID string, confirmed, optimistic []domain.Message, typing []domain.TypingMarker, online []domain.PresenceRecord, forceScroll bool) Snapshot {
	msgs := make([]MessageView, 0, len(confirmed)+len(optimistic))
	for _, m := range confirmed {
		msgs = append(msgs, MessageView{Message: m, Own: m.UserID == selfID})
	}
	for _, m := range optimistic {
		msgs = append(msgs, MessageView{Message: m, Own: true, Pending: true})
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})

	others := make([]domain.TypingMarker, 0, len(typing))
	for _, t := range typing {
		if t.UserID != selfID {
			others = append(others, t)
		}
	}

	return Snapshot{
		ChannelID:   channelID,
		Messages:    msgs,
		Typing:      others,
		Online:      append([]domain.PresenceRecord(nil), online...),
		ForceScroll: forceScroll,
	}
}
