package httpmw

import (
	"context"
	"net/http"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type PresenceToucher interface {
	Heartbeat(ctx context.Context, userID, username string, status domain.PresenceStatus) error
}

// HeartbeatMiddleware освежает presence на каждом авторизованном запросе.
// Поллящий клиент и так ходит сюда каждые 3–5 секунд, так что явные
// heartbeat-и нужны только как подстраховка между вкладками.
func HeartbeatMiddleware(presence PresenceToucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := UserFromCtx(r.Context()); u != nil {
				// best-effort: ошибки не прерывают запрос
				_ = presence.Heartbeat(r.Context(), u.ID, u.Name(), domain.PresenceOnline)
			}
			next.ServeHTTP(w, r)
		})
	}
}
