package httpmw

import (
	"net/http"
	"sync"

	"github.com/Lee21-bot/crime-chat/internal/metrics"

	"golang.org/x/time/rate"
)

// SendRateLimit — токен-бакет на пользователя для отправки сообщений.
// Карта лимитеров не чистится: объём — один лимитер на активного
// пользователя, тот же порядок роста, что у presence-строк.
func SendRateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(userID string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[userID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
			limiters[userID] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromCtx(r.Context())
			if u != nil && !limiterFor(u.ID).Allow() {
				metrics.SendRateLimited.Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many messages, slow down"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
