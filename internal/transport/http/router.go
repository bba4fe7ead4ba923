package http

import (
	"net/http"
	"time"

	httpmw "github.com/Lee21-bot/crime-chat/internal/transport/http/middleware"
	"github.com/Lee21-bot/crime-chat/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	JWTSecret     []byte
	SendBurst     int
	SendPerMinute int
}

func NewRouter(h *Handler, presenceSvc httpmw.PresenceToucher, wsServer *ws.Server, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint (токен в query, авторизация внутри)
	if wsServer != nil {
		r.Get("/ws/channels/{id}", wsServer.HandleWS)
	}

	// Все чатовые маршруты требуют access_token
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(cfg.JWTSecret))
		pr.Use(httpmw.HeartbeatMiddleware(presenceSvc))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Get("/me", h.Me)

		pr.Route("/channels", func(cm chi.Router) {
			cm.Get("/", h.ListChannels)

			cm.Route("/{id}", func(cr chi.Router) {
				cr.Get("/", h.GetChannel)
				cr.Get("/messages", h.ListMessages)
				cr.Get("/messages/history", h.GetHistory)
				cr.With(httpmw.SendRateLimit(cfg.SendPerMinute, cfg.SendBurst)).
					Post("/messages", h.SendMessage)
				cr.Post("/messages/{msgID}/moderate", h.ModerateMessage)
				cr.Get("/typing", h.ListTyping)
				cr.Post("/typing", h.SetTyping)
			})
		})

		pr.Route("/presence", func(pm chi.Router) {
			pm.Post("/heartbeat", h.Heartbeat)
			pm.Get("/online", h.ListOnline)
		})
	})

	// health + метрики
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
