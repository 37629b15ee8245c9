package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/server/handlers"
	"github.com/Ranjeet550/kodeshare-relay/internal/config"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/services"
	"github.com/Ranjeet550/kodeshare-relay/pkg/middleware"
)

type Server struct {
	mux       *http.ServeMux
	addr      string
	name      string
	log       *slog.Logger
	wsHandler *handlers.WSHandler
	rooms     *services.Membership
}

func NewServer(
	log *slog.Logger,
	cfg config.Config,
	coordinator *services.SessionCoordinator,
	rooms *services.Membership,
) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		addr:      cfg.Service.Addr,
		name:      cfg.Service.Name,
		log:       log,
		wsHandler: handlers.NewWSHandler(coordinator, *cfg.Relay),
		rooms:     rooms,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	logged := middleware.RequestLogger(s.log)
	traced := middleware.TracerMiddleware(s.name)

	s.mux.Handle("/ws", traced(logged(http.HandlerFunc(s.wsHandler.Handler))))
	s.mux.HandleFunc("GET /healthz", s.health)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	rooms, members := s.rooms.Stats()
	s.log.DebugContext(r.Context(), "server - health", slog.Int("rooms", rooms), slog.Int("members", members))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
		// no Read/WriteTimeout: they would sever long-lived sockets
		ReadHeaderTimeout: 15 * time.Second,
	}

	s.log.Info("server starting", slog.String("addr", s.addr))
	return server.ListenAndServe()
}
