package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
)

// GameService is the subset of app.GameService the handlers call.
type GameService interface {
	CreateGame(ctx context.Context, req app.CreateGameRequest) (*domain.Game, error)
	Join(ctx context.Context, pin, nickname string) (gameID, playerID string, err error)
	Leave(ctx context.Context, gameID, callerID, playerID string) error
	Advance(ctx context.Context, gameID, hostID string) error
	SubmitAnswer(ctx context.Context, gameID, playerID string, answer domain.Answer) error
	Quit(ctx context.Context, gameID, hostID string) error
	Result(ctx context.Context, gameID string) (domain.GameResult, error)
}

// Streamer opens per-participant event streams.
type Streamer interface {
	Stream(ctx context.Context, gameID, participantID string) (<-chan json.RawMessage, error)
}

// TokenService issues and resolves participant tokens.
type TokenService interface {
	auth.Resolver
	Issue(id auth.Identity) (string, error)
}

// Options tune the handlers. Zero values pick defaults.
type Options struct {
	Logger *slog.Logger
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// InboundRate and InboundBurst limit websocket messages per connection.
	InboundRate  rate.Limit
	InboundBurst int
	WriteTimeout time.Duration
}

type Handler struct {
	games    GameService
	streams  Streamer
	tokens   TokenService
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader

	inboundRate  rate.Limit
	inboundBurst int
	writeTimeout time.Duration
}

func NewHandler(games GameService, streams Streamer, tokens TokenService, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.InboundRate <= 0 {
		opts.InboundRate = 5
	}
	if opts.InboundBurst <= 0 {
		opts.InboundBurst = 10
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Handler{
		games:    games,
		streams:  streams,
		tokens:   tokens,
		logger:   opts.Logger,
		gatherer: opts.Gatherer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		inboundRate:  opts.InboundRate,
		inboundBurst: opts.InboundBurst,
		writeTimeout: opts.WriteTimeout,
	}
}

// Routes mounts every endpoint on a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/games", func(r chi.Router) {
		r.Post("/", h.createGame)
		r.Post("/join", h.joinGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Post("/advance", h.advance)
			r.Post("/quit", h.quit)
			r.Post("/answers", h.submitAnswer)
			r.Delete("/players/{playerID}", h.removePlayer)
			r.Get("/result", h.result)
		})
	})
	r.Get("/ws/games/{gameID}", h.ServeWS)
	return r
}
