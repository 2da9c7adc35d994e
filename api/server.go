package api

import (
	"net/http"

	"fruitRouletteServer/config"
	"fruitRouletteServer/db"
	"fruitRouletteServer/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
)

// Options wires the HTTP API. Archive, WSHandler and AdminSecret are optional.
type Options struct {
	Engine      *state.RoundEngine
	Archive     db.RoundArchive
	WSHandler   http.HandlerFunc
	AdminSecret string
}

// Server holds the handlers' dependencies
type Server struct {
	engine      *state.RoundEngine
	archive     db.RoundArchive
	wsHandler   http.HandlerFunc
	adminSecret []byte

	// Archived rounds never change, so lookups are cached
	roundCache *cache.Cache
}

func NewServer(opts Options) *Server {
	return &Server{
		engine:      opts.Engine,
		archive:     opts.Archive,
		wsHandler:   opts.WSHandler,
		adminSecret: []byte(opts.AdminSecret),
		roundCache:  cache.New(config.RoundCacheTTL, config.RoundCacheCleanup),
	}
}

// Router builds the chi router with every endpoint mounted
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{config.AllowOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	if s.wsHandler != nil {
		r.Get("/ws", s.wsHandler)
	}

	r.Route("/api", func(rr chi.Router) {
		rr.Get("/health", s.HandleHealthCheck)

		rr.Route("/round", func(round chi.Router) {
			round.Get("/", s.HandleGetRound)
			round.Post("/bet", s.HandlePlaceBet)
			round.Post("/adjust", s.HandleAdjustBet)
			round.Post("/clear", s.HandleClearBets)
			round.Post("/double", s.HandleDoubleBets)
			round.Post("/spin", s.HandleSpin)
			round.Post("/new", s.HandleNewRound)
			round.Post("/chip", s.HandleSelectChip)
		})

		rr.Get("/segments", s.HandleGetSegments)
		rr.Get("/history", s.HandleGetHistory)
		rr.Get("/history/rounds", s.HandleGetArchivedRounds)
		rr.Get("/history/rounds/{roundId}", s.HandleGetArchivedRound)
		rr.Get("/verify/{roundId}", s.HandleVerifyRound)

		rr.Route("/admin", func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			admin.Post("/multiplier", s.HandleSetMultiplier)
		})
	})

	return r
}
