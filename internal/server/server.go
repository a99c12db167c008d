// Package server exposes the read-only query surface over HTTP.
//
// Every route is a GET against engine state already in memory; mutations
// flow exclusively through the CLI and the engines' single-writer path,
// so the server never competes for the write lock.
package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"veriledger/internal/access"
	"veriledger/internal/epoch"
	"veriledger/internal/ledger"
	"veriledger/internal/velocity"
)

// Server bundles the engines behind the query API.
type Server struct {
	log    *slog.Logger
	clock  *epoch.Clock
	acl    *access.Controller
	ledger *ledger.Ledger
	engine *velocity.Engine
}

// New creates a Server over already-restored engines.
func New(log *slog.Logger, clock *epoch.Clock, acl *access.Controller, l *ledger.Ledger, e *velocity.Engine) *Server {
	return &Server{
		log:    log,
		clock:  clock,
		acl:    acl,
		ledger: l,
		engine: e,
	}
}

// Router creates and configures the HTTP router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(recovery(s.log))
	r.Use(requestID)
	r.Use(logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/epoch", s.handleEpoch)
		r.Get("/sensors/{id}", s.handleSensor)
		r.Get("/reporters/{name}", s.handleReporter)
		r.Get("/sales/{id}", s.handleSale)

		r.Route("/inventories/{id}", func(r chi.Router) {
			r.Get("/", s.handleInventory)
			r.Get("/value", s.handleInventoryValue)
			r.Get("/validity", s.handleValidity)
			r.Get("/items/{itemID}", s.handleItem)
			r.Get("/verifications/{verificationID}", s.handleVerification)
			r.Get("/categories/{category}", s.handleCategory)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/risk", s.handleRisk)
			r.Get("/history/{epoch}", s.handleHistory)
		})
	})

	return r
}
