// Package server Feed
//
// The Feed is a service which stores social feed posts with polls and contests.
//
//     Schemes: http
//     BasePath: /v1
//     Version: 1.0.0
//
//     Produces:
//     - application/json
//     Consumes:
//     - application/json
//
// swagger:meta
package server

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	"github.com/socialhub/feed/internal/api"
	mm "github.com/socialhub/feed/internal/middleware"
	"github.com/socialhub/feed/internal/service"
)

//go:generate swagger generate spec -t swagger -m -c . -o ../../static/swagger.json

const maxBodySize = 16 * 1024

const statsTTL = 10 * time.Second

type server struct {
	s   service.Service
	now func() time.Time
}

// SetupRouter setups handlers to chi router.
func SetupRouter(s service.Service, r chi.Router, timeout time.Duration) {
	setupRouter(server{s: s, now: time.Now}, r, timeout)
}

func setupRouter(srv server, r chi.Router, timeout time.Duration) {
	r.Use(
		api.RequestIDMiddleware,
		api.LoggerMiddleware,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		api.RecovererMiddleware,
		api.TimeoutMiddleware(timeout),
		api.BodyLimiterMiddleware(maxBodySize),
	)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/posts", srv.listPosts)
		r.Post("/posts", srv.createPost)
		r.Get("/posts/{id}", srv.getPost)
		r.Post("/posts/{id}/poll/vote", srv.votePoll)
		r.Post("/posts/{id}/like", srv.toggleLike)
		r.Get("/stats", mm.Cached(statsTTL, srv.getStats))
	})
}
