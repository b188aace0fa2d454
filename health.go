package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	botslack "github.com/justmike1/sprintbot/slack"
)

type sessionStatus interface {
	State() botslack.State
	Identity() string
	Stats() (events, forwarded int64)
}

type commandStatus interface {
	Stats() (handled, failed int64)
	Pending() int
}

type statusResponse struct {
	State     string `json:"state"`
	Identity  string `json:"identity"`
	Handled   int64  `json:"handled"`
	Failed    int64  `json:"failed"`
	Pending   int    `json:"pending"`
	Events    int64  `json:"events"`
	Forwarded int64  `json:"forwarded"`
}

// newHealthRouter exposes liveness and counters for the running bot,
// restricted by access.
func newHealthRouter(sess sessionStatus, cmds commandStatus, access accessPolicy) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(access.middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		state := sess.State()
		if state != botslack.Connected {
			http.Error(w, state.String(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		events, forwarded := sess.Stats()
		handled, failed := cmds.Stats()
		resp := statusResponse{
			State:     sess.State().String(),
			Identity:  sess.Identity(),
			Handled:   handled,
			Failed:    failed,
			Pending:   cmds.Pending(),
			Events:    events,
			Forwarded: forwarded,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("[health] failed to encode status: %v", err)
		}
	})

	return r
}

// serveHealth runs the health server until ctx is cancelled.
func serveHealth(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[health] listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
