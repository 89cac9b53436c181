// Package web is the operational status listener: a health check and a
// JSON snapshot of loop counters and ledger size. No UI and no writes.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/visitsync/internal/ledger"
	"github.com/example/visitsync/internal/reconcile"
)

type Server struct {
	Loop   *reconcile.Loop
	Ledger ledger.Ledger
	Log    *slog.Logger
}

type statusPayload struct {
	reconcile.Stats
	LedgerSize int `json:"ledger_size"`
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		payload := statusPayload{
			Stats:      s.Loop.Stats(),
			LedgerSize: s.Ledger.Len(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.Log.Warn("status encode failed", "err", err)
		}
	})

	return mux
}

// Start serves until the context is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
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
	return srv.ListenAndServe()
}
