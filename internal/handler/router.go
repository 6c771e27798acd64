package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/service"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware.
func NewRouter(svc *service.PortfolioService, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	walletH := NewWalletHandler(svc)
	simH := NewSimulationHandler(svc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/wallets/{owner_id}", func(r chi.Router) {
		r.Get("/", walletH.Get)
		r.Post("/buy", walletH.Buy)
		r.Post("/sell", walletH.Sell)
		r.Get("/history", walletH.History)
		r.Post("/snapshots", walletH.RecordSnapshot)
		r.Post("/reset", walletH.Reset)
	})

	r.Post("/simulations", simH.Simulate)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			level := slog.LevelInfo
			if ww.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests that carry a body
// whose Content-Type is not application/json. Bodyless commands such as
// reset pass through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength != 0 {
				ct := r.Header.Get("Content-Type")
				if ct == "" || !strings.HasPrefix(ct, "application/json") {
					WriteError(w, http.StatusBadRequest, "invalid_request",
						"Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
