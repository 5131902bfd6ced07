package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"toggl-billing/internal/errs"
	"toggl-billing/internal/reconcile"
	"toggl-billing/internal/usecase"
)

// HTTPServer returns a configured http.Server that exposes endpoints to trigger reconciliations.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /reconcile?month=1&dry=true
	// GET is always a dry run; applying operations requires POST with dry=false.
	mux.HandleFunc("/reconcile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		req := usecase.Request{MonthOffset: 1, DryRun: true}
		if m := q.Get("month"); m != "" {
			v, err := strconv.Atoi(m)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "error": "month must be an integer"})
				return
			}
			req.MonthOffset = v
		}
		if d := q.Get("dry"); d != "" && r.Method == http.MethodPost {
			v, err := strconv.ParseBool(d)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "error": "dry must be a boolean"})
				return
			}
			req.DryRun = v
		}

		// Optional timeout override: ?timeout=5m
		ctx := r.Context()
		if tStr := q.Get("timeout"); tStr != "" {
			if d, err := time.ParseDuration(tStr); err == nil && d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}
		}

		res, err := a.Reconcile(ctx, req)
		body := map[string]any{
			"status":     "ok",
			"run_id":     res.RunID,
			"dry_run":    req.DryRun,
			"operations": len(res.Operations),
			"applied":    res.Applied,
			"rejected":   len(res.Rejected),
			"days":       res.Days,
		}
		if !res.Period.From.IsZero() {
			body["from"] = res.Period.From.Format(time.RFC3339)
			body["to"] = res.Period.To.Format(time.RFC3339)
		}
		if req.DryRun {
			ops := res.Operations
			if ops == nil {
				ops = []reconcile.Operation{}
			}
			body["modifications"] = ops
		}
		if err != nil {
			body["status"] = "error"
			body["error"] = err.Error()
			writeJSON(w, statusFor(err), body)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrRunning):
		return http.StatusConflict
	case errors.Is(err, errs.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAuthentication), errors.Is(err, errs.ErrRemoteExecution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
