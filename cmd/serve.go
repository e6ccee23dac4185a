package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricewatch/scraper-cli/internal/ingest"
	"github.com/pricewatch/scraper-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for sync requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/sync/pages", syncHandler(e, e.Orchestrator.SyncPages))
		r.Post("/api/sync/data", syncHandler(e, e.Orchestrator.SyncData))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// syncHandler adapts an orchestrator sync flow to an HTTP endpoint.
// Internal failure details stay in the logs; clients get generic messages.
func syncHandler(e *env, fn func(ctx context.Context, websiteID string) (*ingest.SyncResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Website string `json:"website"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Website == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "website is required"})
			return
		}

		website, err := e.Store.GetWebsiteByName(req.Context(), body.Website)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "website not found"})
				return
			}
			zap.L().Error("website lookup failed", zap.String("website", body.Website), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync failed"})
			return
		}

		result, err := fn(req.Context(), website.ID)
		if err != nil {
			zap.L().Error("sync failed", zap.String("website", body.Website), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError,
				map[string]string{"error": "an error occurred while syncing data"})
			return
		}
		if result.Status == ingest.StatusUnsupported {
			writeJSON(w, http.StatusBadRequest, result)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
