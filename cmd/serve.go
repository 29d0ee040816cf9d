package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/analysis"
	"github.com/AnthusAI/plexus-feedback/internal/cost"
	"github.com/AnthusAI/plexus-feedback/internal/output"
	"github.com/AnthusAI/plexus-feedback/internal/resolver"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only analysis endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := newClient()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/summary", handleSummary(client))
		r.Get("/api/cost", handleCost(client))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

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

func handleSummary(client dashboard.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		scorecard := q.Get("scorecard")
		if scorecard == "" {
			writeJSON(w, http.StatusBadRequest, output.NewError(eris.New("scorecard is required")))
			return
		}
		days, _ := strconv.Atoi(q.Get("days"))

		summarizer := analysis.NewSummarizer(client)
		result, err := summarizer.Summarize(r.Context(), analysis.Options{
			AccountID: cfg.Dashboard.AccountID,
			Scorecard: scorecard,
			Score:     q.Get("score"),
			Days:      days,
		})
		if err != nil {
			writeJSON(w, statusFor(err), output.NewError(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleCost(client dashboard.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		days, _ := strconv.Atoi(q.Get("days"))
		hours, _ := strconv.Atoi(q.Get("hours"))

		groupBy, err := cost.ParseGroupBy(q.Get("group_by"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, output.NewError(err))
			return
		}
		mode, err := cost.ParseMode(q.Get("mode"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, output.NewError(err))
			return
		}

		query := cost.Query{
			AccountID: cfg.Dashboard.AccountID,
			Days:      days,
			Hours:     hours,
			GroupBy:   groupBy,
			Mode:      mode,
			Breakdown: q.Get("breakdown") == "true",
		}
		if scorecard := q.Get("scorecard"); scorecard != "" {
			sc, err := resolveScorecard(r.Context(), client, scorecard)
			if err != nil {
				writeJSON(w, statusFor(err), output.NewError(err))
				return
			}
			query.ScorecardID = sc
		}

		result, err := cost.NewAnalyzer(client).Analyze(r.Context(), query)
		if err != nil {
			writeJSON(w, statusFor(err), output.NewError(err))
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func resolveScorecard(ctx context.Context, client dashboard.Client, ref string) (string, error) {
	sc, err := resolver.New(client).Scorecard(ctx, cfg.Dashboard.AccountID, ref)
	if err != nil {
		return "", err
	}
	return sc.ID, nil
}

func statusFor(err error) int {
	var nf *resolver.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
