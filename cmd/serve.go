package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/funnel-cli/internal/funnel"
	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/orchestrate"
	"github.com/sells-group/funnel-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve funnel state and analytics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := newServer(st)
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", cfg.Server.Port))
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.wg.Wait()
			return httpSrv.Shutdown(shutdownCtx)
		case err := <-errCh:
			return err
		}
	},
}

// server bundles the handlers' shared state. Analyses triggered over HTTP
// run in the background; the wait group lets shutdown drain them.
type server struct {
	store store.Store
	wg    sync.WaitGroup
}

func newServer(st store.Store) *server {
	return &server{store: st}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/profiles/{profileID}", func(r chi.Router) {
		r.Get("/opportunities", s.handleListOpportunities)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/analyses", s.handleListAnalyses)
		r.Post("/analyze", s.handleAnalyze)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	opps, err := s.store.ListOpportunities(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	var filter funnel.Filter
	q := r.URL.Query()
	if v := q.Get("stage"); v != "" {
		stage := model.FunnelStage(v)
		if !stage.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown stage " + v})
			return
		}
		filter.Stage = &stage
	}
	if v := q.Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_score"})
			return
		}
		filter.MinScore = &score
	}
	if v := q.Get("source_type"); v != "" {
		src := model.SourceType(v)
		filter.SourceType = &src
	}

	writeJSON(w, http.StatusOK, funnel.ApplyFilter(opps, filter))
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	tracker, err := store.LoadTracker(r.Context(), s.store, profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracker.FunnelMetrics(profileID, metricsConfig(cfg.Funnel)))
}

func (s *server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	tracker, err := store.LoadTracker(r.Context(), s.store, profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	recs := tracker.StageRecommendations(profileID)
	if recs == nil {
		recs = []funnel.StageRecommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	filter := store.AnalysisFilter{OpportunityID: r.URL.Query().Get("opportunity_id")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	analyses, err := s.store.ListAnalyses(r.Context(), profileID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if analyses == nil {
		analyses = []model.IntegratedAnalysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

// analyzeRequest is the POST /analyze payload. An empty ids list means the
// whole profile.
type analyzeRequest struct {
	IDs             []string      `json:"ids"`
	IncludeResearch bool          `json:"include_research"`
	Profile         model.Profile `json:"profile"`
}

// handleAnalyze kicks off a background batch run and returns 202. Results
// land in the analysis store; clients poll /analyses.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Profile.ID == "" {
		req.Profile.ID = profileID
	}

	opps, err := s.store.ListOpportunities(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.IDs) > 0 {
		wanted := make(map[string]bool, len(req.IDs))
		for _, id := range req.IDs {
			wanted[id] = true
		}
		var selected []model.Opportunity
		for _, opp := range opps {
			if wanted[opp.ID] {
				selected = append(selected, opp)
			}
		}
		opps = selected
	}
	if len(opps) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no matching opportunities"})
		return
	}

	orch := orchestrate.New(buildEngine(req.IncludeResearch), req.Profile)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result := orch.RunBatch(ctx, opps, orchestrate.Options{
			IncludeResearch: req.IncludeResearch,
			CostDelay:       time.Duration(cfg.Batch.CostDelaySecs) * time.Second,
		})
		for _, a := range result.Analyses {
			if err := s.store.SaveAnalysis(ctx, profileID, a); err != nil {
				zap.L().Warn("save analysis failed",
					zap.String("run_id", a.RunID), zap.Error(err))
			}
		}
		zap.L().Info("async batch complete",
			zap.String("profile_id", profileID),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        "accepted",
		"opportunities": len(opps),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
