package main

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fare-cli/internal/analysis"
	"github.com/sells-group/fare-cli/internal/fetch"
	"github.com/sells-group/fare-cli/internal/model"
	"github.com/sells-group/fare-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for fetch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		srv := newAPIServer(ctx, env, defaultRawRequest())
		err = startServer(ctx, srv.routes(), resolvePort(servePort, cfg.Server.Port))
		srv.wait()
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is done, then shuts down
// gracefully.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})
	return g.Wait()
}

// apiServer accepts fetch runs over HTTP and serves the run history.
// Only one run executes at a time.
type apiServer struct {
	ctx      context.Context
	env      *pipelineEnv
	defaults model.RawRequest
	now      func() time.Time

	busy sync.Mutex
	runs sync.WaitGroup
}

func newAPIServer(ctx context.Context, env *pipelineEnv, defaults model.RawRequest) *apiServer {
	return &apiServer{ctx: ctx, env: env, defaults: defaults, now: time.Now}
}

// wait blocks until every accepted run has finished.
func (s *apiServer) wait() {
	s.runs.Wait()
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/itineraries", s.handleItineraries)
		})
	})
	return r
}

func (s *apiServer) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.env.Store == nil {
			writeError(w, http.StatusServiceUnavailable, "run history is disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body model.RawRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, warnings, err := model.ParseRequest(mergeRawRequest(s.defaults, body), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.busy.TryLock() {
		writeError(w, http.StatusConflict, fetch.ErrRunInProgress.Error())
		return
	}

	runID, err := createRun(r.Context(), s.env, req)
	if err != nil {
		s.busy.Unlock()
		zap.L().Error("serve: create run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		defer s.busy.Unlock()

		res, err := executeRun(s.ctx, s.env, req, storedID(s.env, runID))
		if err != nil {
			zap.L().Error("serve: run failed", zap.String("run_id", runID), zap.Error(err))
			return
		}
		zap.L().Info("serve: run complete",
			zap.String("run_id", runID),
			zap.Int("records", res.Stats.Records),
			zap.Int("itineraries", len(res.Analysis.Itineraries)),
			zap.String("output_path", res.OutputPath),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"run_id":      runID,
		"total_calls": fetch.TotalCalls(req),
		"warnings":    warnings,
	})
}

// storedID returns runID when runs are persisted and "" otherwise.
func storedID(env *pipelineEnv, runID string) string {
	if env.Store == nil {
		return ""
	}
	return runID
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:    model.RunStatus(q.Get("status")),
		Departure: q.Get("departure"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.env.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("serve: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleItineraries re-pairs the stored records of a run. The min, max and
// sort query parameters default to the run's own request.
func (s *apiServer) handleItineraries(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	sortKey := string(run.Request.Sort)
	if v := q.Get("sort"); v != "" {
		sortKey = v
	}
	key, err := model.ParseSortKey(sortKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	defaults := run.Request.Trip
	if !defaults.Valid() {
		defaults = model.DefaultTripBounds
	}
	minStr, maxStr := q.Get("min"), q.Get("max")
	if minStr == "" {
		minStr = strconv.Itoa(defaults.Min)
	}
	if maxStr == "" {
		maxStr = strconv.Itoa(defaults.Max)
	}
	bounds, warnings := model.ParseTripBounds(minStr, maxStr)

	records, err := s.env.Store.ListRecords(r.Context(), run.ID)
	if err != nil {
		zap.L().Error("serve: list records failed", zap.String("run_id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	res := analysis.Analyze(records, bounds, key)
	its := res.Itineraries
	if its == nil {
		its = []model.PairedItinerary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"trip":        bounds,
		"sort":        key,
		"excluded":    res.Excluded,
		"warnings":    warnings,
		"itineraries": its,
	})
}

func (s *apiServer) loadRun(w http.ResponseWriter, r *http.Request) (*model.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.env.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("serve: get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return nil, false
	}
	return run, true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
