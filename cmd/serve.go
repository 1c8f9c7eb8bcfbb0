package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/store"
)

var servePort int

// mathSolver answers one math question.
type mathSolver interface {
	Solve(ctx context.Context, question string) (model.MathTrace, error)
}

// qaAnswerer answers one multi-hop question.
type qaAnswerer interface {
	Answer(ctx context.Context, q model.QAExample) model.QAResult
}

// api serves single-question endpoints and run history.
type api struct {
	math    mathSolver
	qa      qaAnswerer
	store   store.Store
	metrics *metrics.Metrics
	origins []string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP answer server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		pipeline, err := env.mathPipeline(ctx, cfg.Math.FewShot.TrainPath)
		if err != nil {
			return err
		}
		a := &api{
			math:    pipeline,
			store:   env.Store,
			metrics: env.Metrics,
			origins: cfg.Server.AllowedOrigins,
		}
		// The QA endpoint needs a pattern index; serve math alone without one.
		if engine, err := env.qaEngine(ctx, cfg.QA.TrainPath); err != nil {
			zap.L().Warn("qa engine unavailable, /v1/qa/answer disabled", zap.Error(err))
		} else {
			a.qa = engine
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           a.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/math/solve", a.handleSolve)
		r.Post("/qa/answer", a.handleAnswer)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	trace, err := a.math.Solve(r.Context(), req.Question)
	if err != nil {
		zap.L().Error("solve failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "solve interrupted")
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (a *api) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if a.qa == nil {
		writeError(w, http.StatusServiceUnavailable, "qa engine not configured")
		return
	}
	var q model.QAExample
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(q.Context) == 0 {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}
	if q.Type == "" {
		q.Type = model.TypeBridge
	}
	if q.Level == "" {
		q.Level = model.LevelMedium
	}
	q.Type, q.Level = strings.ToLower(q.Type), strings.ToLower(q.Level)

	writeJSON(w, http.StatusOK, a.qa.Answer(r.Context(), q))
}

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.RunFilter{
		Kind:   model.RunKind(query.Get("kind")),
		Status: model.RunStatus(query.Get("status")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}

	runs, err := a.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := loadRunDetail(r.Context(), a.store, chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
