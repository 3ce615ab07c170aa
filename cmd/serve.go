package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/practice-audit/internal/config"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/monitoring"
	"github.com/sells-group/practice-audit/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		env, err := initEnv(ctx, reg)
		if err != nil {
			return err
		}
		defer env.Close()
		if env.Store == nil {
			return eris.New("serve requires a run store (store.driver)")
		}

		if cfg.Monitoring.Enabled {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.Store),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		router := buildRouter(env.Pipeline, env.Store, reg, cfg.Server.CORSOrigins)
		err = startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
		drainRuns(context.WithoutCancel(ctx), env.Pipeline, config.Timeout(cfg.Server.DrainTimeoutSecs))
		return err
	},
}

// runDrainer waits for audits started in the background.
type runDrainer interface {
	Wait(ctx context.Context) error
}

// drainRuns blocks until in-flight audits persist their outcome or timeout
// elapses. It must run before the store is closed.
func drainRuns(ctx context.Context, d runDrainer, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	zap.L().Info("waiting for in-flight audits", zap.Duration("timeout", timeout))
	if err := d.Wait(ctx); err != nil {
		zap.L().Warn("in-flight audits did not finish before shutdown", zap.Error(err))
	}
}

// auditStarter queues audits for background execution.
type auditStarter interface {
	Start(ctx context.Context, subject model.Subject) (*model.Run, error)
}

// runView is a run with its phase records.
type runView struct {
	*model.Run
	Phases []model.RunPhase `json:"phases"`
}

// buildRouter wires the HTTP API.
func buildRouter(starter auditStarter, st store.Store, gatherer prometheus.Gatherer, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/audits", func(w http.ResponseWriter, req *http.Request) {
		var subject model.Subject
		if err := json.NewDecoder(req.Body).Decode(&subject); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := subject.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		run, err := starter.Start(req.Context(), subject)
		if err != nil {
			zap.L().Error("serve: start audit failed", zap.String("subject", subject.Slug()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not start audit")
			return
		}
		zap.L().Info("serve: audit accepted", zap.String("run_id", run.ID), zap.String("subject", subject.Slug()))
		writeJSON(w, http.StatusAccepted, run)
	})

	r.Get("/audits", func(w http.ResponseWriter, req *http.Request) {
		filter, err := parseRunFilter(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("serve: list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not list audits")
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/audits/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		run, err := st.GetRun(req.Context(), id)
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		if err != nil {
			zap.L().Error("serve: get run failed", zap.String("run_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not load audit")
			return
		}
		phases, err := st.ListPhases(req.Context(), id)
		if err != nil {
			zap.L().Error("serve: list phases failed", zap.String("run_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not load audit")
			return
		}
		if phases == nil {
			phases = []model.RunPhase{}
		}
		writeJSON(w, http.StatusOK, runView{Run: run, Phases: phases})
	})

	return r
}

// parseRunFilter reads the status, subject, limit and offset query
// parameters. subject may be a name or a slug.
func parseRunFilter(req *http.Request) (store.RunFilter, error) {
	q := req.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Limit:  50,
	}
	if name := q.Get("subject"); name != "" {
		filter.Subject = model.Subject{Name: name}.Slug()
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, eris.Errorf("invalid %s %q", name, raw)
		}
		*dst = n
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is cancelled, then shuts down.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
