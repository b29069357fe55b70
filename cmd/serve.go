package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-pipeline/internal/distribution"
)

var (
	servePort     int
	sweepDivision string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the distribution HTTP server",
	Long: `Serve the distribution endpoints used by the CRM frontend.

With --sweep-division set, a background sweeper also tops up every
under-threshold employee in that division on the configured interval.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		engine := newEngine(st)

		handler := newRouter(engine, allowedOrigins())

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		}

		g, gctx := errgroup.WithContext(ctx)

		if sweepDivision != "" {
			interval := time.Duration(cfg.Distribution.SweepIntervalMins) * time.Minute
			sweeper := distribution.NewSweeper(engine, sweepDivision, interval)
			g.Go(func() error {
				sweeper.Run(gctx)
				return nil
			})
		}

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// newRouter builds the distribution API surface: health, direct top-up, and
// division-wide sweep, behind CORS for the CRM frontend.
func newRouter(engine *distribution.Engine, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/distribution/assign", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			EmployeeEmail string `json:"employee_email"`
			Division      string `json:"division"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.EmployeeEmail == "" || body.Division == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "employee_email and division are required"})
			return
		}

		result, err := engine.DirectTopUp(req.Context(), body.EmployeeEmail, body.Division)
		if err != nil {
			zap.L().Error("direct top-up failed",
				zap.String("employee", body.EmployeeEmail),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "assignment failed"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/api/distribution/topup-all", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Division string `json:"division"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Division == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "division is required"})
			return
		}

		result, err := engine.BatchSweep(req.Context(), body.Division)
		if err != nil {
			zap.L().Error("batch sweep failed",
				zap.String("division", body.Division),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	return r
}

func allowedOrigins() []string {
	if len(cfg.Server.AllowedOrigins) > 0 {
		return cfg.Server.AllowedOrigins
	}
	return []string{"*"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&sweepDivision, "sweep-division", "", "run the background sweeper for this division")
	rootCmd.AddCommand(serveCmd)
}
