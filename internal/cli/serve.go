package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/roach88/sitepipe/internal/execution"
	"github.com/roach88/sitepipe/internal/stack"
	"github.com/roach88/sitepipe/internal/store"
	"github.com/roach88/sitepipe/internal/trigger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string

	// IDGenerator overrides execution IDs (for testing). Nil means UUIDv7.
	IDGenerator execution.IDGenerator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <stack-file>...",
		Short: "Receive push webhooks and track executions",
		Long: `Synthesize each stack, record the definitions, and serve:

  POST /webhooks/{pipeline}                 signed GitHub push webhook
  GET  /executions/{id}                     execution state and events
  POST /executions/{id}/actions/{action}    executor outcome report
  GET  /healthz                             liveness

Example:
  sitepipe serve --db sitepipe.db --addr :8080 dev.cue prod.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// server is everything serve wires together.
type server struct {
	handler   http.Handler
	store     *store.Store
	tracker   *execution.Tracker
	pipelines []string
}

func (s *server) Close() error { return s.store.Close() }

// buildServer synthesizes every stack file, records the definitions and
// returns the routed handler. The caller closes the server.
func buildServer(ctx context.Context, opts *ServeOptions, paths []string, logger *slog.Logger) (*server, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err}
	}
	last, err := st.LastEventSeq(ctx)
	if err != nil {
		st.Close()
		return nil, &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err}
	}

	trackerOpts := []execution.Option{
		execution.WithSink(st),
		execution.WithClock(execution.NewClockAt(last)),
		execution.WithLogger(logger),
	}
	if opts.IDGenerator != nil {
		trackerOpts = append(trackerOpts, execution.WithIDGenerator(opts.IDGenerator))
	}
	tracker := execution.NewTracker(trackerOpts...)
	receiver := trigger.NewReceiver(tracker, logger)

	srv := &server{store: st, tracker: tracker}
	for _, path := range paths {
		s, err := ResolveStack(path)
		if err != nil {
			st.Close()
			return nil, err
		}
		def, err := stack.Synthesize(s, stack.WithLogger(logger))
		if err != nil {
			st.Close()
			return nil, err
		}
		if _, err := st.WriteDefinition(ctx, def); err != nil {
			st.Close()
			return nil, &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err}
		}
		if err := tracker.Register(def); err != nil {
			st.Close()
			return nil, err
		}
		receiver.Register(def.Webhook)
		srv.pipelines = append(srv.pipelines, def.Pipeline.Name)
		logger.Info("pipeline registered", "pipeline", def.Pipeline.Name, "digest", def.Digest)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	receiver.Handle(router)
	tracker.Handle(router)
	srv.handler = router

	return srv, nil
}

func runServe(opts *ServeOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	srv, err := buildServer(ctx, opts, paths, logger)
	if err != nil {
		return reportLoadFailure(formatter, err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	fmt.Fprintf(formatter.Writer, "Serving %d pipeline(s) on %s\n", len(srv.pipelines), opts.Addr)
	for _, p := range srv.pipelines {
		formatter.VerboseLog("  /webhooks/%s", p)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return formatter.fail(ExitCommandError, ErrCodeServe, err.Error(), nil)
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
