package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tracker-backend/internal/config"
	"tracker-backend/internal/db"
	"tracker-backend/internal/logging"
	"tracker-backend/internal/server"
	"tracker-backend/internal/types"
)

var (
	cfg    config.Config
	logger *zap.Logger

	askSession string
)

var rootCmd = &cobra.Command{
	Use:           "tracker",
	Short:         "Project tracker backend with conversational quick updates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		var err error
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations to DB_URL",
	RunE:  runMigrate,
}

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Run one quick-update prompt through the engine and print the result",
	Long: `Sends a single prompt through extraction, slot filling and dispatch
against the configured database. Pass --session to continue a conversation;
with SESSION_BACKEND=db the state survives between invocations.

Example:
  tracker ask --session demo "Create an issue called Login bug in Apollo"
  tracker ask --session demo "assign it to Dee, due tomorrow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "session id to continue (generated when empty)")
	rootCmd.AddCommand(serveCmd, migrateCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := server.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer s.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, err := db.New(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("migrations applied", zap.String("driver", database.Driver))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	s, err := server.NewServer(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	sid := askSession
	if sid == "" {
		sid = uuid.NewString()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := s.Engine().Handle(ctx, sid, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := types.QuickUpdateResponse{
		Success:       res.Err == nil,
		SessionID:     sid,
		Intent:        string(res.Intent),
		Message:       res.Message,
		FollowUp:      len(res.MissingFields) > 0,
		MissingFields: res.MissingFields,
		Collected:     res.Collected,
		Created:       res.Created,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
