package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	"github.com/Chative-core-poc-v1/callcenter/internal/core"
	"github.com/Chative-core-poc-v1/callcenter/internal/httpapi"
	"github.com/Chative-core-poc-v1/callcenter/internal/observability"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
	pkgnats "github.com/Chative-core-poc-v1/callcenter/pkg/nats"
	pkgpostgres "github.com/Chative-core-poc-v1/callcenter/pkg/postgres"
	pkgredis "github.com/Chative-core-poc-v1/callcenter/pkg/redis"
)

// AppConfig defines all configurable parameters of the router, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Env string `envconfig:"APP_ENV" default:"development"`
	Log logx.LoggerOpts

	// Infrastructure
	Redis    pkgredis.Config
	Database pkgpostgres.Config
	NATS     pkgnats.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Memory     model.MemoryConfig
	Pipeline   model.PipelineConfig
	Grader     model.GraderModelConfig
	Generator  model.GeneratorModelConfig
	AccountAPI model.AccountAPIConfig
	Search     model.SearchConfig
	Server     model.ServerConfig
	Tracing    observability.TracingConfig
}

func loadConfig() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	cfg.Log.Environment = core.ParseEnvironment(cfg.Env)
	logx.Init(cfg.Log)
	return &cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "callcenter",
		Short:        "Conversational customer-support router for telecom subscribers",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMemoryCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *AppConfig) error {
	shutdownTracer := observability.InitTracer(ctx, cfg.Tracing)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logx.Warn().Err(err).Msg("Error flushing traces")
		}
	}()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.New(app.runner, app.store, app.account, app.metrics).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logx.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logx.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func newMemoryCmd() *cobra.Command {
	memory := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain the memory store",
	}

	memory.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print record counts per kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore := newMemoryStore(cfg)
			defer closeStore()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(store.Stats(cmd.Context()))
		},
	})

	memory.AddCommand(&cobra.Command{
		Use:   "clear <conversation-id>",
		Short: "Drop a conversation's history and identifier link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, closeStore := newMemoryStore(cfg)
			defer closeStore()

			if err := store.ClearConversation(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("clear conversation %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", args[0])
			return nil
		},
	})

	return memory
}
