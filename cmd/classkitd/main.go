package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"classkitd/internal/common/fsutil"
	"classkitd/internal/config"
	"classkitd/internal/httpapi"
	"classkitd/internal/llm"
	"classkitd/internal/modelfile"
	"classkitd/internal/store"
	"classkitd/internal/studio"
)

var version = "0.3.0"

func main() {
	// A .env next to the binary is the friendliest config surface for
	// non-technical deployments; absence is fine.
	_ = godotenv.Load()

	var (
		configPath string
		flagAddr   string
		flagData   string
		flagBack   string
		flagModel  string
		flagURL    string
		flagLog    string
	)

	root := &cobra.Command{
		Use:           "classkitd",
		Short:         "Local content studio for teachers: generate slides, posters and quizzes offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, flagAddr, flagData, flagBack, flagModel, flagURL, flagLog)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&flagAddr, "addr", "", "HTTP listen address, e.g. :8640")
	root.PersistentFlags().StringVar(&flagData, "data-dir", "", "Directory for the database and model cache")
	root.PersistentFlags().StringVar(&flagBack, "backend", "", "Inference backend: server|ollama|cgo|mock")
	root.PersistentFlags().StringVar(&flagModel, "model-path", "", "Path to the GGUF model file")
	root.PersistentFlags().StringVar(&flagURL, "model-url", "", "URL to download the model from on first run")
	root.PersistentFlags().StringVar(&flagLog, "log-level", "", "Log level: debug|info|warn|error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, flagAddr, flagData, flagBack, flagModel, flagURL, flagLog)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch-model",
		Short: "Download the model file now instead of on first generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(configPath, flagAddr, flagData, flagBack, flagModel, flagURL, flagLog)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			info, err := modelfile.Ensure(cmd.Context(), modelfile.Options{
				Path:   cfg.ModelPath,
				URL:    cfg.ModelURL,
				SHA256: cfg.ModelSHA256,
				Logger: &logger,
			})
			if err != nil {
				return err
			}
			fmt.Printf("model ready: %s (%d bytes)\n", info.Path, info.SizeBytes)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("classkitd " + version)
		},
	}

	root.AddCommand(serveCmd, fetchCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "classkitd:", err)
		os.Exit(1)
	}
}

// resolveConfig merges file config, environment and flags, then defaults.
// Precedence: flags > env > file > defaults.
func resolveConfig(path, addr, dataDir, backend, modelPath, modelURL, logLevel string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg)
	if addr != "" {
		cfg.Addr = addr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if modelURL != "" {
		cfg.ModelURL = modelURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	config.ApplyDefaults(&cfg)
	if cfg.ModelPath == "" {
		cfg.ModelPath = filepath.Join(cfg.DataDir, "models", "model.gguf")
	}
	return cfg, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

// buildGenerator wires the configured inference backend.
func buildGenerator(cfg config.Config, modelInfoPath string, logger zerolog.Logger) (llm.Generator, error) {
	switch cfg.Backend {
	case "server":
		if cfg.LlamaServerURL == "" {
			return nil, fmt.Errorf("backend 'server' requires llama_server_url")
		}
		return llm.NewServerGenerator(cfg.LlamaServerURL, cfg.LlamaAPIKey, 0, logger), nil
	case "ollama":
		if cfg.OllamaModel == "" {
			return nil, fmt.Errorf("backend 'ollama' requires ollama_model")
		}
		return llm.NewOllamaGenerator(cfg.OllamaHost, cfg.OllamaModel)
	case "cgo":
		return llm.NewCgoGenerator(modelInfoPath, cfg.LlamaCtx, cfg.LlamaThreads), nil
	case "mock", "":
		return llm.NewMockGenerator(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want server|ollama|cgo|mock)", cfg.Backend)
}

func runServe(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Release: "classkitd@" + version}); err != nil {
			logger.Warn().Err(err).Msg("sentry init failed; continuing without it")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	dataDir, err := fsutil.ExpandHome(cfg.DataDir)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Base context canceled on SIGINT/SIGTERM; handlers and downloads hang
	// off it so shutdown interrupts in-flight work.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The cgo backend loads the file itself, so it must exist up front. The
	// other backends only report it in /status.
	modelInfo := modelfile.Info(cfg.ModelPath)
	if cfg.Backend == "cgo" {
		modelInfo, err = modelfile.Ensure(ctx, modelfile.Options{
			Path:   cfg.ModelPath,
			URL:    cfg.ModelURL,
			SHA256: cfg.ModelSHA256,
			Logger: &logger,
		})
		if err != nil {
			return err
		}
	}

	gen, err := buildGenerator(cfg, modelInfo.Path, logger)
	if err != nil {
		return err
	}

	dbPath, err := fsutil.ExpandHome(cfg.DBPath)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc := studio.New(studio.Config{
		Store:     st,
		Generator: gen,
		Params: llm.Params{
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			TopP:        float32(cfg.TopP),
			TopK:        cfg.TopK,
		},
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSeconds) * time.Second,
		ModelInfo:     modelInfo,
		Logger:        logger,
		Publisher:     studio.NewStreamPublisher(),
	})
	defer svc.Close()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetAccessCode(cfg.AccessCode)
	httpapi.SetAccessCodeHash(cfg.AccessCodeHash)
	httpapi.SetGenerateRateLimit(cfg.GenerateRatePerSec, cfg.GenerateBurst)
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Authorization", "Content-Type", "X-Access-Code"})
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("backend", svc.Backend()).Str("db", dbPath).Msg("classkitd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
		return err
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
