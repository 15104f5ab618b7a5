// LLM batch processor — main entry point.
//
// Processes every file in the input directory through a remote
// completion service, pairing each document with a system prompt
// composed from named prompt fragments, and writes one response file per
// successful document.
//
// Environment variables:
//
//	OPENAI_API_KEY   — single API key (overrides openai.api_key)
//	OPENAI_API_KEYS  — comma-separated API keys (overrides OPENAI_API_KEY)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abdhe/llm-batch-processor/pkg/cache"
	"github.com/abdhe/llm-batch-processor/pkg/completion"
	"github.com/abdhe/llm-batch-processor/pkg/config"
	"github.com/abdhe/llm-batch-processor/pkg/pipeline"
	"github.com/abdhe/llm-batch-processor/pkg/prompt"
	"github.com/abdhe/llm-batch-processor/pkg/provider"
	"github.com/abdhe/llm-batch-processor/pkg/resilience"
	"github.com/abdhe/llm-batch-processor/pkg/store"
)

// defaultPrompt is written to the prompts directory on first run so the
// tool works out of the box.
const defaultPrompt = "You are a helpful assistant. Provide clear and concise answers to the user's queries."

var (
	cfgFile      string
	promptFiles  []string
	inputDir     string
	outputDir    string
	outputPrefix string
	model        string
	temperature  float32
	maxTokens    int32
	maxWorkers   int
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "processor",
		Short:         "Process a directory of documents through an LLM completion service",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to YAML configuration file")
	flags.StringSliceVar(&promptFiles, "prompt", nil, "prompt fragment file names (repeatable)")
	flags.StringVar(&inputDir, "input-dir", "", "directory of input documents")
	flags.StringVar(&outputDir, "output-dir", "", "directory for response files")
	flags.StringVar(&outputPrefix, "output-prefix", "", "prefix for output file names")
	flags.StringVar(&model, "model", "", "completion model identifier")
	flags.Float32Var(&temperature, "temperature", 0, "sampling temperature")
	flags.Int32Var(&maxTokens, "max-tokens", 0, "maximum output token budget")
	flags.IntVar(&maxWorkers, "max-workers", 0, "worker pool ceiling")
	flags.BoolVar(&verbose, "verbose", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	fileStore := store.NewFileStore(cfg.InputDir, cfg.OutputDir, cfg.OutputPrefix)
	if err := fileStore.EnsureDirs(); err != nil {
		return err
	}
	if err := ensureDefaultPrompt(cfg.PromptsDir); err != nil {
		return err
	}

	// The system prompt is composed once, before any worker starts. A
	// missing fragment aborts the run here, with nothing yet submitted.
	composer := prompt.NewComposer(cfg.PromptsDir)
	systemPrompt, err := composer.Compose(cfg.PromptFiles)
	if err != nil {
		return err
	}

	client, closeCache, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	metricsServer := startMetricsServer(cfg.MetricsPort, logger)

	p := pipeline.New(fileStore, client, cfg.MaxWorkers, logger)
	if err := p.Run(context.Background(), systemPrompt); err != nil {
		return err
	}

	stats := p.Stats()
	logger.Info("run finished",
		zap.Int("processed", stats.Processed),
		zap.Int("failed", stats.Failed))

	stopMetricsServer(metricsServer, logger)

	// Per-document failures are reported via logs only; the process
	// exits zero once enumeration and setup succeeded.
	return nil
}

// applyFlagOverrides lets explicit CLI flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("prompt") {
		cfg.PromptFiles = promptFiles
	}
	if flags.Changed("input-dir") {
		cfg.InputDir = inputDir
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("output-prefix") {
		cfg.OutputPrefix = outputPrefix
	}
	if flags.Changed("model") {
		cfg.OpenAI.Model = model
	}
	if flags.Changed("temperature") {
		cfg.OpenAI.Temperature = temperature
	}
	if flags.Changed("max-tokens") {
		cfg.OpenAI.MaxTokens = maxTokens
	}
	if flags.Changed("max-workers") {
		cfg.MaxWorkers = maxWorkers
	}
}

// buildClient wires the completion client from configuration. The
// returned cleanup closes the Redis connection when a cache is in use.
func buildClient(cfg *config.Config, logger *zap.Logger) (*completion.Client, func(), error) {
	closeCache := func() {}

	var respCache cache.ResponseCache
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL.Std())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("redis connection failed, response cache disabled", zap.Error(err))
			rc.Close()
		} else {
			logger.Info("response cache enabled",
				zap.String("addr", cfg.Cache.RedisAddr),
				zap.Duration("ttl", cfg.Cache.TTL.Std()))
			respCache = rc
			closeCache = func() { rc.Close() }
		}
	}

	var breaker *resilience.CircuitBreaker
	if cfg.Breaker.Enabled {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown.Std(),
		})
	}

	client, err := completion.New(completion.Config{
		Provider:    resolveProvider(cfg.OpenAI.Model),
		Keys:        resilience.NewKeyPool(cfg.Keys()),
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BackoffBase: cfg.Retry.BackoffBase,
			BackoffUnit: cfg.Retry.BackoffUnit.Std(),
		},
		Breaker:        breaker,
		Cache:          respCache,
		RequestTimeout: cfg.RequestTimeout.Std(),
		Logger:         logger,
	})
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return client, closeCache, nil
}

// resolveProvider maps a model name to its backend. Prefix-based:
// gemini models go to the Gemini API, everything else to OpenAI.
func resolveProvider(model string) provider.Provider {
	if strings.HasPrefix(model, "gemini") {
		return provider.NewGeminiProvider("")
	}
	return provider.NewOpenAIProvider("")
}

// ensureDefaultPrompt creates the prompts directory and a standard
// prompt file on first run.
func ensureDefaultPrompt(promptsDir string) error {
	if err := os.MkdirAll(promptsDir, 0o755); err != nil {
		return fmt.Errorf("create prompts directory %s: %w", promptsDir, err)
	}
	path := filepath.Join(promptsDir, "standard_prompt.txt")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultPrompt), 0o644)
}

// startMetricsServer exposes /metrics and /healthz while the batch runs.
// A port of 0 disables it.
func startMetricsServer(port int, logger *zap.Logger) *http.Server {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return srv
}

func stopMetricsServer(srv *http.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown error", zap.Error(err))
	}
}

// newLogger builds the process-wide logger. All workers log through it;
// zap serializes writes so tasks never block on each other beyond the
// sink itself.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
