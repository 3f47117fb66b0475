package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardroomlabs/ancestry/internal/config"
	"github.com/boardroomlabs/ancestry/internal/embedding"
	"github.com/boardroomlabs/ancestry/internal/observability"
	"github.com/boardroomlabs/ancestry/internal/retrieval"
	"github.com/boardroomlabs/ancestry/internal/secrets"
	"github.com/boardroomlabs/ancestry/internal/server"
	"github.com/boardroomlabs/ancestry/internal/simulation"
	"github.com/boardroomlabs/ancestry/internal/store/hybrid"
	"github.com/boardroomlabs/ancestry/internal/store/memstore"
	"github.com/boardroomlabs/ancestry/internal/store/sqlitestore"
)

var version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ancestry",
		Short: "Decision ancestry retrieval service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/ancestry.yaml", "Config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var (
		decisionID     string
		decisionName   string
		summary        string
		bodyText       string
		topK           int
		candidateLimit int
	)
	retrieveCmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Run a one-shot ancestry lookup and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrieve(configPath, retrieval.Query{
				DecisionID:     decisionID,
				Name:           decisionName,
				Summary:        summary,
				BodyText:       bodyText,
				TopK:           topK,
				CandidateLimit: candidateLimit,
			})
		},
	}
	retrieveCmd.Flags().StringVar(&decisionID, "id", "", "Decision id of the query")
	retrieveCmd.Flags().StringVar(&decisionName, "name", "", "Decision name")
	retrieveCmd.Flags().StringVar(&summary, "summary", "", "Decision summary")
	retrieveCmd.Flags().StringVar(&bodyText, "body", "", "Decision body text")
	retrieveCmd.Flags().IntVar(&topK, "top-k", 0, "Number of matches to return (0 = default)")
	retrieveCmd.Flags().IntVar(&candidateLimit, "candidates", 0, "Candidate fetch limit (0 = default)")
	_ = retrieveCmd.MarkFlagRequired("id")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available embedding providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available embedding providers:")
			fmt.Println()
			fmt.Println("  remote   OpenAI-compatible /embeddings endpoint (set base_url and api_key)")
			fmt.Println("  local    Deterministic hash-expansion embedder, no network")
			fmt.Println()
			fmt.Println("Configure in ancestry.yaml or via environment:")
			fmt.Println("  ANCESTRY_EMBEDDING_PROVIDER=remote")
			fmt.Println("  ANCESTRY_EMBEDDING_BASE_URL=https://api.openai.com/v1")
			fmt.Println("  ANCESTRY_EMBEDDING_API_KEY=sk-...")
			fmt.Println("  ANCESTRY_EMBEDDING_MODEL=text-embedding-3-small")
		},
	}

	rootCmd.AddCommand(serveCmd, retrieveCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg := loadConfig(configPath)
	logger := newLogger(cfg.Log)

	simulation.SetEnabled(cfg.Simulation.Enabled)
	simulation.SetDelay(time.Duration(cfg.Simulation.DelayMs) * time.Millisecond)

	ctx := context.Background()
	if err := resolveSecrets(ctx, cfg); err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    "ancestry",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	retriever := buildRetriever(cfg, store, logger)
	srv := server.New(retriever, version, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := server.NewShutdownHandler(30*time.Second, logger)
	shutdown.RegisterHook("http", 10, func(ctx context.Context) error {
		return httpSrv.Shutdown(ctx)
	})
	shutdown.RegisterHook("store", 50, closeStore)
	shutdown.RegisterHook("tracing", 90, tp.Shutdown)
	shutdown.Start()

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			shutdown.Shutdown()
		}
	}()

	shutdown.Wait()
	logger.Info("server stopped")
	return nil
}

func runRetrieve(configPath string, q retrieval.Query) error {
	cfg := loadConfig(configPath)
	logger := newLogger(cfg.Log)

	simulation.SetEnabled(cfg.Simulation.Enabled)
	simulation.SetDelay(time.Duration(cfg.Simulation.DelayMs) * time.Millisecond)

	ctx := context.Background()
	if err := resolveSecrets(ctx, cfg); err != nil {
		return err
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(ctx); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()

	retriever := buildRetriever(cfg, store, logger)
	result := retriever.Retrieve(ctx, q)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// loadConfig falls back to defaults when the config file is missing so the
// CLI works out of the box.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = &config.Config{
			Embedding: config.EmbeddingConfig{Provider: "local"},
			Store:     config.StoreConfig{Driver: "memory"},
			Server:    config.ServerConfig{Addr: ":8080"},
		}
	}
	return cfg
}

// resolveSecrets fills credentials the config file left blank from the
// secrets backend.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	var fileCfg *secrets.FileConfig
	if cfg.Secrets.Provider == "file" {
		fileCfg = &secrets.FileConfig{Path: cfg.Secrets.Path}
	}
	sm, err := secrets.NewManager(&secrets.Config{
		Provider: cfg.Secrets.Provider,
		File:     fileCfg,
	})
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = sm.GetOrDefault(ctx, secrets.KeyEmbeddingAPIKey, "")
	}
	if cfg.Store.Neo4j.Password == "" {
		cfg.Store.Neo4j.Password = sm.GetOrDefault(ctx, secrets.KeyNeo4jPassword, "")
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func buildRetriever(cfg *config.Config, store retrieval.Store, logger *slog.Logger) *retrieval.Retriever {
	factory := embedding.NewFactory()
	embedding.RegisterBuiltins(factory)

	base := embedding.DefaultConfig()
	base.Provider = cfg.Embedding.Provider
	base.APIKey = cfg.Embedding.APIKey
	base.Model = cfg.Embedding.Model
	base.BaseURL = cfg.Embedding.BaseURL
	base.Dimensions = cfg.Embedding.Dimensions

	svc := embedding.NewService(factory, base, simulation.DefaultControls())

	return retrieval.New(store, svc, retrieval.Config{
		Provider:      cfg.Embedding.Provider,
		Model:         cfg.Embedding.Model,
		Dimensions:    cfg.Embedding.Dimensions,
		AllowFallback: cfg.Embedding.AllowFallback,
	}, logger)
}

// buildStore selects the datastore backend from config. The returned close
// function releases the backend's resources.
func buildStore(ctx context.Context, cfg *config.Config) (retrieval.Store, func(context.Context) error, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return memstore.New(), func(context.Context) error { return nil }, nil

	case "sqlite":
		db, err := sqlitestore.Open(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, func(context.Context) error { return db.Close() }, nil

	case "hybrid":
		graph, err := hybrid.NewGraph(ctx, cfg.Store.Neo4j.URI, cfg.Store.Neo4j.Username, cfg.Store.Neo4j.Password)
		if err != nil {
			return nil, nil, err
		}
		vectors, err := hybrid.NewVectorCache(cfg.Store.Qdrant.Host, cfg.Store.Qdrant.Port, cfg.Store.Qdrant.Collection)
		if err != nil {
			_ = graph.Close(ctx)
			return nil, nil, err
		}
		s := hybrid.New(graph, vectors)
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
