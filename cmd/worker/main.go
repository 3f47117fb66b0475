package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/boardroomlabs/ancestry/internal/config"
	"github.com/boardroomlabs/ancestry/internal/embedding"
	"github.com/boardroomlabs/ancestry/internal/retrieval"
	"github.com/boardroomlabs/ancestry/internal/secrets"
	"github.com/boardroomlabs/ancestry/internal/simulation"
	"github.com/boardroomlabs/ancestry/internal/store/hybrid"
	"github.com/boardroomlabs/ancestry/internal/store/memstore"
	"github.com/boardroomlabs/ancestry/internal/store/sqlitestore"
	temporalmod "github.com/boardroomlabs/ancestry/internal/temporal"
)

func main() {
	configPath := "configs/ancestry.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	simulation.SetEnabled(cfg.Simulation.Enabled)
	simulation.SetDelay(time.Duration(cfg.Simulation.DelayMs) * time.Millisecond)

	ctx := context.Background()
	if err := resolveSecrets(ctx, cfg); err != nil {
		log.Fatalf("secrets: %v", err)
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer func() {
		if err := closeStore(ctx); err != nil {
			log.Printf("closing store: %v", err)
		}
	}()

	factory := embedding.NewFactory()
	embedding.RegisterBuiltins(factory)

	base := embedding.DefaultConfig()
	base.Provider = cfg.Embedding.Provider
	base.APIKey = cfg.Embedding.APIKey
	base.Model = cfg.Embedding.Model
	base.BaseURL = cfg.Embedding.BaseURL
	base.Dimensions = cfg.Embedding.Dimensions

	svc := embedding.NewService(factory, base, simulation.DefaultControls())
	retriever := retrieval.New(store, svc, retrieval.Config{
		Provider:      cfg.Embedding.Provider,
		Model:         cfg.Embedding.Model,
		Dimensions:    cfg.Embedding.Dimensions,
		AllowFallback: cfg.Embedding.AllowFallback,
	}, nil)

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Retriever: retriever,
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
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
		return err
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = sm.GetOrDefault(ctx, secrets.KeyEmbeddingAPIKey, "")
	}
	if cfg.Store.Neo4j.Password == "" {
		cfg.Store.Neo4j.Password = sm.GetOrDefault(ctx, secrets.KeyNeo4jPassword, "")
	}
	return nil
}

// buildStore selects the datastore backend from config.
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
