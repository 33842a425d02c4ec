package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/omaribamark/factcheck-core/internal/application/handlers"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
	embedder "github.com/omaribamark/factcheck-core/internal/infrastructure/embedder/openai"
	llm "github.com/omaribamark/factcheck-core/internal/infrastructure/llm/openai"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/memory"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/metrics"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/notify/email"
	redisstore "github.com/omaribamark/factcheck-core/internal/infrastructure/redis"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/relationaldb/sqlite"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config        *config.Config
	Log           *logger.Logger
	Claims        *handlers.ClaimHandler
	Review        *handlers.ReviewHandler
	Users         *handlers.UserHandler
	Trending      *handlers.TrendingHandler
	Notifications *handlers.NotificationHandler
	Categories    *handlers.CategoryHandler
	Import        *handlers.ImportHandler
	Init          *handlers.InitHandler
}

// internalDeps holds all dependencies including low-level components.
// Used by serve and process.
type internalDeps struct {
	Deps
	metrics      *metrics.Metrics
	relationalDB *sqlite.Repository
	queue        ports.JobQueue
	redis        *redisstore.Client
	recoverer    *redisstore.Queue
	processor    *services.AIProcessor
	claims       *services.ClaimService
	review       *services.ReviewService
	trending     *services.TrendingDetector
	effects      *services.Effects
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	dir, err := baseDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, cleanup, err := buildDeps(ctx, dir, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(d)
}

// buildDeps wires every component from cfg. The returned cleanup waits for
// in-flight side effects before closing connections.
func buildDeps(ctx context.Context, dir string, cfg *config.Config) (*internalDeps, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	fail := func(err error) (*internalDeps, func(), error) {
		cleanup()
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	closers = append(closers, func() error { log.Sync(); return nil })
	m := metrics.New()

	relationalDB, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.DatabasePath(dir)})
	if err != nil {
		return fail(fmt.Errorf("creating sqlite repository: %w", err))
	}
	closers = append(closers, relationalDB.Close)

	if err := relationalDB.EnsureSchema(ctx); err != nil {
		return fail(fmt.Errorf("ensuring sqlite schema: %w", err))
	}

	d := &internalDeps{metrics: m, relationalDB: relationalDB}

	var locker ports.Locker
	if cfg.Redis.Enabled {
		client, err := redisstore.New(ctx, cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("connecting to redis: %w", err))
		}
		closers = append(closers, client.Close)
		queue := redisstore.NewQueue(client)
		d.redis, d.queue, d.recoverer = client, queue, queue
		locker = redisstore.NewLocker(client)
	} else {
		d.queue = memory.NewQueue()
		locker = memory.NewLocker(lockCleanupInterval)
	}

	var (
		index       ports.ClaimIndex
		emb         ports.Embedder
		collections ports.CollectionManager
	)
	if cfg.Qdrant.Enabled {
		repo, err := qdrant.NewRepository(cfg.Qdrant)
		if err != nil {
			return fail(fmt.Errorf("creating qdrant repository: %w", err))
		}
		closers = append(closers, repo.Close)
		e, err := embedder.NewEmbedder(cfg.Embedder)
		if err != nil {
			return fail(fmt.Errorf("creating embedder: %w", err))
		}
		index, emb, collections = repo, e, repo
	}

	var (
		assessor  ports.LLMClient
		generator ports.ContentGenerator
	)
	if cfg.LLM.APIKey != "" {
		client, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return fail(fmt.Errorf("creating llm client: %w", err))
		}
		assessor, generator = client, client
	}

	channels, err := buildChannels(cfg, d.redis)
	if err != nil {
		return fail(err)
	}

	wf := cfg.Workflow
	d.effects = services.NewEffects(log, m)
	// Registered last so it runs first: effects still use the connections.
	closers = append(closers, func() error { d.effects.Wait(); return nil })

	machine := services.NewStateMachine(relationalDB, m)
	categories := services.NewCategoryService(relationalDB)
	if err := categories.LoadDefaults(ctx); err != nil {
		return fail(fmt.Errorf("seeding categories: %w", err))
	}
	similarity := services.NewSimilarityDetector(relationalDB, emb, index, wf.SimilarityThreshold, wf.SemanticThreshold, log)
	notifier := services.NewNotificationDispatcher(relationalDB, channels, log, m)
	d.trending = services.NewTrendingDetector(relationalDB, categories, d.queue, notifier, generator, wf.TrendingThreshold, wf.EngagementMultiplier, log)
	d.claims = services.NewClaimService(relationalDB, d.queue, categories, similarity, d.trending, notifier, machine, d.effects, log)
	finalizer := services.NewVerdictFinalizer(relationalDB, machine, notifier, d.trending, similarity, d.effects, log)
	d.review = services.NewReviewService(relationalDB, machine, finalizer, d.claims, notifier, d.effects, wf.SessionTTL, log)
	users := services.NewUserService(relationalDB, machine, log)
	if assessor != nil {
		d.processor = services.NewAIProcessor(relationalDB, assessor, locker, machine, wf.ConfidenceThreshold, wf.LockTTL, log, m)
	}

	d.Deps = Deps{
		Config:        cfg,
		Log:           log,
		Claims:        handlers.NewClaimHandler(d.claims),
		Review:        handlers.NewReviewHandler(d.review),
		Users:         handlers.NewUserHandler(users),
		Trending:      handlers.NewTrendingHandler(d.trending),
		Notifications: handlers.NewNotificationHandler(notifier, users),
		Categories:    handlers.NewCategoryHandler(categories),
		Import:        handlers.NewImportHandler(services.NewImportService(d.claims, log)),
		Init:          handlers.NewInitHandler(categories, collections, embedder.VectorSize),
	}
	return d, cleanup, nil
}

// buildChannels returns the secondary delivery channels enabled in cfg.
func buildChannels(cfg *config.Config, client *redisstore.Client) ([]ports.Channel, error) {
	var channels []ports.Channel
	if cfg.Email.Enabled {
		ch, err := email.NewChannel(cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("creating email channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if client != nil {
		channels = append(channels, redisstore.NewPushChannel(client, cfg.Redis.PushChannel))
	}
	return channels, nil
}

var errNoLLM = errors.New("an LLM API key is required (set llm.api_key or OPENAI_API_KEY)")
