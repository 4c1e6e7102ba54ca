package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"product-lens/internal/ai"
	"product-lens/internal/app"
	"product-lens/internal/cache"
	"product-lens/internal/catalog"
	"product-lens/internal/config"
	"product-lens/internal/metrics"
	rabbitmqClient "product-lens/internal/platform/rabbitmq"
	redisClient "product-lens/internal/platform/redis"
	"product-lens/internal/worker"
)

// RemoteService is the generative service as seen by the rest of the process.
type RemoteService interface {
	app.RemoteFiles
	app.Conversation
	DeleteFile(ctx context.Context, name string) error
	Close() error
}

// App is the startup context: built once before serving and read-only after.
type App struct {
	Config        *config.Config
	Remote        RemoteService
	Catalog       *catalog.Catalog
	ReferenceFile *ai.RemoteFile
	Redis         *redis.Client
	MQConn        *amqp.Connection
	CleanupWorker *worker.RemoteFileCleanupWorker
	Classifier    *app.ClassifyService
	Metrics       *metrics.Metrics

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	gemini, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, ai.GenerationConfig{
		Model:           cfg.Gemini.Model,
		Temperature:     float32(cfg.Gemini.Temperature),
		TopP:            float32(cfg.Gemini.TopP),
		TopK:            int32(cfg.Gemini.TopK),
		MaxOutputTokens: int32(cfg.Gemini.MaxOutputTokens),
	})
	if err != nil {
		return nil, err
	}

	a, err := Assemble(ctx, cfg, gemini)
	if err != nil {
		_ = gemini.Close()
		return nil, err
	}
	return a, nil
}

// Assemble loads the reference table, uploads it to remote and waits for it
// to become active, then wires the optional cache and cleanup queue. Any
// failure is fatal for startup.
func Assemble(ctx context.Context, cfg *config.Config, remote RemoteService) (*App, error) {
	a := &App{
		Config:  cfg,
		Remote:  remote,
		Metrics: metrics.New(),
	}

	products, err := catalog.Load(cfg.Reference.Path)
	if err != nil {
		return nil, err
	}
	a.Catalog = products
	log.Printf("loaded reference table %s: %d rows, %d products", cfg.Reference.Path, products.Len(), len(products.Products()))

	reference, err := remote.UploadFile(ctx, cfg.Reference.Path, cfg.Reference.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("upload reference table failed: %w", err)
	}
	log.Printf("waiting for reference file %s to become active", reference.Name)
	startupWait := a.waitPolicy(cfg.Readiness.StartupMaxAttempts)
	if err := ai.WaitForActive(ctx, remote, startupWait, reference); err != nil {
		return nil, fmt.Errorf("reference table not usable: %w", err)
	}
	a.ReferenceFile = reference
	log.Printf("reference file %s is active", reference.Name)

	var resultCache app.ResultCache
	if cfg.RedisEnabled() {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
		resultCache = cache.NewResultCache(redisCli, cfg.ResultTTL())
	}

	var releaser app.RemoteFileReleaser
	if cfg.Cleanup.DeleteRemoteImages {
		releaser, err = a.startReleaser(ctx)
		if err != nil {
			_ = a.closeInfra()
			return nil, err
		}
	}

	a.Classifier = app.NewClassifyService(remote, remote, products, reference, resultCache, releaser, app.ClassifyOptions{
		TempDir:        cfg.Classify.TempDir,
		MaxImageBytes:  cfg.Classify.MaxImageBytes,
		MaxImageSide:   cfg.Classify.MaxImageSide,
		MaxImagePixels: cfg.Classify.MaxImagePixels,
		Wait:           a.waitPolicy(cfg.Readiness.RequestMaxAttempts),
	})
	a.StartedAt = time.Now()
	return a, nil
}

func (a *App) waitPolicy(maxAttempts int) ai.WaitPolicy {
	return ai.WaitPolicy{
		Interval:    a.Config.PollInterval(),
		MaxAttempts: maxAttempts,
		OnPoll: func(f *ai.RemoteFile) {
			a.Metrics.ObserveFilePoll(string(f.State))
		},
	}
}

// startReleaser picks the queue-backed releaser when RabbitMQ is configured
// and falls back to deleting inline.
func (a *App) startReleaser(ctx context.Context) (app.RemoteFileReleaser, error) {
	if !a.Config.RabbitMQEnabled() {
		log.Printf("remote image cleanup enabled: deleting inline")
		return app.NewDeleteReleaser(a.Remote), nil
	}

	queue := a.Config.RabbitMQ.CleanupQueue
	mqConn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, queue)
	if err != nil {
		return nil, err
	}
	a.MQConn = mqConn

	cleanupWorker := worker.NewRemoteFileCleanupWorker(mqConn, a.Remote, queue)
	if err := cleanupWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start cleanup worker failed: %w", err)
	}
	a.CleanupWorker = cleanupWorker
	log.Printf("remote image cleanup enabled: queue %s", queue)
	return rabbitmqClient.NewRemoteFilePublisher(mqConn, queue), nil
}

func (a *App) Close() error {
	closeErr := a.closeInfra()
	if a.Remote != nil {
		if err := a.Remote.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

func (a *App) closeInfra() error {
	var closeErr error
	if a.CleanupWorker != nil {
		a.CleanupWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
