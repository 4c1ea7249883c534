package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"englishqa/internal/billing"
	"englishqa/internal/config"
	"englishqa/internal/logging"
	"englishqa/internal/middleware"
	"englishqa/internal/providers"
	"englishqa/internal/question"
	"englishqa/internal/queue"
	"englishqa/internal/ratelimit"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// Dependencies aggregates everything the HTTP layer owns, so the main
// process can shut the pieces down in order.
type Dependencies struct {
	DB          *storage.DB
	Redis       *storage.RedisClient
	UsageQueue  queue.Queue
	UsageWorker *billing.UsageWorker
	Exchanges   logging.Sink

	logger *utils.Logger
}

// Close stops background work and releases connections. Order matters: the
// worker drains before its queue closes, and the sink flushes before the
// process exits.
func (d *Dependencies) Close() {
	if d.UsageWorker != nil {
		d.UsageWorker.Stop()
	}
	if d.UsageQueue != nil {
		if err := d.UsageQueue.Close(); err != nil {
			d.logger.Error("failed to close usage queue", "error", err)
		}
	}
	if d.Exchanges != nil {
		d.Exchanges.Shutdown()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Error("failed to close Redis", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.logger.Error("failed to close database", "error", err)
		}
	}
}

// NewRouter builds the HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		APIKeyCacheSize: cfg.Cache.APIKeyCacheSize,
		APIKeyCacheTTL:  cfg.Cache.APIKeyCacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient, err := storage.NewRedisClient(storage.RedisConfig{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	encryption, err := storage.NewEncryption(cfg.EncryptionKey)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	userRepo := storage.NewUserRepository(db)
	transactionRepo := storage.NewTransactionRepository(db)
	recordRepo := storage.NewQuestionRecordRepository(db)
	apiKeyRepo := storage.NewAPIKeyRepository(db, encryption)

	var limiter ratelimit.Limiter = ratelimit.NewNoopLimiter()
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewRateLimiter(redisClient.Client(), cfg.RateLimit.WindowExpiry)
	}

	// Usage queue and worker: async quota accounting for provider keys
	queueCfg := &queue.Config{
		QueueName:    "usage",
		BatchSize:    cfg.UsageQueue.BatchSize,
		BatchTimeout: cfg.UsageQueue.BatchTimeout,
		MaxRetries:   cfg.UsageQueue.MaxRetries,
		RetryBackoff: cfg.UsageQueue.RetryBackoff,
	}

	var usageQueue queue.Queue
	var usageDLQ queue.DeadLetterQueue
	if cfg.UsageQueue.UseRedis {
		usageQueue = queue.NewRedisQueue(redisClient.Client(), queueCfg)
		usageDLQ = queue.NewRedisDeadLetterQueue(redisClient.Client(), queueCfg)
	} else {
		usageQueue = queue.NewMemoryQueue(queueCfg)
		usageDLQ = queue.NewMemoryDeadLetterQueue()
	}

	spendTracker := billing.NewSpendTracker(redisClient.Client())
	usageWorker := billing.NewUsageWorker(usageQueue, usageDLQ, apiKeyRepo, spendTracker, queueCfg)
	usageWorker.Start()

	// Exchange audit log: always to local JSONL, optionally archived to S3
	exchangeLogger, err := logging.NewExchangeLogger(
		cfg.ExchangeLog.FilePathTemplate,
		cfg.ExchangeLog.MaxSize,
		cfg.ExchangeLog.MaxFiles,
		cfg.ExchangeLog.BufferSize,
		cfg.ExchangeLog.FlushInterval,
	)
	if err != nil {
		usageWorker.Stop()
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize exchange logger: %w", err)
	}

	var exchanges logging.Sink = exchangeLogger
	if cfg.ExchangeLog.S3Enabled {
		s3Writer, err := logging.NewS3Writer(
			context.Background(),
			cfg.ExchangeLog.S3Bucket,
			cfg.ExchangeLog.S3Region,
			cfg.ExchangeLog.S3Prefix,
			cfg.ExchangeLog.InstanceName,
		)
		if err != nil {
			exchangeLogger.Shutdown()
			usageWorker.Stop()
			redisClient.Close()
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize S3 writer: %w", err)
		}
		s3Sink := logging.NewS3Sink(s3Writer, cfg.ExchangeLog.S3FlushSize, cfg.ExchangeLog.BufferSize, cfg.ExchangeLog.S3FlushInterval)
		exchanges = logging.NewMultiSink(exchangeLogger, s3Sink)
	}

	providerClient := providers.NewDoubaoClient(providers.DoubaoConfig{
		BaseURL:        cfg.Provider.BaseURL,
		Model:          cfg.Provider.Model,
		Temperature:    cfg.Provider.Temperature,
		MaxTokens:      cfg.Provider.MaxTokens,
		RequestTimeout: cfg.Provider.RequestTimeout,
	})

	ledger := billing.NewLedger(db, userRepo, transactionRepo, recordRepo)
	pricer := billing.NewPricer(cfg.Billing.UnitPricePer1K)
	selector := providers.NewSelector(apiKeyRepo)
	questionService := question.NewService(selector, providerClient, pricer, ledger, usageQueue, exchanges)

	deps := &Dependencies{
		DB:          db,
		Redis:       redisClient,
		UsageQueue:  usageQueue,
		UsageWorker: usageWorker,
		Exchanges:   exchanges,
		logger:      utils.NewLogger("httpapi"),
	}

	usersHandler := NewUsersHandler(userRepo, transactionRepo, ledger, cfg.JWTSecret, cfg.JWTExpiry)
	questionsHandler := NewQuestionsHandler(questionService, recordRepo)
	adminKeysHandler := NewAdminAPIKeysHandler(apiKeyRepo)
	adminUsersHandler := NewAdminUsersHandler(userRepo)

	mux := http.NewServeMux()
	registerRoutes(mux, cfg, deps, limiter, usersHandler, questionsHandler, adminKeysHandler, adminUsersHandler, userRepo)

	return mux, deps, nil
}

func registerRoutes(
	mux *http.ServeMux,
	cfg *config.Config,
	deps *Dependencies,
	limiter ratelimit.Limiter,
	users *UsersHandler,
	questions *QuestionsHandler,
	adminKeys *AdminAPIKeysHandler,
	adminUsers *AdminUsersHandler,
	userRepo *storage.UserRepository,
) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		if err := deps.Redis.Ping(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public endpoints
	mux.HandleFunc("/api/users/register", users.Register)
	mux.HandleFunc("/api/users/token", users.Token)

	authed := middleware.RequireUser(userRepo, cfg.JWTSecret)
	rateLimited := middleware.RateLimit(limiter, cfg.RateLimit.AsksPerMinute)

	// Authenticated user endpoints
	mux.Handle("/api/users/me", authed(http.HandlerFunc(users.Me)))
	mux.Handle("/api/users/deposit", authed(http.HandlerFunc(users.Deposit)))
	mux.Handle("/api/users/transactions", authed(http.HandlerFunc(users.Transactions)))

	// The ask endpoint carries the rate limit; reads do not
	mux.Handle("/api/questions/ask", authed(rateLimited(http.HandlerFunc(questions.Ask))))
	mux.Handle("/api/questions/history", authed(http.HandlerFunc(questions.History)))
	mux.Handle("/api/questions/records/", authed(http.HandlerFunc(questions.GetRecord)))

	// Admin endpoints
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(h))
	}
	mux.Handle("/admin/api-keys", admin(adminKeys.Collection))
	mux.Handle("/admin/api-keys/", admin(adminKeys.Item))
	mux.Handle("/admin/users", admin(adminUsers.List))
	mux.Handle("/admin/users/", admin(adminUsers.Item))
}
