package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/plaza/internal/auth"
	"github.com/zfogg/plaza/internal/cache"
	"github.com/zfogg/plaza/internal/config"
	"github.com/zfogg/plaza/internal/database"
	"github.com/zfogg/plaza/internal/email"
	"github.com/zfogg/plaza/internal/events"
	"github.com/zfogg/plaza/internal/feed"
	"github.com/zfogg/plaza/internal/handlers"
	"github.com/zfogg/plaza/internal/logger"
	"github.com/zfogg/plaza/internal/metrics"
	"github.com/zfogg/plaza/internal/otp"
	"github.com/zfogg/plaza/internal/posts"
	"github.com/zfogg/plaza/internal/search"
	"github.com/zfogg/plaza/internal/social"
	"github.com/zfogg/plaza/internal/storage"
	"github.com/zfogg/plaza/internal/stories"
	"github.com/zfogg/plaza/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "plaza-backend"

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.InitializeConsole("info")
		logger.FatalWithErr("Invalid configuration", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		logger.InitializeConsole(cfg.LogLevel)
		logger.WarnWithErr("File logging unavailable, logging to console", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Plaza server starting ===", zap.String("environment", cfg.Environment))
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TraceSampleRate,
	})
	if err != nil {
		logger.WarnWithErr("Tracing disabled", err)
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	metrics.Initialize()

	db, err := database.Initialize(cfg.DatabaseURL, cfg.IsDevelopment() && cfg.LogLevel == "debug")
	if err != nil {
		logger.FatalWithErr("Failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(db); err != nil {
		logger.FatalWithErr("Failed to run migrations", err)
	}

	redisClient := connectRedis(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	otpStore, purge := otpBackend(cfg, db, redisClient)
	if purge != nil {
		purge.Start()
		defer purge.Stop()
	}

	images := imageStore(cfg)
	mailer := mailSender(cfg)
	publisher := eventPublisher(cfg)
	defer publisher.Close()

	indexer, searcher := searchBackend(cfg, db)

	authService := auth.NewService(auth.Deps{
		DB:             db,
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		OTPStore:       otpStore,
		Mailer:         mailer,
		Verifier:       googleVerifier(cfg),
		Exchanger:      googleExchanger(cfg),
		Indexer:        indexer,
		Events:         publisher,
		GoogleClientID: cfg.GoogleClientID,
	})

	h := handlers.NewHandlers(handlers.Services{
		Auth:    authService,
		Social:  social.NewService(db, images, publisher),
		Posts:   posts.NewService(db, images, indexer, publisher),
		Stories: stories.NewService(db, images, publisher),
		Feed:    feed.NewService(db),
		Search:  search.NewService(db, searcher),
	})
	h.AddHealthCheck("database", func(ctx context.Context) error { return database.Health(ctx, db) })
	if redisClient != nil {
		h.AddHealthCheck("redis", redisClient.Ping)
	}

	r, stopLimiters := handlers.NewRouter(h, authService, handlers.RouterConfig{
		ServiceName:    serviceName,
		CORSOrigins:    cfg.CORSOrigins,
		TracingEnabled: tp != nil,
		Redis:          redisClient,
	})
	defer stopLimiters()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithErr("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	logger.Log.Info("Server exited")
}

func connectRedis(cfg *config.Config) *cache.RedisClient {
	if cfg.RedisHost == "" {
		logger.Log.Info("REDIS_HOST not set, rate limits and OTP codes stay in process")
		return nil
	}
	rc, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.WarnWithErr("Redis unavailable, continuing without it", err)
		return nil
	}
	return rc
}

// otpBackend picks the OTP store. The database store needs a purge loop;
// Redis expires codes itself.
func otpBackend(cfg *config.Config, db *gorm.DB, rc *cache.RedisClient) (otp.Store, *otp.PurgeService) {
	if cfg.UseRedisOTP() && rc != nil {
		return otp.NewRedisStore(rc), nil
	}
	if cfg.UseRedisOTP() {
		logger.Log.Warn("OTP_STORE=redis but Redis is unavailable, using the database")
	}
	store := otp.NewDBStore(db)
	return store, otp.NewPurgeService(store, 10*time.Minute)
}

func imageStore(cfg *config.Config) storage.ImageStore {
	if cfg.S3Bucket == "" {
		logger.Log.Warn("AWS_BUCKET not set, image uploads are disabled")
		return storage.Disabled{}
	}
	s3, err := storage.NewS3ImageStore(cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBaseURL)
	if err != nil {
		logger.WarnWithErr("S3 unavailable, image uploads are disabled", err)
		return storage.Disabled{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3.CheckBucketAccess(ctx); err != nil {
		logger.WarnWithErr("S3 bucket access failed, uploads may fail", err)
	}
	return s3
}

func mailSender(cfg *config.Config) email.Sender {
	if cfg.MailFrom == "" {
		logger.Log.Warn("MAIL_FROM not set, OTP codes are written to the log")
		return email.LogSender{}
	}
	ses, err := email.NewSESSender(cfg.AWSRegion, cfg.MailFrom, cfg.MailName)
	if err != nil {
		logger.WarnWithErr("SES unavailable, OTP codes are written to the log", err)
		return email.LogSender{}
	}
	return ses
}

func eventPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.Noop{}
	}
	logger.Log.Info("Publishing domain events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
}

// searchBackend returns the Elasticsearch indexer and searcher, or no-ops
// that leave search on the database
func searchBackend(cfg *config.Config, db *gorm.DB) (search.Indexer, search.Searcher) {
	if cfg.ElasticsearchURL == "" {
		return search.NoopIndexer{}, nil
	}
	es, err := search.NewClient(cfg.ElasticsearchURL, nil)
	if err != nil {
		logger.WarnWithErr("Elasticsearch client failed, searching the database", err)
		return search.NoopIndexer{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := es.Ping(ctx); err != nil {
		logger.WarnWithErr("Elasticsearch unreachable, searching the database", err)
		return search.NoopIndexer{}, nil
	}
	if err := es.InitializeIndices(ctx); err != nil {
		logger.WarnWithErr("Failed to create search indices", err)
	}
	return search.NewElasticIndexer(es), search.NewElasticSearcher(es, db)
}

func googleVerifier(cfg *config.Config) auth.TokenVerifier {
	if cfg.GoogleClientID == "" {
		return nil
	}
	v, err := auth.NewGoogleVerifier(context.Background(), telemetry.NewInstrumentedHTTPClient(10*time.Second))
	if err != nil {
		logger.WarnWithErr("Google sign-in disabled", err)
		return nil
	}
	return v
}

func googleExchanger(cfg *config.Config) auth.CodeExchanger {
	oauthCfg := cfg.GoogleOAuthConfig()
	if oauthCfg == nil {
		return nil
	}
	return auth.NewOAuthExchanger(oauthCfg, telemetry.NewInstrumentedHTTPClient(10*time.Second))
}
