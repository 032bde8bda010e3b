// Package app assembles the Fiber application: middleware, collaborators
// and route registration.
package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/database"
	"certchain-backend/internal/emails"
	"certchain-backend/internal/health"
	"certchain-backend/internal/issuance"
	"certchain-backend/internal/issuers"
	"certchain-backend/internal/middleware"
	"certchain-backend/internal/pkg/encrypt"
	"certchain-backend/internal/storage"
	"certchain-backend/internal/verification"
)

// CreateApp builds the Fiber app with all global middleware and routes.
// Returned DB and Redis handles are for startup probes; either may be nil
// when the corresponding URL is not configured.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
		BodyLimit:             100 * 1024 * 1024, // bulk zips carry hundreds of PDFs
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: ".certchain.io"}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		cache = redis.NewClient(opts)
	}

	gateway := chain.NewRPCClient(cfg.RPCEndpoint, cfg.ContractAddress)
	submitter := chain.NewSubmitter(gateway, cfg.Network, cfg.RetryDelay)
	codec := encrypt.NewCodec(cfg.EncryptionKey)

	var store *storage.Store
	if cfg.BucketName != "" {
		var err error
		store, err = storage.New(context.Background(), cfg.BucketName)
		if err != nil {
			// backups are best effort; run without them
			log.Warn().Err(err).Msg("backup store unavailable")
		}
	}

	var mailer emails.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emails.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}

	healthHandlers := &health.Handlers{DB: db, Cache: cache, Gateway: gateway}
	app.Get("/health", healthHandlers.JSON)

	api := app.Group("/api/v1")

	issuanceHandlers := &issuance.Handlers{Service: &issuance.Service{
		DB:        db,
		Submitter: submitter,
		Codec:     codec,
		Store:     store,
		Cfg:       cfg,
	}}
	api.Post("/issue", issuanceHandlers.Issue)
	api.Post("/issue/pdf", issuanceHandlers.IssuePDF)
	api.Post("/issue/bulk-single", issuanceHandlers.BulkSingle)
	api.Post("/issue/bulk-batch", issuanceHandlers.BulkBatch)

	verificationHandlers := &verification.Handlers{Service: &verification.Service{
		DB:      db,
		Gateway: gateway,
		Codec:   codec,
		Cache:   cache,
		Cfg:     cfg,
	}}
	api.Post("/verify", verificationHandlers.VerifyPDF)
	api.Post("/verify/id", verificationHandlers.VerifyID)
	api.Post("/verify/decode", verificationHandlers.Decode)

	issuerHandlers := &issuers.Handlers{Service: &issuers.Service{
		DB:      db,
		Gateway: gateway,
		Emails:  mailer,
		Cfg:     cfg,
	}}
	api.Post("/issuers/validate", issuerHandlers.Validate)

	return app, db, cache, nil
}
