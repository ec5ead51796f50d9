package router

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	authsvc "handover-backend/internal/application/auth"
	emailsvc "handover-backend/internal/application/emails"
	healthsvc "handover-backend/internal/application/health"
	lesvc "handover-backend/internal/application/listingevents"
	listsvc "handover-backend/internal/application/listings"
	msgsvc "handover-backend/internal/application/messages"
	uploadsvc "handover-backend/internal/application/uploads"
	usersvc "handover-backend/internal/application/user"
	"handover-backend/internal/config"
	"handover-backend/internal/infrastructure/cache"
	"handover-backend/internal/infrastructure/database"
	authhandler "handover-backend/internal/interfaces/handlers/auth"
	healthhandler "handover-backend/internal/interfaces/handlers/health"
	lehandler "handover-backend/internal/interfaces/handlers/listingevents"
	listhandler "handover-backend/internal/interfaces/handlers/listings"
	msghandler "handover-backend/internal/interfaces/handlers/messages"
	uploadhandler "handover-backend/internal/interfaces/handlers/uploads"
	userhandler "handover-backend/internal/interfaces/handlers/user"
	"handover-backend/internal/middleware"
	"handover-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the opened connections and adapters the routes are built from.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Rdb    *redis.Client
	Signer uploadsvc.Signer
	Mailer emailsvc.Sender
}

// CreateApp opens Postgres and Redis from cfg, picks the upload signer and
// returns the wired app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	rdb, err := cache.Open(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis: %w", err)
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, fmt.Errorf("database migrate: %w", err)
		}
	} else {
		log.Warn().Msg("router: DATABASE_URL not set, only health and auth routes are mounted")
	}

	signer, err := newSigner(context.Background(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	app := NewApp(Deps{
		Config: cfg,
		DB:     db,
		Rdb:    rdb,
		Signer: signer,
		Mailer: &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom, SiteURL: cfg.FrontendURL},
	})
	return app, db, rdb, nil
}

func newSigner(ctx context.Context, cfg *config.Config) (uploadsvc.Signer, error) {
	switch cfg.StorageDriver {
	case "s3":
		return uploadsvc.NewS3Signer(ctx, uploadsvc.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	case "", "supabase":
		return &uploadsvc.SupabaseSigner{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// NewApp mounts global middleware and every route on a fresh Fiber app.
// Routes that need the database are skipped when deps.DB is nil.
func NewApp(deps Deps) *fiber.App {
	cfg := deps.Config
	db, rdb := deps.DB, deps.Rdb

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(rdb))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
		CookieDomain:      cfg.CookieDomain,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, 0)

	// Health
	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
		Targets:        healthTargets(cfg.HealthTargets),
	}
	if db != nil {
		hh.DB = &database.Pinger{DB: db}
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Post("/health/reset", hh.Reset)

	// Auth
	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", limiter.Limit(), ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db == nil {
		return app
	}

	// Users
	us := &usersvc.Service{DB: db, Rdb: rdb, Mailer: deps.Mailer}
	uh := &userhandler.Handlers{Service: us, Config: sessionCfg}
	app.Post("/api/v1/users/create-user", uh.CreateUser)
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Put("/update-user", uh.UpdateUser)
	ug.Get("/view-user", uh.ViewMe)
	ug.Get("/view-user/:user_id", middleware.AuthorizePermission(constants.ViewAnyUser), uh.ViewUser)
	ug.Patch("/update-role", middleware.AuthorizePermission(constants.AssignRole), uh.UpdateRole)

	// Listings
	ls := &listsvc.Service{DB: db, MinDeadlineDays: cfg.MinDeadlineDays, Mailer: deps.Mailer}
	lh := &listhandler.Handlers{Service: ls}
	app.Get("/api/v1/listings/get-public-listings", lh.GetPublicListings)
	app.Get("/api/v1/listings/get-listing/:listing_id", lh.GetListing)
	app.Post("/api/v1/listings/preview-valuation", lh.PreviewValuation)
	lg := app.Group("/api/v1/listings", middleware.RequireAuth())
	lg.Post("/create-listing", lh.CreateListing)
	lg.Get("/get-my-listings", lh.GetMyListings)
	lg.Get("/get-received-donations", lh.GetReceivedDonations)
	lg.Put("/edit-listing/:listing_id", lh.EditListing)
	lg.Delete("/delete-listing/:listing_id", lh.DeleteListing)

	// Moderation
	mg := app.Group("/api/v1/moderation", middleware.RequireAuth())
	mg.Get("/pending", middleware.AuthorizePermission(constants.ViewModeration), lh.GetPending)
	mg.Patch("/set-approval/:listing_id", middleware.AuthorizePermission(constants.ModerateListings), lh.SetApproval)

	// Listing events
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: db}}
	leg := app.Group("/api/v1/listing-events", middleware.RequireAuth())
	leg.Get("/get-listing-events/:listing_id", leh.GetListingEvents)

	// Messages
	mh := &msghandler.Handlers{Service: &msgsvc.Service{DB: db}}
	msgGroup := app.Group("/api/v1/messages", middleware.RequireAuth())
	msgGroup.Post("/send-message", limiter.Limit(), mh.SendMessage)
	msgGroup.Get("/inbox", mh.GetInbox)
	msgGroup.Get("/unread-count", mh.GetUnreadCount)
	msgGroup.Get("/thread/:counterparty_id", mh.GetThread)
	msgGroup.Patch("/mark-read/:counterparty_id", mh.MarkRead)

	// Uploads
	if deps.Signer != nil {
		uph := &uploadhandler.Handlers{Service: &uploadsvc.Service{Signer: deps.Signer}}
		upg := app.Group("/api/v1/uploads", middleware.RequireAuth())
		upg.Post("/listing-image", uph.UploadListingImage)
		upg.Post("/valuation-doc", uph.UploadValuationDoc)
	}

	return app
}

func healthTargets(m map[string]string) []healthsvc.Target {
	targets := make([]healthsvc.Target, 0, len(m))
	for name, url := range m {
		targets = append(targets, healthsvc.Target{Name: name, URL: url})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
