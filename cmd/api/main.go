package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/campus-connect/internal/handlers"
	"github.com/diagnosis/campus-connect/internal/mailer"
	"github.com/diagnosis/campus-connect/internal/otp"
	"github.com/diagnosis/campus-connect/internal/repository"
	"github.com/diagnosis/campus-connect/internal/service"
	"github.com/diagnosis/campus-connect/pkg/config"
	"github.com/diagnosis/campus-connect/pkg/database"
	"github.com/diagnosis/campus-connect/pkg/events"
	"github.com/diagnosis/campus-connect/pkg/logger"
	mw "github.com/diagnosis/campus-connect/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	chat     repository.ChatRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Connect to database unless running fully in memory
	var pool *pgxpool.Pool
	if cfg.Auth.UserStore == "postgres" {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("USER_STORE=memory: users, profiles and chat are lost on restart")
	}
	st := newStores(pool)

	// Redis backs rate limiting and the replay guard when configured
	var rdb redis.UniversalClient
	if cfg.Redis.URL != "" {
		rdb, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	var rateLimitRepo repository.RateLimitRepository = repository.NewMemoryRateLimitRepository()
	var replayGuard otp.ReplayGuard = otp.NewMemoryReplayGuard()
	if rdb != nil {
		rateLimitRepo = repository.NewRedisRateLimitRepository(rdb)
		replayGuard = repository.NewRedisReplayStore(rdb)
	}

	// Connect to event bus
	var eventBus events.EventBus = events.NopEventBus{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL, cfg.App.ServiceName)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		eventBus = bus
	}
	defer eventBus.Close()

	// Role changes are security relevant; keep a log trail of them
	if err := eventBus.QueueSubscribe("users.admin.>", "admin-audit", func(msg *events.Message) {
		logger.Info("Admin audit event", "subject", msg.Subject, "event_id", msg.ID, "data", string(msg.Data))
	}); err != nil {
		logger.Warn("Failed to subscribe to admin audit events", "error", err)
	}

	// OTP core
	registry := service.NewRoleRegistry(st.users, eventBus)
	codec := otp.NewCodec([]byte(cfg.Auth.OTPSecret))
	issuer := otp.NewIssuer(codec, cfg.Auth.OTPTTL)
	var verifierOpts []otp.VerifierOption
	if cfg.Auth.SingleUse {
		verifierOpts = append(verifierOpts, otp.WithReplayGuard(replayGuard))
	}
	verifier := otp.NewVerifier(codec, registry, service.AdminPolicyFromConfig(cfg.Auth), verifierOpts...)

	// Initialize services
	authService := service.NewAuthService(issuer, verifier, registry, st.profiles, rateLimitRepo,
		mailer.New(cfg.Email), eventBus, cfg)
	profileService := service.NewProfileService(st.profiles)
	chatService := service.NewChatService(st.chat, st.profiles, eventBus)

	h := handlers.New(authService, registry, profileService, chatService, rateLimitRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName(cfg.App.ServiceName))
	r.Use(mw.Logging)
	r.Use(middleware.Recoverer)
	r.Use(mw.CORS(cfg.CORS.AllowedOrigins))
	r.Use(mw.Health)

	h.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		close(idle)
	}()

	logger.Info("Starting server",
		"port", cfg.Server.Port,
		"env", cfg.App.Env,
		"user_store", cfg.Auth.UserStore,
		"redis", rdb != nil,
		"nats", cfg.NATS.URL != "",
		"single_use_otp", cfg.Auth.SingleUse,
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	<-idle
}

func newStores(pool *pgxpool.Pool) stores {
	if pool == nil {
		return stores{
			users:    repository.NewMemoryUserRepository(),
			profiles: repository.NewMemoryProfileRepository(),
			chat:     repository.NewMemoryChatRepository(),
		}
	}
	return stores{
		users:    repository.NewUserRepository(pool),
		profiles: repository.NewProfileRepository(pool),
		chat:     repository.NewChatRepository(pool),
	}
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
