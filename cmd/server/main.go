package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"vitrina/internal/auth"
	"vitrina/internal/config"
	"vitrina/internal/handler"
	"vitrina/internal/middleware"
	"vitrina/internal/persona"
	"vitrina/internal/repository/postgres"
	"vitrina/internal/service/agents"
	"vitrina/internal/service/constructor"
	"vitrina/internal/service/extract"
	serviceLLM "vitrina/internal/service/llm"
	"vitrina/internal/session"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verification is optional: without a JWKS URL the API trusts the
	// user_id in request bodies (local development only).
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		jwtVerifier = v
	} else {
		logger.Warn("JWKS_URL not set, running without authentication")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	logger.Info("database connected")

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	agentRepo := postgres.NewAgentRepository(repoConfig)
	convRepo := postgres.NewConversationRepository(repoConfig)

	// Constructor sessions: in-memory by default, sqlite to survive restarts.
	var sessionStore session.Store
	switch cfg.SessionStore {
	case "sqlite":
		store, err := session.NewSQLiteStore(cfg.SessionDBPath)
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		defer store.Close()
		sessionStore = store
	default:
		sessionStore = session.NewMemoryStore()
	}
	logger.Info("session store initialized", "kind", cfg.SessionStore)

	providerRegistry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup completion providers: %v", err)
	}

	personas, err := persona.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load persona registry: %v", err)
	}

	extractor := extract.NewService(providerRegistry, cfg.ExtractModel, logger)

	constructorService := constructor.NewService(
		sessionStore,
		agentRepo,
		extractor,
		providerRegistry,
		personas,
		cfg.DefaultModel,
		logger,
	)
	agentService := agents.NewService(agentRepo, convRepo, providerRegistry, cfg.DefaultModel, logger)

	constructorHandler := handler.NewConstructorHandler(constructorService, logger)
	agentHandler := handler.NewAgentHandler(agentService, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", agentHandler.HealthCheck)

	// Constructor routes
	mux.HandleFunc("POST /api/constructor/chat", constructorHandler.Chat)
	mux.HandleFunc("DELETE /api/constructor/session", constructorHandler.ResetSession)

	// Agent routes
	mux.HandleFunc("GET /api/agents", agentHandler.ListAgents)
	mux.HandleFunc("GET /api/agents/{id}", agentHandler.GetAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", agentHandler.DeleteAgent)
	mux.HandleFunc("POST /api/agents/{id}/activate", agentHandler.ActivateAgent)
	mux.HandleFunc("POST /api/agents/{id}/test", agentHandler.TestChat)

	// Middleware chain: CORS → Recovery → Auth → Routes
	var root http.Handler = mux
	root = middleware.Auth(jwtVerifier, logger)(root)
	root = middleware.Recovery(logger)(root)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // completion calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
