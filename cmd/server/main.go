package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/config"
	"github.com/nat-prohmpiriya/travillian-games/internal/handler"
	"github.com/nat-prohmpiriya/travillian-games/internal/logger"
	"github.com/nat-prohmpiriya/travillian-games/internal/middleware"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository/postgres"
	redisrepo "github.com/nat-prohmpiriya/travillian-games/internal/repository/redis"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment())
	log.Info().Str("environment", cfg.Environment).Msg("Config loaded")

	// Database
	db, err := postgres.Connect(cfg.DatabaseURL(), cfg.DBMaxConnections)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis
	redisClient, err := redisrepo.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	txMgr := postgres.NewTxManager(db)
	userRepo := postgres.NewUserRepo(db)
	villageRepo := postgres.NewVillageRepo(db)
	buildingRepo := postgres.NewBuildingRepo(db)
	troopRepo := postgres.NewTroopRepo(db)
	armyRepo := postgres.NewArmyRepo(db)
	reportRepo := postgres.NewReportRepo(db)

	// Troop definitions are static reference data, loaded once at startup.
	roster, err := service.LoadRoster(context.Background(), troopRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load troop roster")
	}

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpirationHours)
	googleOAuth := auth.NewGoogleOAuth(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)

	// WebSocket hub, fed by the Redis relay so events reach every replica
	wsHub := handler.NewHub()
	broadcast := service.NewRedisBroadcaster(redisClient)

	// Services
	resourceSvc := service.NewResourceService(villageRepo, buildingRepo)
	buildingSvc := service.NewBuildingService(txMgr, villageRepo, buildingRepo, resourceSvc, broadcast)
	troopSvc := service.NewTroopService(txMgr, villageRepo, buildingRepo, troopRepo, resourceSvc, roster, broadcast)
	villageSvc := service.NewVillageService(txMgr, villageRepo, buildingRepo, troopRepo, resourceSvc)
	armySvc := service.NewArmyService(txMgr, villageRepo, troopRepo, armyRepo, reportRepo, villageSvc, resourceSvc, roster, broadcast)
	reportSvc := service.NewReportService(reportRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo, cfg.IsDevelopment())
	userHandler := handler.NewUserHandler(userRepo)
	villageHandler := handler.NewVillageHandler(villageSvc)
	buildingHandler := handler.NewBuildingHandler(buildingSvc)
	troopHandler := handler.NewTroopHandler(troopSvc)
	armyHandler := handler.NewArmyHandler(armySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr)

	// Router
	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth (public)
	mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	mux.HandleFunc("POST /auth/refresh", authHandler.RefreshToken)
	mux.HandleFunc("POST /auth/dev", authHandler.DevLogin)

	// Troop definitions are public reference data, outside the auth wall
	mux.HandleFunc("GET /api/v1/troops/definitions", troopHandler.Definitions)

	// Protected API routes
	api := http.NewServeMux()
	api.HandleFunc("GET /users/me", userHandler.GetMe)
	api.HandleFunc("PATCH /users/me", userHandler.UpdateMe)

	api.HandleFunc("GET /villages", villageHandler.ListVillages)
	api.HandleFunc("POST /villages", villageHandler.CreateVillage)
	api.HandleFunc("GET /villages/{id}", villageHandler.GetVillage)
	api.HandleFunc("PATCH /villages/{id}", villageHandler.RenameVillage)
	api.HandleFunc("GET /map", villageHandler.GetMap)

	api.HandleFunc("GET /villages/{id}/buildings", buildingHandler.ListBuildings)
	api.HandleFunc("GET /villages/{id}/buildings/queue", buildingHandler.BuildQueue)
	api.HandleFunc("POST /villages/{id}/buildings/{slot}", buildingHandler.Build)
	api.HandleFunc("POST /villages/{id}/buildings/{slot}/upgrade", buildingHandler.Upgrade)
	api.HandleFunc("DELETE /villages/{id}/buildings/{slot}", buildingHandler.Demolish)

	api.HandleFunc("GET /villages/{id}/troops", troopHandler.ListTroops)
	api.HandleFunc("GET /villages/{id}/troops/queue", troopHandler.TrainQueue)
	api.HandleFunc("POST /villages/{id}/troops", troopHandler.Train)
	api.HandleFunc("DELETE /villages/{id}/troops/queue/{orderId}", troopHandler.CancelTraining)

	api.HandleFunc("POST /villages/{id}/armies", armyHandler.SendArmy)
	api.HandleFunc("GET /villages/{id}/armies/outgoing", armyHandler.Outgoing)
	api.HandleFunc("GET /villages/{id}/armies/incoming", armyHandler.Incoming)
	api.HandleFunc("GET /villages/{id}/armies/stationed", armyHandler.Stationed)
	api.HandleFunc("GET /armies/support", armyHandler.SupportSent)
	api.HandleFunc("POST /armies/{armyId}/recall", armyHandler.Recall)

	api.HandleFunc("GET /reports/battles", reportHandler.ListBattleReports)
	api.HandleFunc("GET /reports/battles/{id}", reportHandler.GetBattleReport)
	api.HandleFunc("POST /reports/battles/{id}/read", reportHandler.MarkBattleReportRead)
	api.HandleFunc("GET /reports/scouts", reportHandler.ListScoutReports)
	api.HandleFunc("GET /reports/scouts/{id}", reportHandler.GetScoutReport)
	api.HandleFunc("POST /reports/scouts/{id}/read", reportHandler.MarkScoutReportRead)
	api.HandleFunc("GET /reports/unread", reportHandler.UnreadCounts)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relay cross-replica events into the local hub
	go redisClient.Relay(ctx, wsHub)

	// Background ticks: builds, training, army arrivals, resource sweeps
	ticker := service.NewTicker(buildingSvc, troopSvc, armySvc, resourceSvc)
	ticker.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
