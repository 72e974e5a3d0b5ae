package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/config"
	"sports_club_backend/internal/database"
	"sports_club_backend/internal/repositories"
	"sports_club_backend/internal/router"
	"sports_club_backend/internal/services"
	"sports_club_backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Logger
	utils.InitLogger(cfg.LogLevel, cfg.LogFormat)

	// Sports club registry
	var clubRepo repositories.ClubRepository
	if cfg.DatabaseURL != "" {
		db, err := database.InitDB(cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			utils.LogError(err, "Failed to initialize database")
			os.Exit(1)
		}
		defer db.Close()
		if cfg.DBMigrations {
			if err := database.Migrate(db); err != nil {
				utils.LogError(err, "Failed to run database migrations")
				os.Exit(1)
			}
		}
		clubRepo = repositories.NewClubRepository(db)
	} else {
		utils.LogWarn("DATABASE_URL not set, sports club registry is kept in memory")
		clubRepo = repositories.NewMemoryClubRepository()
	}

	workbooks := repositories.NewWorkbookPool(cfg.DataDir)
	defer func() {
		if err := workbooks.Close(); err != nil {
			utils.LogError(err, "Failed to close workbooks")
		}
	}()

	auth, err := services.NewAuthService(cfg.AuthConfig())
	if err != nil {
		utils.LogError(err, "Failed to configure authentication")
		os.Exit(1)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(utils.GinLogger())
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.LogWarn("Recovered from panic", map[string]interface{}{"panic": recovered, "path": c.Request.URL.Path})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.MsgInternalError))
	}))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", utils.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{utils.RequestIDHeader}
	engine.Use(cors.New(corsConfig))

	dispatcher := router.Setup(engine, router.Options{
		ClubRepo:     clubRepo,
		Workbooks:    workbooks,
		Auth:         auth,
		DefaultStore: cfg.DefaultStore(),
		LockTimeout:  cfg.LockTimeout,
		Metrics:      cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{
			"port": cfg.Port, "auth_mode": cfg.AuthMode, "actions": len(dispatcher.Names()), "data_dir": cfg.DataDir,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.LogInfo("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.LogError(err, "Server forced to shutdown")
	}
}
