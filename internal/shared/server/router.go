package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"petcare-backend/internal/llm"
	"petcare-backend/internal/llm/openrouter"
	"petcare-backend/internal/medical"
	"petcare-backend/internal/recommend"
	"petcare-backend/internal/shared/config"
	"petcare-backend/internal/shared/metrics"
	"petcare-backend/internal/shared/server/middleware"
	"petcare-backend/internal/shared/server/respond"
	"petcare-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var runRepo recommend.Repo
	if sqlDB != nil {
		runRepo = &recommend.PGRepo{DB: sqlDB}
	} else {
		runRepo = recommend.NewMemoryRepo()
	}

	var llmClient llm.Client
	if cfg.OpenRouterAPIKey != "" {
		client, err := openrouter.NewClient(
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterModels,
			cfg.SiteURL,
			cfg.SiteName,
			openrouter.WithAttemptTimeout(cfg.OpenRouterTimeout),
		)
		if err != nil {
			log.Printf("openrouter client unavailable: %v", err)
		} else {
			llmClient = client
		}
	} else {
		log.Printf("OPENROUTER_API_KEY not set; model-backed recommendations disabled")
	}

	recommendSvc := &recommend.Service{Repo: runRepo, LLM: llmClient}
	recommendHandler := recommend.NewHandler(recommendSvc)
	medicalHandler := medical.NewHandler()

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	recommendHandler.RegisterRoutes(api)
	medicalHandler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
