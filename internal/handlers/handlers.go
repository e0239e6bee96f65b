package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cellscope/internal/cache"
	"cellscope/internal/catalog"
	"cellscope/internal/config"
	"cellscope/internal/inference"
	"cellscope/internal/middleware"
	"cellscope/internal/repository"
	"cellscope/internal/service"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	uploads     *service.UploadService
	predictions *service.PredictionService
	catalog     *catalog.Catalog
	users       repository.Users
	db          *pgxpool.Pool
	cache       *redis.Client
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cacheClient *redis.Client,
	engine inference.Service,
	modelCatalog *catalog.Catalog,
	cfg *config.AppConfig,
) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	statsCache := cache.NewStatsCache(cacheClient, log)

	auth := service.NewAuthService(userRepo, cfg, log)
	uploads := service.NewUploadService(uploadRepo, statsCache, cacheClient, cfg, log)
	predictions := service.NewPredictionService(engine, uploads, cfg, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		uploads:     uploads,
		predictions: predictions,
		catalog:     modelCatalog,
		users:       userRepo,
		db:          db,
		cache:       cacheClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)

	router.POST("/validate-token", h.ValidateToken)

	gate := middleware.Auth(h.cfg, h.users)

	uploads := router.Group("/uploads", gate)
	uploads.POST("", h.CreateUpload)
	uploads.GET("", h.ListUploads)
	uploads.GET("/stats", h.UploadStats)
	uploads.GET("/:id", h.GetUpload)
	uploads.GET("/:id/image", h.GetUploadImage)
	uploads.DELETE("/:id", h.DeleteUpload)

	history := router.Group("/history", gate)
	history.GET("", h.ListHistory)
	history.GET("/stats", h.HistoryStats)
	history.GET("/:id", h.GetHistoryItem)
	history.DELETE("/:id", h.DeleteHistoryItem)

	predict := router.Group("/predict", gate)
	predict.POST("", h.Predict)
	predict.GET("/models", h.AvailableModels)

	catalogGroup := router.Group("/models", gate)
	catalogGroup.GET("", h.ListCatalogModels)
	catalogGroup.GET("/:id", h.GetCatalogModel)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

func failWithError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}
