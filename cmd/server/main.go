package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shortlink-platform/internal/analytics"
	"shortlink-platform/internal/clicks"
	"shortlink-platform/internal/config"
	"shortlink-platform/internal/handler"
	"shortlink-platform/internal/middleware"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/resolver"
	"shortlink-platform/internal/shortcode"
	"shortlink-platform/internal/store"
	"shortlink-platform/pkg/database"
	auth "shortlink-platform/pkg/jwt"
	"shortlink-platform/pkg/logger"
	"shortlink-platform/pkg/redis"

	_ "shortlink-platform/docs"

	"github.com/gin-gonic/gin"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title 短链接服务 API
// @version 0.1.0
// @description 短链接生成、跳转与点击统计服务
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Println("配置加载失败:", err)
		return
	}

	logger.InitLogger(cfg.App.Mode)
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Charset)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	if err := db.AutoMigrate(&model.ShortURL{}, &model.ClickEvent{}); err != nil {
		sugaredLogger.Fatalf("数据库迁移失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库迁移成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.NewRedisClient(&redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	urlStore := store.NewURLStore(db, sugaredLogger)
	generator := shortcode.NewGenerator(cfg.Shortener.CodeLength)
	aggregator := analytics.NewAggregator(db, sugaredLogger)

	// 点击事件在后台异步落盘，跳转响应不等它
	recorder := clicks.NewRecorder(db, urlStore, cfg.Shortener.ClickQueueSize, sugaredLogger)
	recorder.Start()
	defer recorder.Stop()
	sugaredLogger.Info("✅ 点击事件记录器已启动")

	urlResolver := resolver.NewResolver(urlStore, generator, recorder, sugaredLogger)

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	urlHandler := handler.NewShortURLHandler(
		urlResolver, urlStore, aggregator, recorder, rdb,
		cfg.Shortener.BaseURL,
		time.Duration(cfg.Shortener.CacheTTLHours)*time.Hour,
	)

	registerRoutes(router, urlHandler, tokenManager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(router *gin.Engine, urlHandler *handler.ShortURLHandler, tokenManager *auth.TokenManager) {
	requireIdentity := middleware.RequireIdentity(tokenManager)
	optionalIdentity := middleware.OptionalIdentity(tokenManager)

	router.GET("/health", urlHandler.HealthCheck)
	router.GET("/:code", urlHandler.Redirect)

	api := router.Group("/api")
	{
		api.POST("/shorten", optionalIdentity, urlHandler.CreateShortURL)
		api.GET("/links/:code", optionalIdentity, urlHandler.GetURLInfo)
		api.DELETE("/links/:code", optionalIdentity, urlHandler.DeactivateURL)

		api.GET("/links", requireIdentity, urlHandler.ListURLs)
		api.GET("/links/:code/analytics", requireIdentity, urlHandler.GetAnalyticsSummary)
		api.GET("/links/:code/clicks", requireIdentity, urlHandler.GetRecentClicks)
	}
}
