// cmd/server/main.go - Reportes Viales Backend Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Внутренние пакеты проекта
	"reportes-viales/internal/config"
	"reportes-viales/internal/database"
	"reportes-viales/internal/handlers"
	"reportes-viales/internal/middleware"
	"reportes-viales/internal/models"
	"reportes-viales/internal/services"
	"reportes-viales/pkg/auth"
	"reportes-viales/pkg/validator"

	// Внешние зависимости
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var appVersion = "1.0.0"

func main() {
	// Загружаем .env файл в режиме разработки
	if err := godotenv.Load(); err != nil {
		logrus.Warn(".env файл не найден, используем переменные окружения")
	}

	cfg := config.Load()
	setupLogging(cfg)
	validator.Init()

	logrus.WithFields(logrus.Fields{
		"version":  appVersion,
		"env":      cfg.Env,
		"database": cfg.DatabaseName,
	}).Info("🚧 Reportes Viales Backend Server запускается")

	// Подключаемся к MongoDB
	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Не удалось подключиться к MongoDB")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Ошибка отключения от MongoDB")
		}
	}()

	// Индексы и pre-images нужны до запуска подписки на изменения
	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateIndexes(setupCtx); err != nil {
		logrus.WithError(err).Warn("Не удалось создать часть индексов")
	}
	if err := db.EnableReportPreImages(setupCtx); err != nil {
		logrus.WithError(err).Fatal("Не удалось включить pre-images для reports")
	}
	setupCancel()

	// Коллекции MongoDB
	userCollection := db.Database.Collection("users")
	reportCollection := db.Database.Collection("reports")
	notificationCollection := db.Database.Collection("notifications")

	// JWT менеджер
	jwtManager := auth.NewJWTManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpiration)*time.Hour,
	)

	// Ядро уведомлений: хранилища + push-шлюз + движок + подписка
	userStore := database.NewMongoUserStore(userCollection)
	notificationStore := database.NewMongoNotificationStore(notificationCollection)
	pushClient := services.NewExpoPushClient(cfg)
	engine := services.NewNotificationEngine(userStore, notificationStore, pushClient)
	watcher := services.NewReportWatcher(reportCollection, engine)

	statsService := services.NewStatsService(reportCollection, userCollection)

	// Хендлеры
	authHandler := handlers.NewAuthHandler(userCollection, jwtManager)
	reportHandler := handlers.NewReportHandler(reportCollection, userCollection)
	notificationHandler := handlers.NewNotificationHandler(notificationCollection, userCollection)
	userHandler := handlers.NewUserHandler(userCollection, statsService)

	router := setupRouter(cfg, jwtManager, authHandler, reportHandler, notificationHandler, userHandler)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// HTTP сервер и подписка на изменения живут в одной группе:
	// фатальный отказ любого из них завершает процесс целиком
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		logrus.WithField("addr", srv.Addr).Info("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := watcher.Run(groupCtx); err != nil && groupCtx.Err() == nil {
			return fmt.Errorf("ошибка подписки на изменения: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		logrus.Info("🛑 Останавливаем сервер...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logrus.WithError(err).Error("Сервер завершился с ошибкой")
		os.Exit(1)
	}

	logrus.Info("👋 Reportes Viales Backend остановлен")
}

// setupLogging настраивает логирование в зависимости от окружения
func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// setupRouter настраивает все маршруты API
func setupRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	authHandler *handlers.AuthHandler,
	reportHandler *handlers.ReportHandler,
	notificationHandler *handlers.NotificationHandler,
	userHandler *handlers.UserHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// Rate limiting
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(
			cfg.RateLimitRequests,
			time.Duration(cfg.RateLimitWindow)*time.Second,
		)
		router.Use(limiter.RateLimit())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": appVersion,
		})
	})

	api := router.Group("/api/v1")

	// Публичные маршруты
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Защищённые маршруты
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		// Профиль
		protected.GET("/profile", authHandler.GetProfile)
		protected.PUT("/profile/password", authHandler.ChangePassword)

		// Push-токен устройства
		protected.PUT("/users/me/push-token", notificationHandler.UpdatePushToken)
		protected.DELETE("/users/me/push-token", notificationHandler.DeletePushToken)

		// Заявки
		reports := protected.Group("/reports")
		{
			reports.POST("", middleware.RequireRole(string(models.RoleCitizen)), reportHandler.CreateReport)
			reports.GET("/mine", reportHandler.GetMyReports)
			reports.GET("/nearby", reportHandler.GetNearbyReports)
			reports.GET("/assigned", middleware.RequireRole(string(models.RoleAuthority)), reportHandler.GetAssignedReports)
			reports.GET("/:id", reportHandler.GetReport)
			reports.PUT("/:id/status", middleware.RequireAnyRole(
				string(models.RoleAuthority),
				string(models.RoleAdmin),
			), reportHandler.UpdateReportStatus)
			reports.POST("/:id/rating", middleware.RequireRole(string(models.RoleCitizen)), reportHandler.RateReport)
		}

		// Уведомления
		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
			notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
			notifications.DELETE("/:id", notificationHandler.DeleteNotification)
		}

		// Админские маршруты
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(string(models.RoleAdmin)))
		{
			admin.GET("/reports", reportHandler.GetAllReports)
			admin.GET("/users", userHandler.GetUsers)
			admin.GET("/users/:id", userHandler.GetUser)
			admin.PUT("/users/:id/role", userHandler.UpdateUserRole)
			admin.PUT("/users/:id/block", userHandler.BlockUser)
			admin.PUT("/users/:id/unblock", userHandler.UnblockUser)
			admin.DELETE("/users/:id", userHandler.DeleteUser)
			admin.GET("/stats/overview", userHandler.GetSystemStats)
			admin.GET("/stats/authorities/:id", userHandler.GetAuthorityStats)
		}
	}

	return router
}
