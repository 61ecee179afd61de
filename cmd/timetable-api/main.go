package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuskit/timetable-api/api/swagger"
	"github.com/campuskit/timetable-api/internal/engine"
	"github.com/campuskit/timetable-api/internal/handler"
	"github.com/campuskit/timetable-api/internal/middleware"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/repository"
	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/cache"
	"github.com/campuskit/timetable-api/pkg/config"
	"github.com/campuskit/timetable-api/pkg/database"
	"github.com/campuskit/timetable-api/pkg/logger"
	corsmiddleware "github.com/campuskit/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/timetable-api/pkg/middleware/requestid"
	"github.com/campuskit/timetable-api/pkg/storage"
)

// @title CampusKit Timetable API
// @version 1.0.0
// @description Course timetable generation and publishing service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	jobRepo := repository.NewGenerationJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "timetable-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	catalogSvc := service.NewCatalogService(courseRepo, instructorRepo, roomRepo, slotRepo, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, validate, logr)
	generatorSvc := service.NewGeneratorService(courseRepo, instructorRepo, roomRepo, slotRepo, jobRepo, timetableRepo, cacheRepo, metricsSvc, validate, logr, service.GeneratorConfig{
		DefaultStrategy: cfg.Engine.DefaultStrategy,
		SearchBudget:    cfg.Engine.SearchBudget,
		OptimizerBudget: cfg.Engine.OptimizerBudget,
		Weights: engine.Weights{
			InstructorPreference: cfg.Engine.PreferenceWeight,
			Compactness:          cfg.Engine.CompactnessWeight,
			Utilization:          cfg.Engine.UtilizationWeight,
		},
		QueueWorkers:  cfg.Engine.QueueWorkers,
		JobTTL:        cfg.Engine.JobTTL,
		StatsCacheTTL: cfg.Engine.StatsCacheTTL,
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		exportSvc = service.NewExportService(timetableRepo, courseRepo, instructorRepo, roomRepo, slotRepo, store, service.ExportConfig{Enabled: true}, logr)
	} else {
		exportSvc = service.NewExportService(timetableRepo, courseRepo, instructorRepo, roomRepo, slotRepo, nil, service.ExportConfig{}, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generatorSvc.Start(ctx)
	defer generatorSvc.Stop()

	if cfg.Exports.Enabled {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed, err := exportSvc.Cleanup(0); err != nil {
						logr.Sugar().Warnw("export cleanup failed", "error", err)
					} else if len(removed) > 0 {
						logr.Sugar().Infow("stale exports removed", "count", len(removed))
					}
				}
			}
		}()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc, generatorSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, authHandler, userHandler, catalogHandler, timetableHandler, metricsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	catalogHandler *handler.CatalogHandler,
	timetableHandler *handler.TimetableHandler,
	metricsHandler *handler.MetricsHandler,
) {
	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
	}

	planners := middleware.RequireRoles(models.RoleAdmin, models.RolePlanner)

	courses := api.Group("/courses", middleware.JWT(authSvc))
	{
		courses.GET("", catalogHandler.ListCourses)
		courses.GET("/:id", catalogHandler.GetCourse)
		courses.POST("", planners, catalogHandler.CreateCourse)
		courses.PUT("/:id", planners, catalogHandler.UpdateCourse)
		courses.DELETE("/:id", planners, catalogHandler.DeleteCourse)
	}

	instructors := api.Group("/instructors", middleware.JWT(authSvc))
	{
		instructors.GET("", catalogHandler.ListInstructors)
		instructors.GET("/:id", catalogHandler.GetInstructor)
		instructors.POST("", planners, catalogHandler.CreateInstructor)
		instructors.PUT("/:id", planners, catalogHandler.UpdateInstructor)
		instructors.DELETE("/:id", planners, catalogHandler.DeleteInstructor)
	}

	rooms := api.Group("/rooms", middleware.JWT(authSvc))
	{
		rooms.GET("", catalogHandler.ListRooms)
		rooms.GET("/:id", catalogHandler.GetRoom)
		rooms.POST("", planners, catalogHandler.CreateRoom)
		rooms.PUT("/:id", planners, catalogHandler.UpdateRoom)
		rooms.DELETE("/:id", planners, catalogHandler.DeleteRoom)
	}

	slots := api.Group("/time-slots", middleware.JWT(authSvc))
	{
		slots.GET("", catalogHandler.ListTimeSlots)
		slots.POST("", planners, catalogHandler.CreateTimeSlot)
		slots.DELETE("/:id", planners, catalogHandler.DeleteTimeSlot)
	}

	timetable := api.Group("/timetable", middleware.JWT(authSvc))
	{
		timetable.GET("", timetableHandler.List)
		timetable.GET("/statistics", timetableHandler.Statistics)
		timetable.GET("/export", timetableHandler.Export)
		timetable.POST("/conflicts", timetableHandler.CheckConflict)
		timetable.POST("/generate", planners, timetableHandler.Generate)
		timetable.GET("/jobs", timetableHandler.ListJobs)
		timetable.GET("/jobs/:id", timetableHandler.JobStatus)
		timetable.DELETE("/:semester", middleware.RequireRoles(models.RoleAdmin), timetableHandler.ClearSemester)
	}

	system := api.Group("/system", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		system.GET("/metrics", metricsHandler.Snapshot)
	}
}
