package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study_roadmap_backend/internal/config"
	"study_roadmap_backend/internal/controller"
	"study_roadmap_backend/internal/repository"
	"study_roadmap_backend/internal/service"
	"study_roadmap_backend/pkg/database"
	"study_roadmap_backend/pkg/logger"
	"study_roadmap_backend/pkg/monitoring"
	"study_roadmap_backend/pkg/security"
	"study_roadmap_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	student     *repository.StudentRepository
	performance *repository.PerformanceRepository
	resource    *repository.ResourceRepository
	roadmap     *repository.RoadmapRepository
	activity    *repository.ActivityRepository
	feedback    *repository.FeedbackRepository
	report      *repository.ReportRepository
	revision    *repository.RevisionRepository
}

type services struct {
	personalization *service.PersonalizationService
	roadmap         *service.RoadmapService
	monitoring      *service.MonitoringService
	reconciliation  *service.ReconciliationService
	applier         *service.RevisionApplierService
	cycle           *service.CycleService
}

type controllers struct {
	student    *controller.StudentController
	activity   *controller.ActivityController
	resource   *controller.ResourceController
	roadmap    *controller.RoadmapController
	monitoring *controller.MonitoringController
	feedback   *controller.FeedbackController
	revision   *controller.RevisionController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 配置热更新：引擎和代理参数在线生效，连接类配置需重启
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config = cfg
	a.services.personalization.SetConfig(cfg.Engine)
	a.services.monitoring.SetConfig(cfg.Agents)
	a.services.reconciliation.SetConfig(cfg.Engine)
	a.services.applier.SetConfig(cfg.Engine)
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		student:     repository.NewStudentRepository(db),
		performance: repository.NewPerformanceRepository(db),
		resource:    repository.NewResourceRepository(db),
		roadmap:     repository.NewRoadmapRepository(db),
		activity:    repository.NewActivityRepository(db),
		feedback:    repository.NewFeedbackRepository(db),
		report:      repository.NewReportRepository(db),
		revision:    repository.NewRevisionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.personalization = service.NewPersonalizationService(
		repos.student,
		repos.performance,
		repos.resource,
		repos.roadmap,
		cfg.Engine,
	)
	s.roadmap = service.NewRoadmapService(repos.roadmap)
	s.monitoring = service.NewMonitoringService(
		repos.student,
		repos.roadmap,
		repos.activity,
		repos.performance,
		repos.report,
		rdb,
		cfg.Agents,
	)
	s.reconciliation = service.NewReconciliationService(
		repos.student,
		repos.roadmap,
		repos.feedback,
		repos.report,
		repos.revision,
		rdb,
		cfg.Engine,
	)
	s.applier = service.NewRevisionApplierService(
		repos.student,
		repos.roadmap,
		repos.resource,
		repos.revision,
		cfg.Engine,
	)
	s.cycle = service.NewCycleService(
		repos.student,
		s.monitoring,
		s.reconciliation,
		cfg.Cycle,
	)

	return s
}

func (a *App) initControllers(s *services, repos *repositories, db *gorm.DB) *controllers {
	return &controllers{
		student:    controller.NewStudentController(repos.student, repos.performance),
		activity:   controller.NewActivityController(repos.student, repos.activity),
		resource:   controller.NewResourceController(repos.resource),
		roadmap:    controller.NewRoadmapController(s.personalization, s.roadmap),
		monitoring: controller.NewMonitoringController(s.monitoring, repos.report),
		feedback:   controller.NewFeedbackController(repos.student, repos.feedback),
		revision:   controller.NewRevisionController(s.reconciliation, s.applier, repos.revision),
		health:     controller.NewHealthController(db, a.Redis, s.cycle),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 6000
	}
	windowMinutes := cfg.RateLimit.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	router.Use(security.RateLimiter(maxRequests, time.Duration(windowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, repos, db)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("roadmap-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers)

	if err := services.cycle.Start(); err != nil {
		logger.Log.Fatal("Failed to start weekly cycle", zap.Error(err))
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	a.services.cycle.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
