package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/controller"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/configwatcher"
	"course_delivery_backend/pkg/database"
	"course_delivery_backend/pkg/logger"
	"course_delivery_backend/pkg/monitoring"
	"course_delivery_backend/pkg/security"
	"course_delivery_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	stop     chan struct{}
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	quiz        *repository.QuizRepository
	arrangement *repository.ArrangementRepository
	progress    *repository.ProgressRepository
	attempt     *repository.AttemptRepository
	lock        *repository.LockRepository
	certificate *repository.CertificateRepository
}

type services struct {
	auth         *service.AuthService
	arrangement  *service.ArrangementService
	progress     *service.ProgressService
	lock         *service.LockService
	gate         *service.QuizGate
	attempt      *service.QuizAttemptService
	revalidation *service.RevalidationService
	certificate  *service.CertificateService
	catalog      *service.CatalogService
}

type controllers struct {
	auth        *controller.AuthController
	progress    *controller.ProgressController
	quiz        *controller.QuizController
	lock        *controller.LockController
	arrangement *controller.ArrangementController
	catalog     *controller.CatalogController
	health      *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		quiz:        repository.NewQuizRepository(db),
		arrangement: repository.NewArrangementRepository(db),
		progress:    repository.NewProgressRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		lock:        repository.NewLockRepository(db),
		certificate: repository.NewCertificateRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}
	keys := util.NewKeyedMutex()

	s.auth = service.NewAuthService(repos.user, cfg)
	s.arrangement = service.NewArrangementService(repos.arrangement, repos.course, rdb, cfg, db)
	s.progress = service.NewProgressService(repos.progress, repos.course, repos.quiz, s.arrangement, keys, db)
	s.lock = service.NewLockService(repos.lock, keys, db)
	s.gate = service.NewQuizGate(repos.quiz, repos.attempt, repos.user, repos.course, repos.lock, s.lock, s.progress, cfg)

	store, err := service.NewMinioCertificateStore(&cfg.Storage)
	if err != nil {
		// 证书是旁路能力，对象存储不可达时降级运行
		logger.Log.Warn("minio unavailable, certificate uploads disabled", zap.Error(err))
	}
	var certStore service.CertificateStore
	if store != nil {
		certStore = store
	}
	s.certificate = service.NewCertificateService(repos.certificate, repos.user, repos.course, certStore)

	s.attempt = service.NewQuizAttemptService(s.gate, repos.attempt, repos.quiz, s.lock, s.progress, s.certificate, keys, cfg, db)
	s.revalidation = service.NewRevalidationService(repos.progress, repos.course, db)
	s.catalog = service.NewCatalogService(repos.course, repos.quiz, s.revalidation, s.arrangement)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		progress:    controller.NewProgressController(s.progress),
		quiz:        controller.NewQuizController(s.gate, s.attempt, s.auth),
		lock:        controller.NewLockController(s.lock, s.auth),
		arrangement: controller.NewArrangementController(s.arrangement),
		catalog:     controller.NewCatalogController(s.catalog),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(100000, time.Minute)) // 每分钟100000次请求

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// needs_review 巡检：待学项被后续编排移除时恢复单元状态
	go s.revalidation.RunSweeper(5*time.Minute, a.stop)

	// 测验默认值与缓存 TTL 支持热更新，改动无需重启
	go configwatcher.WatchConfig("configs/config.yaml", a.Config, func(newCfg interface{}) {
		fresh, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		a.Config.Quiz = fresh.Quiz
		a.Config.Redis.ArrangementTTLSeconds = fresh.Redis.ArrangementTTLSeconds
		logger.Log.Info("configuration reloaded",
			zap.Int("baseAttemptLimit", fresh.Quiz.BaseAttemptLimit),
			zap.Int("passingPercent", fresh.Quiz.PassingPercent))
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		stop:   make(chan struct{}),
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-delivery", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, repos, cfg)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
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

	close(a.stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
