package app

import (
	"context"
	"errors"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services *services
	tracer   *sdktrace.TracerProvider
	cancel   context.CancelFunc
}

// Deps 外部资源，测试时可替换为 SQLite 与 mock 模型
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Store    service.ContentStore
	Provider llm.Provider
}

type repositories struct {
	user     *repository.UserRepository
	progress *repository.ProgressRepository
	quiz     *repository.QuizRepository
	copilot  *repository.CopilotRepository
}

type services struct {
	auth     *service.AuthService
	content  *service.ContentService
	progress *service.ProgressService
	quiz     *service.QuizService
	copilot  *service.CopilotService
	student  *service.StudentService
	hub      *service.ProgressHub
	limiter  *security.KeyedLimiter
}

type controllers struct {
	auth          *controller.AuthController
	content       *controller.ContentController
	progress      *controller.ProgressController
	quiz          *controller.QuizController
	copilot       *controller.CopilotController
	student       *controller.StudentController
	adminProgress *controller.AdminProgressController
	health        *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		progress: repository.NewProgressRepository(db, rdb, cfg.Redis.TTL),
		quiz:     repository.NewQuizRepository(db),
		copilot:  repository.NewCopilotRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, deps Deps) *services {
	s := &services{}

	s.hub = service.NewProgressHub(deps.Redis, cfg.CORS.AllowedOrigins)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.content = service.NewContentService(deps.Store, cfg.Content.Path)
	s.progress = service.NewProgressService(repos.progress, s.content, s.hub)
	s.quiz = service.NewQuizService(repos.quiz, s.content, s.progress)
	s.student = service.NewStudentService(repos.user, repos.progress, repos.quiz, repos.copilot, s.auth)

	perMinute := cfg.Copilot.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	s.limiter = security.NewKeyedLimiter(rate.Limit(float64(perMinute)/60), cfg.Copilot.Burst, 10*time.Minute)

	s.copilot = service.NewCopilotService(repos.copilot, s.content, s.progress, deps.Provider, s.limiter, service.CopilotOptions{
		HistoryLimit: cfg.Copilot.HistoryLimit,
		MaxTokens:    cfg.AI.MaxTokens,
		Temperature:  cfg.AI.Temperature,
		Timeout:      time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:          controller.NewAuthController(s.auth),
		content:       controller.NewContentController(s.content),
		progress:      controller.NewProgressController(s.progress, s.hub),
		quiz:          controller.NewQuizController(s.quiz),
		copilot:       controller.NewCopilotController(s.copilot),
		student:       controller.NewStudentController(s.student),
		adminProgress: controller.NewAdminProgressController(s.progress),
		health:        controller.NewHealthController(db, rdb, s.content),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if maxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(maxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp 连接数据库、Redis 与模型服务后组装应用
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	autoMigrate := cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, autoMigrate)
	if err != nil {
		return nil, err
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	store, err := service.NewContentStore(cfg)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(cfg.AI)
	if err != nil {
		// 学习助手不可用不影响其余功能
		logger.Log.Warn("LLM provider not configured, copilot disabled", zap.Error(err))
		provider = nil
	}

	app, err := Build(cfg, Deps{DB: db, Redis: rdb, Store: store, Provider: provider})
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	return app, nil
}

// Build 在已准备好的依赖上组装路由与后台任务
func Build(cfg *config.Config, deps Deps) (*App, error) {
	monitoring.Init()
	gin.SetMode(cfg.Server.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     deps.DB,
		Redis:  deps.Redis,
		cancel: cancel,
	}

	repos := app.initRepositories(deps.DB, deps.Redis, cfg)
	svcs := app.initServices(repos, cfg, deps)
	app.services = svcs

	if _, err := svcs.content.Reload(ctx); err != nil {
		cancel()
		svcs.limiter.Stop()
		return nil, err
	}
	if cfg.Content.Watch {
		if err := svcs.content.Watch(ctx); err != nil {
			logger.Log.Warn("Content watch disabled", zap.Error(err))
		}
	}

	go svcs.hub.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, app.initControllers(svcs, deps.DB, deps.Redis), repos, cfg)

	return app, nil
}

// Close 停止后台任务并释放连接
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil && a.services.limiter != nil {
		a.services.limiter.Stop()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		a.Close()
		return err
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)

	a.Close()
	logger.Log.Info("Server exiting")
	return err
}
