package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"roadmap_ai_backend/internal/config"
	"roadmap_ai_backend/internal/controller"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/pkg/configwatcher"
	"roadmap_ai_backend/pkg/database"
	"roadmap_ai_backend/pkg/logger"
	"roadmap_ai_backend/pkg/monitoring"
	"roadmap_ai_backend/pkg/prompt"
	"roadmap_ai_backend/pkg/security"
	"roadmap_ai_backend/pkg/tracing"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	configCallbacks []func(*config.Config)
}

type repositories struct {
	session    *repository.SessionRepository
	roadmap    *repository.RoadmapRepository
	material   *repository.MaterialRepository
	quiz       *repository.QuizRepository
	graduation *repository.GraduationRepository
	cv         *repository.CVRepository
}

type services struct {
	ai           *service.AIService
	session      *service.SessionService
	phase        *service.PhaseService
	roadmap      *service.RoadmapService
	material     *service.MaterialService
	quiz         *service.QuizService
	graduation   *service.GraduationService
	cv           *service.CVService
	dispatcher   *service.ToolDispatcher
	orchestrator *service.Orchestrator
}

type controllers struct {
	chat       *controller.ChatController
	session    *controller.SessionController
	roadmap    *controller.RoadmapController
	material   *controller.MaterialController
	quiz       *controller.QuizController
	graduation *controller.GraduationController
	cv         *controller.CVController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		session:    repository.NewSessionRepository(db),
		roadmap:    repository.NewRoadmapRepository(db),
		material:   repository.NewMaterialRepository(db),
		quiz:       repository.NewQuizRepository(db),
		graduation: repository.NewGraduationRepository(db),
		cv:         repository.NewCVRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client, prompts prompt.Provider) *services {
	s := &services{}

	s.ai = service.NewAIService(cfg.AI)
	s.session = service.NewSessionService(repos.session)
	s.phase = service.NewPhaseService(repos.roadmap)

	s.roadmap = service.NewRoadmapService(repos.roadmap, repos.session, repos.material, repos.quiz, repos.cv, s.ai, prompts)
	s.material = service.NewMaterialService(repos.material, repos.roadmap, repos.session, s.roadmap, s.ai, prompts)
	s.quiz = service.NewQuizService(repos.quiz, repos.roadmap, repos.material, repos.session, s.roadmap, s.ai, prompts)
	s.graduation = service.NewGraduationService(repos.graduation, repos.roadmap, repos.material, repos.session, s.ai, prompts)

	storage, err := service.NewMinioStorageProvider(&cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	s.cv = service.NewCVService(repos.cv, storage, s.ai, prompts)

	s.dispatcher = service.NewToolDispatcher(s.roadmap, s.material, s.quiz, s.graduation)
	s.orchestrator = service.NewOrchestrator(
		s.session, repos.session, repos.cv, s.phase, s.dispatcher,
		s.ai, prompts, rdb,
		cfg.Chat.HistoryWindow, cfg.Chat.TurnLockSeconds,
	)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		chat:       controller.NewChatController(s.orchestrator),
		session:    controller.NewSessionController(s.session),
		roadmap:    controller.NewRoadmapController(s.roadmap),
		material:   controller.NewMaterialController(s.material),
		quiz:       controller.NewQuizController(s.quiz),
		graduation: controller.NewGraduationController(s.graduation),
		cv:         controller.NewCVController(s.cv),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))

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

	prompts, err := prompt.NewLoader(cfg.Prompt.Dir)
	if err != nil {
		logger.Log.Fatal("Failed to load prompts", zap.Error(err))
	}
	if cfg.Prompt.HotReload {
		if err := prompts.Watch(make(chan struct{})); err != nil {
			logger.Log.Error("Failed to watch prompt dir", zap.Error(err))
		}
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb, prompts)
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("roadmap-ai", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	// 配置文件热加载，回调里只做可以安全热切换的事
	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		reloaded, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		app.Config = reloaded
		for _, callback := range app.configCallbacks {
			callback(reloaded)
		}
		logger.Log.Info("配置已热加载")
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
