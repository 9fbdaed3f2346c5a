package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"saferoute-go/internal/cache"
	"saferoute-go/internal/client"
	"saferoute-go/internal/config"
	"saferoute-go/internal/database"
	"saferoute-go/internal/geo"
	"saferoute-go/internal/handler"
	"saferoute-go/internal/health"
	"saferoute-go/internal/jobs"
	"saferoute-go/internal/middleware"
	"saferoute-go/internal/repository"
	"saferoute-go/internal/routing"
	"saferoute-go/internal/safety"
	"saferoute-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Инициализируем логгер
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.Info("Запуск SafeRoute API Server")

	// Получаем конфигурацию из переменных окружения
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Неизвестный уровень логирования %q, используем info", cfg.Logging.Level)
	}

	// Инициализируем базу данных
	logger.Info("Подключение к базе данных...")
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	// Выполняем миграции
	logger.Info("Выполнение миграций базы данных...")
	if err := database.Migrate(db); err != nil {
		logger.Fatalf("Ошибка выполнения миграций: %v", err)
	}

	// Проверяем здоровье базы данных
	if err := database.HealthCheck(context.Background(), db); err != nil {
		logger.Fatalf("База данных недоступна: %v", err)
	}

	logger.Info("База данных успешно подключена и готова к работе")

	// Профили районов
	zones, err := safety.LoadZonesFile(cfg.Zones.File)
	if err != nil {
		logger.Fatalf("Ошибка загрузки профилей районов: %v", err)
	}
	logger.Infof("Загружено %d профилей районов", zones.Len())

	// Живые сигналы через кэш
	var (
		provider      safety.FactorProvider
		factorCache   *cache.FactorCache
		signalsHealth service.SignalsHealthChecker
	)
	if cfg.Signals.BaseURL != "" {
		signalsClient := client.NewSignalsAPIClient(cfg.Signals.BaseURL, cfg.Signals.Timeout, logger)
		factorCache = cache.NewFactorCache(safety.NewSignalsProvider(signalsClient), cfg.Signals.CacheTTL, cfg.Signals.CacheSize, logger)
		provider = factorCache
		signalsHealth = signalsClient
		logger.Infof("Живые сигналы: %s", cfg.Signals.BaseURL)
	} else {
		logger.Warn("SIGNALS_API_BASE_URL не задан, оценка считается по профилям районов")
	}

	// Погода
	var (
		weatherSource cache.WeatherSource
		weatherCache  *cache.WeatherCache
	)
	if cfg.Weather.Enabled {
		weatherCache = cache.NewWeatherCache(client.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, logger),
			cfg.Weather.CacheTTL, cfg.Weather.CacheSize)
		weatherSource = weatherCache
	}

	// Ядро расчета
	calculator, err := safety.NewCalculator(provider, zones, cfg.SafetyOptions(), logger)
	if err != nil {
		logger.Fatalf("Ошибка настройки калькулятора: %v", err)
	}
	batchScorer := safety.NewBatchScorer(calculator, cfg.Batch.MaxSize, logger)

	geoCalc := geo.NewCalculator()
	geometry, err := routing.NewGeometryBuilder(geoCalc, cfg.GeometryOptions())
	if err != nil {
		logger.Fatalf("Ошибка настройки геометрии маршрутов: %v", err)
	}
	adjuster, err := routing.NewVariantAdjuster(cfg.VariantTable())
	if err != nil {
		logger.Fatalf("Ошибка настройки вариантов маршрута: %v", err)
	}
	riskDetector, err := routing.NewRiskDetector(cfg.RiskThresholds())
	if err != nil {
		logger.Fatalf("Ошибка настройки порогов риска: %v", err)
	}
	planner := routing.NewPlanner(geometry, adjuster, riskDetector, calculator, geoCalc, cfg.PlannerOptions(), logger)

	// Инициализируем репозитории
	routeRepo := repository.NewRouteRepository(db)
	scoreRepo := repository.NewScoreRepository(db)

	// Инициализируем сервисы
	recorder := service.NewRecorder(routeRepo, scoreRepo, cfg.RecorderOptions(), logger)
	resolver := service.NewContextResolver(weatherSource, cfg.Server.Location, cfg.Weather.Timeout, logger)
	safetyService := service.NewSafetyService(calculator, batchScorer, zones, resolver, recorder, scoreRepo, logger)
	routeService := service.NewRouteService(planner, resolver, recorder, routeRepo, logger)
	statusService := service.NewStatusService(db, signalsHealth, recorder, factorCache, safetyService, 2*time.Second, logger)

	// Очистка устаревших данных
	purgers := []jobs.Purger{}
	if factorCache != nil {
		purgers = append(purgers, factorCache)
	}
	if weatherCache != nil {
		purgers = append(purgers, weatherCache)
	}
	retention, err := jobs.NewRetentionJob(cfg.RetentionPolicy(), routeRepo, scoreRepo, logger, purgers...)
	if err != nil {
		logger.Fatalf("Ошибка настройки очистки данных: %v", err)
	}
	if err := retention.Start(); err != nil {
		logger.Fatalf("Ошибка запуска очистки данных: %v", err)
	}

	// Настраиваем Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))
	router.Use(rateLimiter.Handler())
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Регистрируем маршруты
	handler.NewRouteHandler(routeService, logger).RegisterRoutes(router)
	handler.NewSafetyHandler(safetyService, logger).RegisterRoutes(router)
	handler.NewHealthHandler(statusService, logger).RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "SafeRoute API Server",
			"version": service.Version,
			"status":  "running",
		})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC проверка состояния для оркестратора
	healthServer := health.NewServer(statusService, 10*time.Second, logger)
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		logger.Fatalf("Ошибка запуска gRPC сервера: %v", err)
	}
	go healthServer.Watch(ctx)
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil {
			logger.Errorf("gRPC сервер остановлен с ошибкой: %v", err)
		}
	}()

	// Запускаем сервер
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Сервер запущен на %s", cfg.Addr())
		logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Ошибка остановки HTTP сервера: %v", err)
	}
	healthServer.Shutdown()
	rateLimiter.Shutdown()
	retention.Stop(shutdownCtx)

	// Дописываем очередь результатов до закрытия базы
	if err := recorder.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Не все результаты сохранены: %v", err)
	}
	stats := recorder.Stats()
	logger.WithFields(logrus.Fields{
		"written": stats.Written,
		"failed":  stats.Failed,
		"dropped": stats.Dropped,
	}).Info("Очередь записи остановлена")

	if err := database.Close(db); err != nil {
		logger.Errorf("Ошибка закрытия базы данных: %v", err)
	}
	logger.Info("Сервер остановлен")
}
