package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"saferoute-go/internal/database"
	"saferoute-go/internal/jobs"
	"saferoute-go/internal/routing"
	"saferoute-go/internal/safety"
	"saferoute-go/internal/service"
	"saferoute-go/pkg/models"

	"github.com/joho/godotenv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port           int
		Host           string
		GRPCPort       int
		Environment    string
		Timezone       string
		Location       *time.Location
		RequestTimeout time.Duration
		CORSOrigins    []string
	}
	Database database.Config
	Signals  struct {
		BaseURL    string // пустой адрес отключает живые сигналы
		Timeout    time.Duration
		CacheTTL   time.Duration
		CacheSize  int
		MinSamples int
	}
	Weather struct {
		Enabled   bool
		BaseURL   string
		Timeout   time.Duration
		CacheTTL  time.Duration
		CacheSize int
	}
	Scoring struct {
		WeightLighting  float64
		WeightFootfall  float64
		WeightHazards   float64
		WeightProximity float64
		DefaultScore    int
		ProviderTimeout time.Duration
		TimeDeltas      map[models.TimeOfDay]int
		WeatherDeltas   map[models.WeatherCondition]int
		Multipliers     map[models.UserType]float64
		HighConfidence  float64
		LowConfidence   float64
	}
	Routing struct {
		WalkingKmh     float64
		CyclingKmh     float64
		DrivingKmh     float64
		SampleStride   int
		MaxConcurrency int
		DetourRatio    float64
		RiskHigh       int
		RiskModerate   int
		DensifyPoints  int
		Waypoints      map[models.VariantType]int
		Variants       map[models.VariantType]routing.VariantAdjustment
	}
	Batch struct {
		MaxSize int
	}
	Recorder struct {
		QueueSize int
		Workers   int
	}
	RateLimit struct {
		RPS   float64
		Burst int
	}
	Retention struct {
		Schedule    string
		MaxAge      time.Duration
		ScoreMaxAge time.Duration // 0 = журнал оценок хранится бессрочно
	}
	Zones struct {
		File string // пустой путь означает встроенный набор районов
	}
	Logging struct {
		Level string
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Значения из файла .env (или ENV_FILE) не перекрывают уже заданные переменные.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.GRPCPort = getEnvInt("GRPC_PORT", 9090)
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")
	cfg.Server.Timezone = getEnv("TIMEZONE", "Asia/Kolkata")
	cfg.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	cfg.Server.CORSOrigins = getEnvList("CORS_ORIGINS", nil)

	// Конфигурация базы данных
	cfg.Database = database.Config{
		Driver:          getEnv("DB_DRIVER", "postgres"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnv("DB_PORT", "5432"),
		Database:        getEnv("DB_NAME", "saferoute"),
		Username:        getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", "postgres"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		SQLitePath:      getEnv("DB_SQLITE_PATH", "saferoute.db"),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
	}

	// Живые сигналы безопасности
	cfg.Signals.BaseURL = getEnv("SIGNALS_API_BASE_URL", "")
	cfg.Signals.Timeout = getEnvDuration("SIGNALS_API_TIMEOUT", 3*time.Second)
	cfg.Signals.CacheTTL = getEnvDuration("SIGNALS_CACHE_TTL", 5*time.Minute)
	cfg.Signals.CacheSize = getEnvInt("SIGNALS_CACHE_SIZE", 10000)
	cfg.Signals.MinSamples = getEnvInt("SIGNALS_MIN_SAMPLES", 3)

	// Погода
	cfg.Weather.Enabled = getEnvBool("WEATHER_ENABLED", false)
	cfg.Weather.BaseURL = getEnv("WEATHER_API_BASE_URL", "https://api.open-meteo.com")
	cfg.Weather.Timeout = getEnvDuration("WEATHER_API_TIMEOUT", 2*time.Second)
	cfg.Weather.CacheTTL = getEnvDuration("WEATHER_CACHE_TTL", 15*time.Minute)
	cfg.Weather.CacheSize = getEnvInt("WEATHER_CACHE_SIZE", 1000)

	// Модель оценки
	cfg.Scoring.WeightLighting = getEnvFloat("SCORING_WEIGHT_LIGHTING", 0.30)
	cfg.Scoring.WeightFootfall = getEnvFloat("SCORING_WEIGHT_FOOTFALL", 0.25)
	cfg.Scoring.WeightHazards = getEnvFloat("SCORING_WEIGHT_HAZARDS", 0.20)
	cfg.Scoring.WeightProximity = getEnvFloat("SCORING_WEIGHT_PROXIMITY", 0.25)
	cfg.Scoring.DefaultScore = getEnvInt("SCORING_DEFAULT_SCORE", 60)
	cfg.Scoring.ProviderTimeout = getEnvDuration("SCORING_PROVIDER_TIMEOUT", 3*time.Second)

	// Поправки и множители: SCORING_DELTA_NIGHT, SCORING_WEATHER_DELTA_RAINY, SCORING_MULTIPLIER_CYCLIST
	defaults := safety.DefaultOptions()
	cfg.Scoring.TimeDeltas = make(map[models.TimeOfDay]int, len(defaults.TimeDeltas))
	for timeOfDay, delta := range defaults.TimeDeltas {
		cfg.Scoring.TimeDeltas[timeOfDay] = getEnvInt("SCORING_DELTA_"+envSuffix(string(timeOfDay)), delta)
	}
	cfg.Scoring.WeatherDeltas = make(map[models.WeatherCondition]int, len(defaults.WeatherDeltas))
	for weather, delta := range defaults.WeatherDeltas {
		cfg.Scoring.WeatherDeltas[weather] = getEnvInt("SCORING_WEATHER_DELTA_"+envSuffix(string(weather)), delta)
	}
	cfg.Scoring.Multipliers = make(map[models.UserType]float64, len(defaults.UserTypeMultipliers))
	for userType, multiplier := range defaults.UserTypeMultipliers {
		cfg.Scoring.Multipliers[userType] = getEnvFloat("SCORING_MULTIPLIER_"+envSuffix(string(userType)), multiplier)
	}
	cfg.Scoring.HighConfidence = getEnvFloat("SCORING_CONFIDENCE_HIGH", defaults.HighConfidence)
	cfg.Scoring.LowConfidence = getEnvFloat("SCORING_CONFIDENCE_LOW", defaults.LowConfidence)

	// Построение вариантов маршрута
	cfg.Routing.WalkingKmh = getEnvFloat("ROUTING_SPEED_WALKING_KMH", 5)
	cfg.Routing.CyclingKmh = getEnvFloat("ROUTING_SPEED_CYCLING_KMH", 15)
	cfg.Routing.DrivingKmh = getEnvFloat("ROUTING_SPEED_DRIVING_KMH", 30)
	cfg.Routing.SampleStride = getEnvInt("ROUTING_SAMPLE_STRIDE", 3)
	cfg.Routing.MaxConcurrency = getEnvInt("ROUTING_MAX_CONCURRENCY", 16)
	cfg.Routing.DetourRatio = getEnvFloat("ROUTING_DETOUR_RATIO", 0.08)
	cfg.Routing.RiskHigh = getEnvInt("ROUTING_RISK_HIGH", 40)
	cfg.Routing.RiskModerate = getEnvInt("ROUTING_RISK_MODERATE", 60)

	// Таблица вариантов: ROUTING_VARIANT_SAFEST_DISTANCE, _DURATION, _SCORE_DELTA; ROUTING_WAYPOINTS_SAFEST
	geometry := routing.DefaultGeometryOptions()
	cfg.Routing.DensifyPoints = getEnvInt("ROUTING_DENSIFY_POINTS", geometry.DensifyPoints)
	cfg.Routing.Waypoints = make(map[models.VariantType]int, len(models.AllVariants))
	cfg.Routing.Variants = make(map[models.VariantType]routing.VariantAdjustment, len(models.AllVariants))
	variants := routing.DefaultVariantTable()
	for _, variant := range models.AllVariants {
		suffix := envSuffix(string(variant))
		cfg.Routing.Waypoints[variant] = getEnvInt("ROUTING_WAYPOINTS_"+suffix, geometry.Waypoints[variant])

		adj := variants[variant]
		cfg.Routing.Variants[variant] = routing.VariantAdjustment{
			DistanceFactor: getEnvFloat("ROUTING_VARIANT_"+suffix+"_DISTANCE", adj.DistanceFactor),
			DurationFactor: getEnvFloat("ROUTING_VARIANT_"+suffix+"_DURATION", adj.DurationFactor),
			ScoreDelta:     getEnvInt("ROUTING_VARIANT_"+suffix+"_SCORE_DELTA", adj.ScoreDelta),
		}
	}

	cfg.Batch.MaxSize = getEnvInt("BATCH_MAX_SIZE", safety.DefaultMaxBatchSize)

	cfg.Recorder.QueueSize = getEnvInt("RECORDER_QUEUE_SIZE", 256)
	cfg.Recorder.Workers = getEnvInt("RECORDER_WORKERS", 2)

	cfg.RateLimit.RPS = getEnvFloat("RATE_LIMIT_RPS", 20)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", 40)

	cfg.Retention.Schedule = getEnv("RETENTION_SCHEDULE", "0 0 3 * * *")
	cfg.Retention.MaxAge = getEnvDuration("RETENTION_MAX_AGE", 30*24*time.Hour)
	cfg.Retention.ScoreMaxAge = getEnvDuration("RETENTION_SCORE_MAX_AGE", 0)

	cfg.Zones.File = getEnv("ZONES_FILE", "")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения и разрешает часовой пояс
func (c *Config) Validate() error {
	for name, port := range map[string]int{"SERVER_PORT": c.Server.Port, "GRPC_PORT": c.Server.GRPCPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be in 1-65535, got %d", name, port)
		}
	}
	if c.Server.Port == c.Server.GRPCPort {
		return fmt.Errorf("SERVER_PORT and GRPC_PORT must differ, both are %d", c.Server.Port)
	}

	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Server.Timezone, err)
	}
	c.Server.Location = loc

	if c.Batch.MaxSize < 1 {
		return fmt.Errorf("BATCH_MAX_SIZE must be positive, got %d", c.Batch.MaxSize)
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimit.RPS)
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("RETENTION_MAX_AGE must be positive, got %s", c.Retention.MaxAge)
	}
	if c.Retention.ScoreMaxAge < 0 {
		return fmt.Errorf("RETENTION_SCORE_MAX_AGE must not be negative, got %s", c.Retention.ScoreMaxAge)
	}

	low, high := c.Scoring.LowConfidence, c.Scoring.HighConfidence
	if low < 0 || high > 1 || low > high {
		return fmt.Errorf("confidence must satisfy 0 <= SCORING_CONFIDENCE_LOW <= SCORING_CONFIDENCE_HIGH <= 1, got %v and %v", low, high)
	}
	for userType, multiplier := range c.Scoring.Multipliers {
		if multiplier <= 0 {
			return fmt.Errorf("SCORING_MULTIPLIER_%s must be positive, got %v", envSuffix(string(userType)), multiplier)
		}
	}
	for variant, adj := range c.Routing.Variants {
		if adj.DistanceFactor <= 0 || adj.DurationFactor <= 0 {
			return fmt.Errorf("ROUTING_VARIANT_%s factors must be positive", envSuffix(string(variant)))
		}
	}
	for variant, n := range c.Routing.Waypoints {
		if n < 0 {
			return fmt.Errorf("ROUTING_WAYPOINTS_%s must not be negative, got %d", envSuffix(string(variant)), n)
		}
	}
	return nil
}

// Addr адрес HTTP сервера
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GRPCAddr адрес gRPC сервера проверки состояния
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// IsProduction true для боевого окружения
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// SafetyOptions параметры калькулятора оценки
func (c *Config) SafetyOptions() safety.Options {
	opts := safety.DefaultOptions()
	opts.Weights = safety.Weights{
		Lighting:        c.Scoring.WeightLighting,
		Footfall:        c.Scoring.WeightFootfall,
		Hazards:         c.Scoring.WeightHazards,
		ProximityToHelp: c.Scoring.WeightProximity,
	}
	opts.DefaultScore = c.Scoring.DefaultScore
	opts.ProviderTimeout = c.Scoring.ProviderTimeout
	opts.MinLiveSamples = c.Signals.MinSamples
	opts.TimeDeltas = c.Scoring.TimeDeltas
	opts.WeatherDeltas = c.Scoring.WeatherDeltas
	opts.UserTypeMultipliers = c.Scoring.Multipliers
	opts.HighConfidence = c.Scoring.HighConfidence
	opts.LowConfidence = c.Scoring.LowConfidence
	return opts
}

// GeometryOptions параметры построения геометрии вариантов
func (c *Config) GeometryOptions() routing.GeometryOptions {
	opts := routing.DefaultGeometryOptions()
	opts.SpeedsKmh = map[models.TransportMode]float64{
		models.Walking: c.Routing.WalkingKmh,
		models.Cycling: c.Routing.CyclingKmh,
		models.Driving: c.Routing.DrivingKmh,
	}
	opts.DetourOffsetRatio = c.Routing.DetourRatio
	opts.DensifyPoints = c.Routing.DensifyPoints
	opts.Waypoints = c.Routing.Waypoints
	return opts
}

// VariantTable таблица поправок вариантов маршрута
func (c *Config) VariantTable() map[models.VariantType]routing.VariantAdjustment {
	table := make(map[models.VariantType]routing.VariantAdjustment, len(c.Routing.Variants))
	for variant, adj := range c.Routing.Variants {
		table[variant] = adj
	}
	return table
}

// PlannerOptions параметры планировщика
func (c *Config) PlannerOptions() routing.PlannerOptions {
	return routing.PlannerOptions{
		SampleStride:   c.Routing.SampleStride,
		MaxConcurrency: c.Routing.MaxConcurrency,
	}
}

// RiskThresholds пороги уровней риска
func (c *Config) RiskThresholds() routing.RiskThresholds {
	return routing.RiskThresholds{High: c.Routing.RiskHigh, Moderate: c.Routing.RiskModerate}
}

// RetentionPolicy сроки хранения данных
func (c *Config) RetentionPolicy() jobs.RetentionPolicy {
	return jobs.RetentionPolicy{
		Schedule:    c.Retention.Schedule,
		RouteMaxAge: c.Retention.MaxAge,
		ScoreMaxAge: c.Retention.ScoreMaxAge,
	}
}

// RecorderOptions параметры очереди записи
func (c *Config) RecorderOptions() service.RecorderOptions {
	opts := service.DefaultRecorderOptions()
	opts.QueueSize = c.Recorder.QueueSize
	opts.Workers = c.Recorder.Workers
	return opts
}

// envSuffix имя значения перечисления в виде суффикса переменной: two_wheeler -> TWO_WHEELER
func envSuffix(value string) string {
	return strings.ToUpper(value)
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration принимает формат time.ParseDuration ("5s", "15m") или целое число секунд
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
