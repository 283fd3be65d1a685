package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Campaigns      CampaignConfig
	Reconciliation ReconciliationConfig
	Notifications  NotificationConfig
	AI             AIConfig
	Calendar       CalendarConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CampaignConfig carries scheduling policy knobs for both campaign families.
type CampaignConfig struct {
	ReminderFrequencyDays int
	MaxDurationDays       int
	ArchiveAfterDays      int
	CognitiveLoadMinutes  int
	OverloadWarnThreshold int
	MinDurationDays       int
	EnforceMinDuration    bool
	EnforceFutureStart    bool
}

// ReconciliationConfig governs the periodic sweep.
type ReconciliationConfig struct {
	Enabled     bool
	Interval    time.Duration
	NearEndDays int
}

// NotificationConfig tunes the reminder dispatch queue.
type NotificationConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// AIConfig governs the question generator adapter.
type AIConfig struct {
	ProviderCacheTTL time.Duration
	RequestTimeout   time.Duration
}

// CalendarConfig tunes the unified calendar read path.
type CalendarConfig struct {
	StatsCacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Campaigns = CampaignConfig{
		ReminderFrequencyDays: v.GetInt("CAMPAIGN_REMINDER_FREQUENCY_DAYS"),
		MaxDurationDays:       v.GetInt("CAMPAIGN_MAX_DURATION_DAYS"),
		ArchiveAfterDays:      v.GetInt("CAMPAIGN_ARCHIVE_AFTER_DAYS"),
		CognitiveLoadMinutes:  v.GetInt("CAMPAIGN_COGNITIVE_LOAD_MINUTES"),
		OverloadWarnThreshold: v.GetInt("CAMPAIGN_OVERLOAD_WARN_THRESHOLD"),
		MinDurationDays:       v.GetInt("CAMPAIGN_MIN_DURATION_DAYS"),
		// Both policies ship disabled to match current product behaviour.
		// Production deployments may re-enable them.
		EnforceMinDuration: v.GetBool("CAMPAIGNS_ENFORCE_MIN_DURATION"),
		EnforceFutureStart: v.GetBool("CAMPAIGNS_ENFORCE_FUTURE_START"),
	}

	cfg.Reconciliation = ReconciliationConfig{
		Enabled:     v.GetBool("ENABLE_RECONCILIATION"),
		Interval:    parseDuration(v.GetString("RECONCILIATION_INTERVAL"), 24*time.Hour),
		NearEndDays: v.GetInt("RECONCILIATION_NEAR_END_DAYS"),
	}

	cfg.Notifications = NotificationConfig{
		WorkerConcurrency: v.GetInt("NOTIFICATION_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("NOTIFICATION_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 5*time.Second),
	}

	cfg.AI = AIConfig{
		ProviderCacheTTL: parseDuration(v.GetString("AI_PROVIDER_CACHE_TTL"), 10*time.Minute),
		RequestTimeout:   parseDuration(v.GetString("AI_REQUEST_TIMEOUT"), 30*time.Second),
	}

	cfg.Calendar = CalendarConfig{
		StatsCacheTTL: parseDuration(v.GetString("CALENDAR_STATS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hcm_campaigns")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CAMPAIGN_REMINDER_FREQUENCY_DAYS", 7)
	v.SetDefault("CAMPAIGN_MAX_DURATION_DAYS", 90)
	v.SetDefault("CAMPAIGN_ARCHIVE_AFTER_DAYS", 90)
	v.SetDefault("CAMPAIGN_COGNITIVE_LOAD_MINUTES", 120)
	v.SetDefault("CAMPAIGN_OVERLOAD_WARN_THRESHOLD", 3)
	v.SetDefault("CAMPAIGN_MIN_DURATION_DAYS", 7)
	v.SetDefault("CAMPAIGNS_ENFORCE_MIN_DURATION", false)
	v.SetDefault("CAMPAIGNS_ENFORCE_FUTURE_START", false)

	v.SetDefault("ENABLE_RECONCILIATION", true)
	v.SetDefault("RECONCILIATION_INTERVAL", "24h")
	v.SetDefault("RECONCILIATION_NEAR_END_DAYS", 3)

	v.SetDefault("NOTIFICATION_WORKER_CONCURRENCY", 2)
	v.SetDefault("NOTIFICATION_WORKER_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "5s")

	v.SetDefault("AI_PROVIDER_CACHE_TTL", "10m")
	v.SetDefault("AI_REQUEST_TIMEOUT", "30s")

	v.SetDefault("CALENDAR_STATS_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
