package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// 預設 OpenAI 相容端點
	defaultLLMBaseURL = "https://api.openai.com/v1"
	defaultLLMModel   = "gpt-4o-mini"

	// Groq 金鑰前綴與對應端點
	groqKeyPrefix     = "gsk_"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	groqModel         = "llama-3.3-70b-versatile"
	groqFallbackModel = "llama-3.1-8b-instant"
	groqVisionModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	LLM         LLMConfig       `mapstructure:"llm"`
	MealDB      MealDBConfig    `mapstructure:"mealdb"`
	Nutrition   NutritionConfig `mapstructure:"nutrition"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Overpass    OverpassConfig  `mapstructure:"overpass"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Image       ImageConfig     `mapstructure:"image"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Database    DatabaseConfig  `mapstructure:"database"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// LLMConfig 聊天補全服務配置，啟動時解析一次
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Model         string        `mapstructure:"model"`
	FallbackModel string        `mapstructure:"fallback_model"`
	VisionModel   string        `mapstructure:"vision_model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// SendPenalties 為 false 時不送 presence/frequency penalty
	SendPenalties bool          `mapstructure:"send_penalties"`
	// MaxConcurrent 同時進行的上游請求上限，MaxQueue 為等待中的上限
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	MaxQueue      int           `mapstructure:"max_queue"`
}

// MealDBConfig 外部食譜資料庫配置
type MealDBConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxDetails     int           `mapstructure:"max_details"`
	MaxFilterTerms int           `mapstructure:"max_filter_terms"`
	TopK           int           `mapstructure:"top_k"`
	MaxSteps       int           `mapstructure:"max_steps"`
	Concurrency    int           `mapstructure:"concurrency"`
	Translate      bool          `mapstructure:"translate"`
	TargetLanguage string        `mapstructure:"target_language"`
}

// NutritionConfig 營養查詢配置
type NutritionConfig struct {
	Providers     []string        `mapstructure:"providers"`
	AISearch      bool            `mapstructure:"ai_search"`
	LookupTimeout time.Duration   `mapstructure:"lookup_timeout"`
	PageSize      int             `mapstructure:"page_size"`
	OpenFoodFacts ProviderConfig  `mapstructure:"openfoodfacts"`
	USDA          ProviderConfig  `mapstructure:"usda"`
	FatSecret     FatSecretConfig `mapstructure:"fatsecret"`
	Heuristics    HeuristicConfig `mapstructure:"heuristics"`
}

// ProviderConfig 單一營養資料來源
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// FatSecretConfig FatSecret OAuth2 client credentials
type FatSecretConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// HeuristicConfig 份量換算常數（以 100g 為基準的克數）
type HeuristicConfig struct {
	TablespoonGrams        float64 `mapstructure:"tablespoon_grams"`
	TeaspoonGrams          float64 `mapstructure:"teaspoon_grams"`
	CupGrams               float64 `mapstructure:"cup_grams"`
	CloveGrams             float64 `mapstructure:"clove_grams"`
	UnitGrams              float64 `mapstructure:"unit_grams"`
	EstimateMaxIngredients int     `mapstructure:"estimate_max_ingredients"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// OverpassConfig 附近商店查詢配置
type OverpassConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultRadius int           `mapstructure:"default_radius"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
}

// AuthConfig JWT 配置
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// DatabaseConfig 資料庫配置，DSN 前綴決定驅動
type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
	LogQueries  bool   `mapstructure:"log_queries"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時仍可只靠環境變數
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnv()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.LLM = ResolveLLM(config.LLM)

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration", "llm_provider:", config.LLM.Provider, "llm_api_key:", maskAPIKey(config.LLM.APIKey), "llm_model:", config.LLM.Model)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// bindEnv 綁定沒有 APP_ 前綴的常用環境變數
func bindEnv() {
	viper.BindEnv("llm.api_key", "OPENAI_API_KEY", "LLM_API_KEY")
	viper.BindEnv("llm.base_url", "OPENAI_BASE_URL", "LLM_BASE_URL")
	viper.BindEnv("llm.model", "OPENAI_MODEL", "LLM_MODEL")
	viper.BindEnv("llm.fallback_model", "LLM_FALLBACK_MODEL")
	viper.BindEnv("llm.vision_model", "LLM_VISION_MODEL")
	viper.BindEnv("llm.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("nutrition.providers", "NUTRITION_PROVIDERS")
	viper.BindEnv("nutrition.usda.api_key", "USDA_API_KEY")
	viper.BindEnv("nutrition.fatsecret.client_id", "FATSECRET_CLIENT_ID")
	viper.BindEnv("nutrition.fatsecret.client_secret", "FATSECRET_CLIENT_SECRET")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET", "SECRET_KEY")
	viper.BindEnv("database.dsn", "DATABASE_URL")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")
}

// ResolveLLM 依金鑰前綴決定供應商、端點與模型
func ResolveLLM(cfg LLMConfig) LLMConfig {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if strings.HasPrefix(cfg.APIKey, groqKeyPrefix) {
		cfg.Provider = "groq"
		cfg.BaseURL = groqBaseURL
		cfg.Model = groqModel
		if cfg.FallbackModel == "" {
			cfg.FallbackModel = groqFallbackModel
		}
		if cfg.VisionModel == "" {
			cfg.VisionModel = groqVisionModel
		}
		cfg.SendPenalties = false
		return cfg
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultLLMBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultLLMModel
	}
	if cfg.Provider == "" {
		if cfg.BaseURL == defaultLLMBaseURL {
			cfg.Provider = "openai"
		} else {
			cfg.Provider = "custom"
		}
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	return cfg
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "nutrition-api")

	// 伺服器設定
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "75s")
	viper.SetDefault("server.max_body_bytes", 10<<20)

	// LLM 設定
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.send_penalties", true)
	viper.SetDefault("llm.max_concurrent", 8)
	viper.SetDefault("llm.max_queue", 64)

	// TheMealDB
	viper.SetDefault("mealdb.enabled", true)
	viper.SetDefault("mealdb.base_url", "https://www.themealdb.com/api/json/v1/1")
	viper.SetDefault("mealdb.timeout", "6s")
	viper.SetDefault("mealdb.max_details", 14)
	viper.SetDefault("mealdb.max_filter_terms", 6)
	viper.SetDefault("mealdb.top_k", 6)
	viper.SetDefault("mealdb.max_steps", 12)
	viper.SetDefault("mealdb.concurrency", 4)
	viper.SetDefault("mealdb.translate", true)
	viper.SetDefault("mealdb.target_language", "português de Portugal (PT-PT)")

	// 營養資料來源
	viper.SetDefault("nutrition.providers", []string{"openfoodfacts", "usda"})
	viper.SetDefault("nutrition.ai_search", true)
	viper.SetDefault("nutrition.lookup_timeout", "1500ms")
	viper.SetDefault("nutrition.page_size", 5)
	viper.SetDefault("nutrition.openfoodfacts.base_url", "https://world.openfoodfacts.org")
	viper.SetDefault("nutrition.usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	viper.SetDefault("nutrition.usda.api_key", "DEMO_KEY")
	viper.SetDefault("nutrition.fatsecret.base_url", "https://platform.fatsecret.com/rest/server.api")
	viper.SetDefault("nutrition.fatsecret.token_url", "https://oauth.fatsecret.com/connect/token")
	viper.SetDefault("nutrition.heuristics.tablespoon_grams", 15)
	viper.SetDefault("nutrition.heuristics.teaspoon_grams", 5)
	viper.SetDefault("nutrition.heuristics.cup_grams", 240)
	viper.SetDefault("nutrition.heuristics.clove_grams", 5)
	viper.SetDefault("nutrition.heuristics.unit_grams", 80)
	viper.SetDefault("nutrition.heuristics.estimate_max_ingredients", 30)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 512)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// Overpass
	viper.SetDefault("overpass.base_url", "https://overpass.kumi.systems/api/interpreter")
	viper.SetDefault("overpass.timeout", "30s")
	viper.SetDefault("overpass.default_radius", 3000)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
	viper.SetDefault("rate_limit.burst", 20)

	// 圖片設定
	viper.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	viper.SetDefault("image.max_dimension", 1600)

	// 認證
	viper.SetDefault("auth.token_ttl", "720h")
	viper.SetDefault("auth.bcrypt_cost", 10)

	// 資料庫
	viper.SetDefault("database.dsn", "sqlite://nutrition.db")
	viper.SetDefault("database.auto_migrate", true)

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required (OPENAI_API_KEY)")
	}
	if config.LLM.Timeout <= 0 {
		return fmt.Errorf("invalid llm timeout")
	}
	if config.LLM.MaxConcurrent <= 0 || config.LLM.MaxQueue < 0 {
		return fmt.Errorf("invalid llm queue limits")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Nutrition.LookupTimeout <= 0 {
		return fmt.Errorf("invalid nutrition lookup timeout")
	}
	if config.Nutrition.PageSize <= 0 {
		return fmt.Errorf("invalid nutrition page size")
	}
	h := config.Nutrition.Heuristics
	if h.TablespoonGrams <= 0 || h.CupGrams <= 0 || h.CloveGrams <= 0 || h.UnitGrams <= 0 || h.TeaspoonGrams <= 0 {
		return fmt.Errorf("nutrition heuristics must be positive")
	}

	if config.MealDB.Enabled && (config.MealDB.MaxDetails <= 0 || config.MealDB.TopK <= 0 || config.MealDB.MaxSteps <= 0) {
		return fmt.Errorf("invalid mealdb limits")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is required (JWT_SECRET)")
	}
	if config.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid auth token ttl")
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	return nil
}
