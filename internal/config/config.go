package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Admission AdmissionConfig
	Session   SessionConfig
	Ai        AIConfig
	Search    SearchConfig
	Voice     VoiceConfig
	Payment   PaymentConfig
	Detector  DetectorConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string // empty disables the NATS ingress and relay
	RedisURL           string // empty disables voice transport and cluster fan-out
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type AdmissionConfig struct {
	Threshold float64
	Debounce  time.Duration
}

type SessionConfig struct {
	TTL time.Duration
}

type AIConfig struct {
	LLMProvider     string // "gemini", "ollama", "huggingface" or "" for none
	LLMModel        string
	LLMBaseURL      string
	LLMAPIKey       string
	LLMTimeout      time.Duration
	SummaryStrategy string // "value" or "proscons"
}

type SearchConfig struct {
	SearxngURL     string
	Limit          int
	Timeout        time.Duration
	UserAgent      string
	FetchTimeout   time.Duration
	FetchUserAgent string
	FetchCacheSize int
	FetchCacheTTL  time.Duration
}

type VoiceConfig struct {
	Host      string
	APIKey    string
	APISecret string
	AgentName string
	TokenTTL  time.Duration
	Enabled   bool
}

type PaymentConfig struct {
	MidtransServerKey    string
	MidtransIsProduction bool
	MidtransFinishURL    string
	StubEnabled          bool // acknowledge purchases without a payment provider
}

// DetectorConfig is handed to the browser so it can call the vision model
// directly.
type DetectorConfig struct {
	APIURL string
	APIKey string
	Model  string
	Prompt string
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8787"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8787"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Admission: AdmissionConfig{
			Threshold: getEnvAsFloat("PICKUP_CONFIDENCE_THRESHOLD", 0.6),
			Debounce:  getEnvAsMillis("PICKUP_DEBOUNCE_MS", 1500*time.Millisecond),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 6*time.Hour),
		},
		Ai: AIConfig{
			LLMProvider:     getEnv("LLM_PROVIDER", ""),
			LLMModel:        getEnv("LLM_MODEL", "gemini-1.5-flash"),
			LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:       firstEnv("LLM_API_KEY", "GEMINI_API_KEY"),
			LLMTimeout:      getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
			SummaryStrategy: getEnv("SUMMARY_STRATEGY", "value"),
		},
		Search: SearchConfig{
			SearxngURL:     strings.TrimSpace(getEnv("SEARXNG_URL", "")),
			Limit:          getEnvAsInt("SEARCH_LIMIT", 5),
			Timeout:        getEnvAsMillis("SEARCH_TIMEOUT_MS", 8*time.Second),
			UserAgent:      getEnv("SEARCH_USER_AGENT", ""),
			FetchTimeout:   getEnvAsMillis("FETCH_TIMEOUT_MS", 12*time.Second),
			FetchUserAgent: getEnv("FETCH_USER_AGENT", ""),
			FetchCacheSize: getEnvAsInt("FETCH_CACHE_SIZE", 256),
			FetchCacheTTL:  getEnvAsDuration("FETCH_CACHE_TTL", 10*time.Minute),
		},
		Voice: VoiceConfig{
			Host:      getEnv("LIVEKIT_HOST", ""),
			APIKey:    getEnv("LIVEKIT_API_KEY", ""),
			APISecret: getEnv("LIVEKIT_API_SECRET", ""),
			AgentName: getEnv("LIVEKIT_AGENT_NAME", "shoppinglens-voice-agent"),
			TokenTTL:  getEnvAsDuration("LIVEKIT_TOKEN_TTL", time.Hour),
			Enabled:   getEnvAsBool("VOICE_ENABLED", true),
		},
		Payment: PaymentConfig{
			MidtransServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			MidtransIsProduction: getEnvAsBool("MIDTRANS_IS_PRODUCTION", false),
			MidtransFinishURL:    getEnv("MIDTRANS_FINISH_URL", ""),
			StubEnabled:          getEnvAsBool("BUY_STUB_ENABLED", true),
		},
		Detector: DetectorConfig{
			APIURL: getEnv("OVERSHOOT_API_URL", ""),
			APIKey: getEnv("OVERSHOOT_API_KEY", ""),
			Model:  getEnv("OVERSHOOT_MODEL", ""),
			Prompt: getEnv("OVERSHOOT_PROMPT", ""),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "shoppinglens-backend"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads Go duration syntax such as "90s" or "6h".
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}

// getEnvAsMillis reads a positive integer number of milliseconds.
func getEnvAsMillis(key string, fallback time.Duration) time.Duration {
	if ms := getEnvAsInt(key, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
