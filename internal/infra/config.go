package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	StoragePath    string
	StorageBaseURL string
	PublicURL      string
	SeedDemoData   bool

	GeminiAPIKey      string
	GeminiBaseURL     string
	CaptionModel      string
	ImageModel        string
	ImageEditModel    string
	VideoModel        string
	VideoChainModel   string
	SpeechModel       string
	SpeechVoice       string
	TrendsModel       string
	ChatModel         string
	VideoResolution   string
	VideoPollEvery    time.Duration
	TrendRefreshEvery time.Duration

	NATSURL           string
	NATSSubjectPrefix string
	WorkerConcurrency int

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           port,
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		PublicURL:      getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%s", port)),
		SeedDemoData:   getEnvBool("SEED_DEMO_DATA", true),

		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		CaptionModel:      getEnv("GEMINI_CAPTION_MODEL", "gemini-3-flash-preview"),
		ImageModel:        getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		ImageEditModel:    getEnv("GEMINI_IMAGE_EDIT_MODEL", "gemini-2.5-flash-image"),
		VideoModel:        getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
		VideoChainModel:   getEnv("GEMINI_VIDEO_CHAIN_MODEL", "veo-3.1-generate-preview"),
		SpeechModel:       getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		SpeechVoice:       getEnv("GEMINI_SPEECH_VOICE", "Kore"),
		TrendsModel:       getEnv("GEMINI_TRENDS_MODEL", "gemini-3-flash-preview"),
		ChatModel:         getEnv("GEMINI_CHAT_MODEL", "gemini-3-pro-preview"),
		VideoResolution:   getEnv("VIDEO_RESOLUTION", "720p"),
		VideoPollEvery:    time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 10)),
		TrendRefreshEvery: time.Minute * time.Duration(getEnvInt("TREND_REFRESH_MINUTES", 30)),

		NATSURL:           strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "omniscore"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.VideoPollEvery <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.TrendRefreshEvery <= 0 {
		return nil, fmt.Errorf("TREND_REFRESH_MINUTES must be positive")
	}
	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if _, err := url.Parse(cfg.StorageBaseURL); err != nil {
		return nil, fmt.Errorf("STORAGE_BASE_URL is invalid: %w", err)
	}

	return cfg, nil
}

// Offline reports whether generation falls back to synthetic assets.
func (c *Config) Offline() bool {
	return c.GeminiAPIKey == ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
