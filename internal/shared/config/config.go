package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	OpenRouterAPIKey  string
	OpenRouterModels  []string
	OpenRouterTimeout time.Duration
	SiteURL           string
	SiteName          string
}

// DefaultModelChain is the ordered fallback chain tried by the model
// invocation layer when OPENROUTER_MODELS is not set. Cheapest and most
// preferred model first.
var DefaultModelChain = []string{
	"google/gemini-2.0-flash-exp:free",
	"meta-llama/llama-3.3-70b-instruct:free",
	"qwen/qwen-2.5-72b-instruct:free",
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	models := splitAndTrim(getEnv("OPENROUTER_MODELS", ""))
	if len(models) == 0 {
		models = append([]string(nil), DefaultModelChain...)
	}

	timeout := 20 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENROUTER_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		Env:               normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModels:  models,
		OpenRouterTimeout: timeout,
		SiteURL:           getEnv("OPENROUTER_SITE_URL", "http://localhost:3000"),
		SiteName:          getEnv("OPENROUTER_SITE_NAME", "PetCare"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}
