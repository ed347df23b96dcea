package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string
	DataDir  string

	DBDriver string
	DBDSN    string

	AuthSecret string
	TokenTTL   time.Duration

	// Optional admin account seeded at startup.
	AdminUsername string
	AdminPassword string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMTimeout    time.Duration

	// EvidenceStrict penalizes positive scores without evidence quotes.
	EvidenceStrict bool

	CORSOrigins []string
	LogFile     string
}

// FromEnv loads configuration from the environment, reading a local
// .env file first when present.
func FromEnv() Config {
	_ = godotenv.Load()
	return Config{
		Env:      envOr("APP_ENV", "dev"),
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		DataDir:  envOr("DATA_DIR", "./data"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_SECRET", "supersecret-dev-key"),
		TokenTTL:   envDuration("TOKEN_TTL", 14*24*time.Hour),

		AdminUsername: strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   envOr("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		LLMTimeout:    envDuration("LLM_TIMEOUT", 60*time.Second),

		EvidenceStrict: envBool("EVIDENCE_STRICT", true),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		LogFile:     os.Getenv("LOG_FILE"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
