// config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the service reads from the environment.
type Config struct {
	DatabaseURL            string
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	MakeWebhookURL string
	RedisURL       string
	CacheTTL       time.Duration

	AuthSyncURL   string
	AuthSyncToken string

	R2AccountID    string
	R2AccessKeyID  string
	R2AccessSecret string
	R2Bucket       string
	CDNBaseURL     string

	OEmbedURL string

	AllowedOrigins    []string
	Port              string
	StartingCredits   int64
	SocialProofReward int64
	FeatureRulesFile  string
}

var required = []string{
	"DATABASE_URL",
	"SUPABASE_URL",
	"SUPABASE_ANON_KEY",
	"SUPABASE_SERVICE_ROLE_KEY",
	"SUPABASE_JWT_SECRET",
}

// MissingError names every required variable that was not set.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
}

// Load builds a Config from the environment. It fails with a *MissingError
// listing all absent required variables at once.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is Load over an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	var missing []string
	for _, key := range required {
		if get(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Vars: missing}
	}

	cfg := &Config{
		DatabaseURL:            get("DATABASE_URL"),
		SupabaseURL:            get("SUPABASE_URL"),
		SupabaseAnonKey:        get("SUPABASE_ANON_KEY"),
		SupabaseServiceRoleKey: get("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseJWTSecret:      get("SUPABASE_JWT_SECRET"),
		OpenAIAPIKey:           get("OPENAI_API_KEY"),
		OpenAIBaseURL:          get("OPENAI_BASE_URL"),
		OpenAIModel:            withDefault(get("OPENAI_MODEL"), "gpt-4o-mini"),
		MakeWebhookURL:         get("MAKE_WEBHOOK_URL"),
		RedisURL:               get("REDIS_URL"),
		AuthSyncURL:            get("AUTH_SYNC_URL"),
		AuthSyncToken:          get("AUTH_SYNC_TOKEN"),
		R2AccountID:            get("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:          get("R2_ACCESS_KEY_ID"),
		R2AccessSecret:         get("R2_ACCESS_KEY_SECRET"),
		R2Bucket:               get("R2_BUCKET_NAME"),
		CDNBaseURL:             get("CDN_BASE_URL"),
		OEmbedURL:              withDefault(get("OEMBED_URL"), "https://noembed.com/embed"),
		Port:                   withDefault(get("PORT"), "5200"),
		FeatureRulesFile:       get("FEATURE_RULES_FILE"),
	}

	origins := withDefault(get("ALLOWED_ORIGINS"), "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	var err error
	if cfg.StartingCredits, err = intVar(get("STARTING_CREDITS"), 10); err != nil {
		return nil, fmt.Errorf("STARTING_CREDITS: %w", err)
	}
	if cfg.SocialProofReward, err = intVar(get("SOCIAL_PROOF_REWARD"), 5); err != nil {
		return nil, fmt.Errorf("SOCIAL_PROOF_REWARD: %w", err)
	}

	cfg.CacheTTL = 5 * time.Minute
	if raw := get("CACHE_TTL"); raw != "" {
		if cfg.CacheTTL, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("CACHE_TTL: %w", err)
		}
	}

	return cfg, nil
}

// R2Enabled reports whether badge icon uploads can be served.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessSecret != "" && c.R2Bucket != ""
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intVar(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}
