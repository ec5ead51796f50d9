package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	FrontendURL         string // used for links in emails
	CookieDomain        string // production cookie domain, e.g. ".handover.app"
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for the welcome email (Brevo)
	MailFrom            string
	MinDeadlineDays     int
	RateLimitPerMinute  int // login and send-message, per client
	// HealthTargets are extra HTTP dependencies probed by /health/json,
	// configured as HEALTH_TARGETS="storage=https://...,frontend=https://...".
	HealthTargets map[string]string

	// Upload signing. StorageDriver is "supabase" or "s3".
	StorageDriver     string
	SupabaseURL       string
	SupabaseSecretKey string // service_role key, not anon
	S3Bucket          string
	S3Region          string
	S3Endpoint        string // optional, for S3-compatible stores (R2, MinIO)
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", "supabase")
	viper.SetDefault("MIN_DEADLINE_DAYS", 6)
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 30)

	env := viper.GetString("APP_ENV")

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		FrontendURL:         strings.TrimRight(viper.GetString("FRONTEND_URL"), "/"),
		CookieDomain:        viper.GetString("COOKIE_DOMAIN"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		MinDeadlineDays:     viper.GetInt("MIN_DEADLINE_DAYS"),
		RateLimitPerMinute:  viper.GetInt("RATE_LIMIT_PER_MINUTE"),
		HealthTargets:       parseTargets(viper.GetString("HEALTH_TARGETS")),
		StorageDriver:       strings.ToLower(strings.TrimSpace(viper.GetString("STORAGE_DRIVER"))),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		S3Bucket:            viper.GetString("S3_BUCKET"),
		S3Region:            viper.GetString("S3_REGION"),
		S3Endpoint:          viper.GetString("S3_ENDPOINT"),
		S3AccessKeyID:       viper.GetString("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:   viper.GetString("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL:     viper.GetString("S3_PUBLIC_BASE_URL"),
	}, nil
}

// parseTargets reads "name=url" pairs separated by commas. Malformed pairs are skipped.
func parseTargets(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(url)
	}
	return out
}
