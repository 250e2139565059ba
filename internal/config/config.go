package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthTokenTTL   string `mapstructure:"AUTH_TOKEN_TTL"`

	OpenAIBaseURL   string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	TranscribeModel string `mapstructure:"TRANSCRIBE_MODEL"`
	SummarizeModel  string `mapstructure:"SUMMARIZE_MODEL"`
	EmbeddingModel  string `mapstructure:"EMBEDDING_MODEL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `mapstructure:"TELEGRAM_CHAT_ID"`

	CalendarBaseURL  string `mapstructure:"CALENDAR_BASE_URL"`
	CalendarID       string `mapstructure:"CALENDAR_ID"`
	CalendarToken    string `mapstructure:"CALENDAR_TOKEN"`
	CalendarTimeZone string `mapstructure:"CALENDAR_TIMEZONE"`

	BlobDir          string `mapstructure:"BLOB_DIR"`
	ReminderSnapshot string `mapstructure:"REMINDER_SNAPSHOT"`
	MigrationsDir    string `mapstructure:"MIGRATIONS_DIR"`

	PHIPassphrase string `mapstructure:"PHI_PASSPHRASE"`
	PHISalt       string `mapstructure:"PHI_SALT"`

	HospitalName string `mapstructure:"HOSPITAL_NAME"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AUTH_ISSUER", "carelink")
	v.SetDefault("AUTH_TOKEN_TTL", "24h")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIMEZONE", "UTC")
	v.SetDefault("BLOB_DIR", "data/blobs")
	v.SetDefault("REMINDER_SNAPSHOT", "data/reminders.json")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("HOSPITAL_NAME", "Healthcare Discharge Assistant")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_TOKEN_TTL",
		"OPENAI_BASE_URL", "OPENAI_API_KEY", "TRANSCRIBE_MODEL", "SUMMARIZE_MODEL", "EMBEDDING_MODEL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"CALENDAR_BASE_URL", "CALENDAR_ID", "CALENDAR_TOKEN", "CALENDAR_TIMEZONE",
		"BLOB_DIR", "REMINDER_SNAPSHOT", "MIGRATIONS_DIR",
		"PHI_PASSPHRASE", "PHI_SALT",
		"HOSPITAL_NAME",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_SIGNING_KEY.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TokenTTL parses AUTH_TOKEN_TTL, falling back to 24 hours.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.AuthTokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Validate checks that the configuration is safe to run. Production
// refuses to start without real authentication and PHI encryption
// material; SMTP settings must be complete when a host is given.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.IsProduction() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required in production. " +
				"Refusing to start without authentication configuration")
		}
		if c.PHIPassphrase == "" {
			return fmt.Errorf("PHI_PASSPHRASE is required in production")
		}
	}

	if c.PHIPassphrase != "" && len(c.PHISalt) < 16 {
		return fmt.Errorf("PHI_SALT must be at least 16 characters when PHI_PASSPHRASE is set, got %d", len(c.PHISalt))
	}

	if c.SMTPHost != "" {
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.SMTPPort)
		}
		if c.SMTPFrom == "" && c.SMTPUsername == "" {
			return fmt.Errorf("SMTP_FROM or SMTP_USERNAME is required when SMTP_HOST is set")
		}
	}

	if c.AuthTokenTTL != "" {
		if _, err := time.ParseDuration(c.AuthTokenTTL); err != nil {
			return fmt.Errorf("AUTH_TOKEN_TTL is not a valid duration: %w", err)
		}
	}

	return nil
}
