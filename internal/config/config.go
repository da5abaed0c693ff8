package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	FrontendURL         string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	FrontendCallbackURL string `env:"FRONTEND_CALLBACK_URL" envDefault:"http://localhost:5173/auth/callback"`
	BaseURL             string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	InvitationTTL time.Duration `env:"INVITATION_TTL" envDefault:"168h"`

	GitHub OAuthConfig `envPrefix:"GITHUB_"`
	GitLab OAuthConfig `envPrefix:"GITLAB_"`
	Google OAuthConfig `envPrefix:"GOOGLE_"`

	SMTP     SMTPConfig     `envPrefix:"SMTP_"`
	Electric ElectricConfig `envPrefix:"ELECTRIC_"`
	Log      LogConfig      `envPrefix:"LOG_"`

	PublicRateLimit RateLimitConfig `envPrefix:"RATELIMIT_PUBLIC_"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// ElectricConfig points at the Electric shape API used for live sync.
type ElectricConfig struct {
	URL    string `env:"URL"`
	Secret string `env:"SECRET"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type RateLimitConfig struct {
	Requests int           `env:"REQUESTS" envDefault:"30"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
	Burst    int           `env:"BURST" envDefault:"10"`
	// TrustedProxies lists the addresses or CIDR ranges whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != ""
}

func (c *ElectricConfig) IsConfigured() bool {
	return c.URL != ""
}
