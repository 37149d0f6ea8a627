package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// JWTConfig is shared by the auth service (issuer) and the gateway (verifier).
type JWTConfig struct {
	Issuer         string        `env:"JWT_ISSUER,           default=portfolio-auth"`
	Audience       string        `env:"JWT_AUDIENCE,         default=portfolio-api"`
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH, default=./keys/private.pem"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH,  default=./keys/public.pem"`
	TokenTTL       time.Duration `env:"TOKEN_EXPIRY,         default=1h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=portfolio"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type RateLimitConfig struct {
	Points   int           `env:"RATE_LIMIT_POINTS,   default=1000"`
	Duration time.Duration `env:"RATE_LIMIT_DURATION, default=60s"`
	// Backend is "memory" (single replica) or "redis" (shared counters).
	Backend string `env:"RATE_LIMIT_BACKEND, default=memory"`
}

// ServiceURLs maps each backend to its base address.
type ServiceURLs struct {
	Auth         string `env:"AUTH_SERVICE_URL,         default=http://auth-service:8081"`
	Intro        string `env:"INTRO_SERVICE_URL,        default=http://sections-service:8082"`
	About        string `env:"ABOUT_SERVICE_URL,        default=http://sections-service:8082"`
	Experience   string `env:"EXPERIENCE_SERVICE_URL,   default=http://sections-service:8082"`
	Projects     string `env:"PROJECTS_SERVICE_URL,     default=http://sections-service:8082"`
	Skills       string `env:"SKILLS_SERVICE_URL,       default=http://sections-service:8082"`
	Certificates string `env:"CERTIFICATES_SERVICE_URL, default=http://sections-service:8082"`
	Education    string `env:"EDUCATION_SERVICE_URL,    default=http://sections-service:8082"`
	Contact      string `env:"CONTACT_SERVICE_URL,      default=http://sections-service:8082"`
	Portfolio    string `env:"PORTFOLIO_SERVICE_URL,    default=http://portfolio-service:8090"`
	AI           string `env:"AI_SERVICE_URL,           default=http://ai-service:8091"`
}

// Section returns the base URL configured for a portfolio section.
func (u ServiceURLs) Section(name string) string {
	switch name {
	case "intro":
		return u.Intro
	case "about":
		return u.About
	case "experience":
		return u.Experience
	case "projects":
		return u.Projects
	case "skills":
		return u.Skills
	case "certificates":
		return u.Certificates
	case "education":
		return u.Education
	case "contact":
		return u.Contact
	}
	return ""
}

// Gateway is the API gateway configuration.
type Gateway struct {
	Port           string        `env:"PORT,            default=8080"`
	Env            string        `env:"ENV,             default=development"`
	LogLevel       string        `env:"LOG_LEVEL,       default=info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT, default=10s"`
	CORSOrigins    []string      `env:"CORS_ORIGINS,    default=*"`

	// TrustedProxies lists the CIDRs of load balancers whose X-Forwarded-For
	// is believed. Empty means the peer address is the caller.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	JWT       JWTConfig
	RateLimit RateLimitConfig
	Services  ServiceURLs
	Redis     RedisConfig
}

// Auth is the auth service configuration.
type Auth struct {
	Port       string `env:"PORT,        default=8081"`
	Env        string `env:"ENV,         default=development"`
	LogLevel   string `env:"LOG_LEVEL,   default=info"`
	AdminEmail string `env:"ADMIN_EMAIL"`
	BcryptCost int    `env:"BCRYPT_COST, default=12"`

	JWT   JWTConfig
	Mongo MongoConfig
}

// Sections is the section resource service configuration.
type Sections struct {
	Port     string `env:"PORT,      default=8082"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Mongo MongoConfig
}

// Portfolio is the publish/slug service configuration.
type Portfolio struct {
	Port        string `env:"PORT,         default=8090"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	FrontendURL string `env:"FRONTEND_URL"`

	Mongo MongoConfig
}

// IsDevelopment reports whether env selects console-friendly logging.
func IsDevelopment(env string) bool {
	return strings.EqualFold(env, "development")
}

// LoadGateway reads gateway configuration from the environment.
func LoadGateway() *Gateway {
	var cfg Gateway
	mustProcess(&cfg)
	if cfg.RateLimit.Points <= 0 || cfg.RateLimit.Duration <= 0 {
		panic("config: RATE_LIMIT_POINTS and RATE_LIMIT_DURATION must be positive")
	}
	return &cfg
}

// LoadAuth reads auth service configuration from the environment.
func LoadAuth() *Auth {
	var cfg Auth
	mustProcess(&cfg)
	return &cfg
}

// LoadSections reads sections service configuration from the environment.
func LoadSections() *Sections {
	var cfg Sections
	mustProcess(&cfg)
	return &cfg
}

// LoadPortfolio reads portfolio service configuration from the environment.
func LoadPortfolio() *Portfolio {
	var cfg Portfolio
	mustProcess(&cfg)
	return &cfg
}

func mustProcess(cfg any) {
	if err := process(cfg, envconfig.OsLookuper()); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
}

func process(cfg any, l envconfig.Lookuper) error {
	return envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   cfg,
		Lookuper: l,
	})
}
