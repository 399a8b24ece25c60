package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string // rest | mysql | sqlite
	BackendURL  string
	AnonKey     string
	ServiceKey  string
	MySQLDSN    string
	SQLitePath  string
	GatewayRPS  int
	ReadTimeout time.Duration

	RedisAddr string
	RedisDB   int
	RedisPass string

	MaintenanceToken string
	AdminJWTSecret   string
	BookingURL       string
	CORSOrigins      []string

	// lodgectl
	AdminAPIURL string
	AdminToken  string
}

// Load reads .env.local and .env when present, then the process environment.
// Variables already set in the environment win.
func Load() Config {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", f).Msg("could not read env file")
		}
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		StoreDriver: env("STORE_DRIVER", "rest"),
		BackendURL:  env("BACKEND_URL", ""),
		AnonKey:     env("BACKEND_ANON_KEY", ""),
		ServiceKey:  env("BACKEND_SERVICE_KEY", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/lodge?parseTime=true&charset=utf8mb4&loc=UTC"),
		SQLitePath:  env("SQLITE_PATH", "lodge.db"),
		GatewayRPS:  atoi("GATEWAY_RPS", 10),
		ReadTimeout: time.Duration(atoi("READ_TIMEOUT_MS", 3000)) * time.Millisecond,

		RedisAddr: env("REDIS_ADDR", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		RedisPass: env("REDIS_PASSWORD", ""),

		MaintenanceToken: os.Getenv("ADMIN_MAINTENANCE_TOKEN"),
		AdminJWTSecret:   os.Getenv("ADMIN_JWT_SECRET"),
		BookingURL:       env("BOOKING_URL", "https://book.nightsbridge.com/"),
		CORSOrigins:      list(env("CORS_ORIGINS", "")),

		AdminAPIURL: env("ADMIN_API_URL", "http://localhost:8080"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),
	}
	if c.StoreDriver == "rest" && c.ServiceKey == "" {
		log.Warn().Msg("BACKEND_SERVICE_KEY is empty; privileged operations will be refused")
	}
	if c.MaintenanceToken == "" {
		log.Warn().Msg("ADMIN_MAINTENANCE_TOKEN is empty; maintenance endpoints will be refused")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
