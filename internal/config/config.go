package config

import (
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	WSAddr   string
	DBDriver string
	DBDSN    string
	MaxConns int
	LogFile  string

	RedisAddr string

	JWTSecret string
	JWTTTL    time.Duration

	SweepInterval time.Duration
	AlertWindow   time.Duration

	NotificationServiceURL string
	PushTimeout            time.Duration

	RoomOwnershipCheck bool
	FrontendURL        string

	APIRateLimit  int
	AuthRateLimit int
}

const devSecret = "stockroom-dev-secret-change-me"

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	sweep := durationEnv("SWEEP_INTERVAL", 6*time.Hour)
	cfg := Config{
		Port:     getEnv("PORT", "3000"),
		WSAddr:   getEnv("WS_ADDR", ":3003"),
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "stockroom.db"),
		MaxConns: intEnv("DB_MAX_OPEN_CONNS", 10),
		LogFile:  os.Getenv("LOG_FILE"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		JWTSecret: getEnv("JWT_SECRET", devSecret),
		JWTTTL:    durationEnv("JWT_TTL", 7*24*time.Hour),

		SweepInterval: sweep,
		AlertWindow:   durationEnv("ALERT_WINDOW", sweep),

		NotificationServiceURL: os.Getenv("NOTIFICATION_SERVICE_URL"),
		PushTimeout:            durationEnv("PUSH_TIMEOUT", 5*time.Second),

		RoomOwnershipCheck: boolEnv("ROOM_OWNERSHIP_CHECK", false),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),

		APIRateLimit:  intEnv("API_RATE_LIMIT", 1000),
		AuthRateLimit: intEnv("AUTH_RATE_LIMIT", 100),
	}
	if cfg.JWTSecret == devSecret {
		log.Printf("[config] JWT_SECRET not set, using development secret")
	}
	log.Printf("[config] PORT=%s WS_ADDR=%s DB_DRIVER=%s DB_DSN=%s REDIS_ADDR=%s SWEEP_INTERVAL=%s ALERT_WINDOW=%s NOTIFICATION_SERVICE_URL=%s",
		cfg.Port, cfg.WSAddr, cfg.DBDriver, MaskDSN(cfg.DBDSN), cfg.RedisAddr, cfg.SweepInterval, cfg.AlertWindow, cfg.NotificationServiceURL)
	return cfg
}

var (
	reURLCreds   = regexp.MustCompile(`://[^:/@]+:[^@]+@`)
	reMySQLCreds = regexp.MustCompile(`^[^:/@]+:[^@]+@`)
)

// MaskDSN hides credentials in a connection string while keeping its shape.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		return reURLCreds.ReplaceAllString(dsn, "://*****:*****@")
	}
	return reMySQLCreds.ReplaceAllString(dsn, "*****:*****@")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}
