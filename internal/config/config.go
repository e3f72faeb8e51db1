package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	Store  string // "sqlite" | "memory"
	DBPath string // e.g. "./data/nfcaccess.db"

	// Pairing
	PairTTL       time.Duration
	PairExclusive bool

	// Pairing session retention
	SessionRetentionHours int // 0 = keep forever
	PruneIntervalMinutes  int

	AllowedOrigins []string
	LogLevel       string
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("NFCACCESS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	st := strings.ToLower(getenvDefault("NFCACCESS_STORE", "sqlite"))
	if st != "sqlite" && st != "memory" {
		st = "sqlite"
	}

	ttl := getenvInt("NFCACCESS_PAIR_TTL_SECONDS", 60)
	if ttl == 0 {
		ttl = 60
	}

	origins := splitCSV(os.Getenv("NFCACCESS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return Config{
		HTTPAddr: getenvDefault("NFCACCESS_HTTP_ADDR", ":5000"),
		Env:      env,
		Store:    st,
		DBPath:   getenvDefault("NFCACCESS_DB_PATH", "./data/nfcaccess.db"),

		PairTTL:       time.Duration(ttl) * time.Second,
		PairExclusive: getenvBool("NFCACCESS_PAIR_EXCLUSIVE"),

		SessionRetentionHours: getenvInt("NFCACCESS_SESSION_RETENTION_HOURS", 0),
		PruneIntervalMinutes:  getenvInt("NFCACCESS_PRUNE_INTERVAL_MINUTES", 60),

		AllowedOrigins: origins,
		LogLevel:       strings.ToLower(getenvDefault("NFCACCESS_LOG_LEVEL", "info")),
	}
}

func (c Config) IsDev() bool { return c.Env == "dev" }

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
