package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time resolves the campus timezone
	_ "time/tzdata"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Redis, cache, rate limit, queue and mail
// settings live in their own loaders next to this file.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	Timezone       string         // IANA name of the campus timezone
	Location       *time.Location // resolved Timezone
	HorizonDays    int            // how many days ahead a booking may be placed
	PosterMaxBytes int            // upper bound of a poster data URL
	BodyLimit      string         // echo BodyLimit value, e.g. "6M"
	FrontendURLs   []string       // CORS allow list
	CookieSecure   bool           // mark auth cookies Secure
	AnnounceSpec   string         // cron spec of the announcement broadcast
	AutoMigrate    bool           // run the embedded schema on boot
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		Timezone:       envStr("APP_TIMEZONE", "Asia/Kolkata"),
		HorizonDays:    envInt("BOOKING_HORIZON_DAYS", 30),
		PosterMaxBytes: envInt("POSTER_MAX_BYTES", 5*1024*1024),
		BodyLimit:      envStr("BODY_LIMIT", "6M"),
		FrontendURLs:   splitList(envStr("FRONTEND_URL", "http://localhost:5173")),
		CookieSecure:   envBool("COOKIE_SECURE", false),
		AnnounceSpec:   envStr("ANNOUNCE_INTERVAL", "@every 5s"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}
	cfg.Location = loc
	if cfg.Env == "prod" {
		cfg.CookieSecure = true
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
