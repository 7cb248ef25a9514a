package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types

    "github.com/joho/godotenv"     // loads .env files into the process environment
    "github.com/rs/zerolog/log"    // fatal reporting for missing configuration
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and identifiers are strings, durations
// and costs are ints expressed in the unit named by the field.
type Config struct {
    Env            string // application environment (dev, test, prod)
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign access tokens
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    LogLevel       string // zerolog level name (debug, info, warn, error)
    ClientURL      string // frontend base URL used to build password reset links
    AuditLogPath   string // file the booking audit consumer appends to
    RunMigrations  bool   // apply embedded migrations at start-up
}

// Load reads configuration values from the environment and returns a
// Config.  A .env file in the working directory, when present, is loaded
// first and never overrides variables that are already set.  Required
// variables are enforced by must(); a missing value terminates the process.
func Load() Config {
    loadDotEnv()
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        LogLevel:       envStr("LOG_LEVEL", "info"),
        ClientURL:      envStr("CLIENT_URL", "http://localhost:5173"),
        AuditLogPath:   envStr("AUDIT_LOG_PATH", "logs/booking.log"),
        RunMigrations:  envBool("RUN_MIGRATIONS", true),
    }
}

// IsProduction reports whether cookies and logs should use production settings.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }

// loadDotEnv loads .env.local and .env when they exist.  Missing files are
// not an error; the environment alone is a valid configuration source.
func loadDotEnv() {
    for _, name := range []string{".env.local", ".env"} {
        if _, err := os.Stat(name); err != nil {
            continue
        }
        if err := godotenv.Load(name); err != nil {
            log.Warn().Err(err).Str("file", name).Msg("failed to load env file")
        }
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatal().Str("key", key).Msg("missing required env var")
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatal().Str("key", key).Str("value", s).Msg("invalid int env var")
    }
    return n
}
