package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "TIMETABLE"

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	keyHTTPPort          = "http_port"
	keyDatabaseDriver    = "database_driver"
	keySQLiteDSN         = "sqlite_dsn"
	keyPostgresDSN       = "postgres_dsn"
	keyLogLevel          = "log_level"
	keyLogFormat         = "log_format"
	keyRecurrenceHorizon = "recurrence_horizon"
	keyMaxOccurrences    = "recurrence_max_occurrences"
	keyRecurrencePolicy  = "recurrence_policy"
	keyStatsCacheTTL     = "stats_cache_ttl"
)

// Config captures environment driven configuration values for the timetable service.
type Config struct {
	HTTPPort                 int
	DatabaseDriver           string
	SQLiteDSN                string
	PostgresDSN              string
	LogLevel                 string
	LogFormat                string
	RecurrenceHorizon        time.Duration
	RecurrenceMaxOccurrences int
	RecurrencePolicy         string
	StatsCacheTTL            time.Duration
}

// Load parses configuration from the process environment, reading a .env file in
// the working directory first when one exists.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile behaves like Load but reads dotenv values from path. A missing file is
// not an error. Variables already set in the environment win over the file.
//
// The loader applies defaults for optional fields and reports every missing and
// invalid key in a single error.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyHTTPPort, "8080")
	v.SetDefault(keyDatabaseDriver, DriverSQLite)
	v.SetDefault(keySQLiteDSN, "data/timetable.db")
	v.SetDefault(keyPostgresDSN, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyRecurrenceHorizon, "26w")
	v.SetDefault(keyMaxOccurrences, "260")
	v.SetDefault(keyRecurrencePolicy, "reject")
	v.SetDefault(keyStatsCacheTTL, "30s")

	cfg := Config{
		SQLiteDSN:   strings.TrimSpace(v.GetString(keySQLiteDSN)),
		PostgresDSN: strings.TrimSpace(v.GetString(keyPostgresDSN)),
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)
	envName := func(key string) string {
		return EnvPrefix + "_" + strings.ToUpper(key)
	}
	str := func(key string) string {
		return strings.ToLower(strings.TrimSpace(v.GetString(key)))
	}

	if port, err := strconv.Atoi(strings.TrimSpace(v.GetString(keyHTTPPort))); err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, envName(keyHTTPPort))
	} else {
		cfg.HTTPPort = port
	}

	switch driver := str(keyDatabaseDriver); driver {
	case DriverSQLite, DriverMemory:
		cfg.DatabaseDriver = driver
	case DriverPostgres:
		cfg.DatabaseDriver = driver
		if cfg.PostgresDSN == "" {
			missing = append(missing, envName(keyPostgresDSN))
		}
	default:
		invalid = append(invalid, envName(keyDatabaseDriver))
	}

	switch level := str(keyLogLevel); level {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = level
	default:
		invalid = append(invalid, envName(keyLogLevel))
	}

	switch format := str(keyLogFormat); format {
	case "json", "text":
		cfg.LogFormat = format
	default:
		invalid = append(invalid, envName(keyLogFormat))
	}

	if horizon, err := parseHorizon(v.GetString(keyRecurrenceHorizon)); err != nil {
		invalid = append(invalid, envName(keyRecurrenceHorizon))
	} else {
		cfg.RecurrenceHorizon = horizon
	}

	if limit, err := strconv.Atoi(strings.TrimSpace(v.GetString(keyMaxOccurrences))); err != nil || limit <= 0 {
		invalid = append(invalid, envName(keyMaxOccurrences))
	} else {
		cfg.RecurrenceMaxOccurrences = limit
	}

	switch policy := str(keyRecurrencePolicy); policy {
	case "reject", "skip":
		cfg.RecurrencePolicy = policy
	default:
		invalid = append(invalid, envName(keyRecurrencePolicy))
	}

	if ttl, err := time.ParseDuration(strings.TrimSpace(v.GetString(keyStatsCacheTTL))); err != nil || ttl < 0 {
		invalid = append(invalid, envName(keyStatsCacheTTL))
	} else {
		cfg.StatsCacheTTL = ttl
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("config: required environment variables are not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("config: environment variables have invalid values: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// parseHorizon accepts a whole number of weeks such as "26w" or any Go duration.
func parseHorizon(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if weeks, ok := strings.CutSuffix(value, "w"); ok {
		n, err := strconv.Atoi(weeks)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("config: invalid horizon %q", value)
		}
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: invalid horizon %q", value)
	}
	return d, nil
}
