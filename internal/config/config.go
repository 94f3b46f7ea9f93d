// Package config loads process settings from the environment and source
// definitions from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultPort        = "5050"
	DefaultCacheMaxAge = 7 * 24 * time.Hour
)

var (
	ErrInvalidPort        = errors.New("PORT must be a number")
	ErrInvalidRate        = errors.New("CENSUS_RATE must not be negative")
	ErrInvalidAdminHash   = errors.New("ADMIN_TOKEN_HASH is not a bcrypt hash")
	ErrInvalidCacheAge    = errors.New("CACHE_MAX_AGE must be a positive duration")
	ErrMissingSpreadsheet = errors.New("SPREADSHEET_PATH does not exist")
)

// Config holds process configuration.
type Config struct {
	Port        string
	DatabaseURL string

	CensusKey     string
	CensusBaseURL string
	CensusRate    float64
	CacheMaxAge   time.Duration

	// SourcesPath is the YAML source definition file; empty uses the
	// built-in Bay Area definitions.
	SourcesPath string

	// SpreadsheetPath is the adoption CSV export.
	SpreadsheetPath string

	TractGeoJSON string
	ZipGeoJSON   string

	// AdminTokenHash is a bcrypt hash of the reload token. Empty disables
	// the reload endpoint.
	AdminTokenHash string

	AllowedOrigins []string

	LogLevel    string
	Development bool
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - PORT: listen port (default: 5050)
//   - DATABASE_URL: postgres DSN for the census response cache (optional)
//   - CENSUS_API_KEY, CENSUS_BASE_URL, CENSUS_RATE: census API client
//   - CACHE_MAX_AGE: freshness of cached census responses (default: 168h)
//   - SOURCES_CONFIG: YAML source definitions (optional)
//   - SPREADSHEET_PATH: adoption CSV export
//   - TRACT_GEOJSON, ZIP_GEOJSON: boundary files (optional)
//   - ADMIN_TOKEN_HASH: bcrypt hash guarding POST /pockets/reload
//   - ALLOWED_ORIGINS: comma-separated CORS allow-list
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - APP_ENV: "development" selects console logs
func LoadFromEnv() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = DefaultPort
	}

	rate := 0.0
	if v := strings.TrimSpace(os.Getenv("CENSUS_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rate = f
		} else {
			rate = -1
		}
	}

	maxAge := DefaultCacheMaxAge
	if v := strings.TrimSpace(os.Getenv("CACHE_MAX_AGE")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			maxAge = d
		} else {
			maxAge = 0
		}
	}

	return Config{
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CensusKey:       os.Getenv("CENSUS_API_KEY"),
		CensusBaseURL:   strings.TrimSpace(os.Getenv("CENSUS_BASE_URL")),
		CensusRate:      rate,
		CacheMaxAge:     maxAge,
		SourcesPath:     strings.TrimSpace(os.Getenv("SOURCES_CONFIG")),
		SpreadsheetPath: strings.TrimSpace(os.Getenv("SPREADSHEET_PATH")),
		TractGeoJSON:    strings.TrimSpace(os.Getenv("TRACT_GEOJSON")),
		ZipGeoJSON:      strings.TrimSpace(os.Getenv("ZIP_GEOJSON")),
		AdminTokenHash:  strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")),
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		LogLevel:        strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		Development:     strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "development"),
	}
}

// Validate checks the configuration. A missing spreadsheet is an error only
// when a path was given.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return ErrInvalidPort
	}
	if c.CensusRate < 0 {
		return ErrInvalidRate
	}
	if c.CacheMaxAge <= 0 {
		return ErrInvalidCacheAge
	}
	if c.AdminTokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.AdminTokenHash)); err != nil {
			return ErrInvalidAdminHash
		}
	}
	if c.SpreadsheetPath != "" {
		if _, err := os.Stat(c.SpreadsheetPath); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingSpreadsheet, c.SpreadsheetPath)
		}
	}
	return nil
}

// CacheEnabled reports whether a database is configured.
func (c Config) CacheEnabled() bool {
	return c.DatabaseURL != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
