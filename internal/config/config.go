package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration values.
type Config struct {
	Env              string
	HTTPHost         string
	HTTPPort         string
	BackendURL       string
	BackendTimeout   time.Duration
	DatabaseDSN      string
	AllowedOrigins   []string
	SaleQuantityUnit string
	MetricsEnabled   bool
}

const defaultOrigins = "http://localhost:5173,http://127.0.0.1:5173"

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	env := getenv("APP_ENV", "prod")

	port := getenv("HTTP_PORT", "8090")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8090", port)
		port = "8090"
	}

	backendURL := strings.TrimRight(getenv("BACKEND_URL", "http://127.0.0.1:8081"), "/")

	timeout, err := time.ParseDuration(getenv("BACKEND_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		log.Printf("invalid BACKEND_TIMEOUT value %q, defaulting to 30s", os.Getenv("BACKEND_TIMEOUT"))
		timeout = 30 * time.Second
	}

	// Wildcards are refused: only the embedded UI may call the terminal.
	var origins []string
	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS", defaultOrigins), ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			log.Printf("ALLOWED_ORIGINS may not contain \"*\", ignoring it")
			continue
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = strings.Split(defaultOrigins, ",")
	}

	unit := getenv("SALE_QUANTITY_UNIT", "sale_type")
	if unit != "sale_type" && unit != "base" {
		log.Printf("invalid SALE_QUANTITY_UNIT value %q, defaulting to sale_type", unit)
		unit = "sale_type"
	}

	metrics, err := strconv.ParseBool(getenv("METRICS_ENABLED", "true"))
	if err != nil {
		metrics = true
	}

	return Config{
		Env:              env,
		HTTPHost:         getenv("HTTP_HOST", "127.0.0.1"),
		HTTPPort:         port,
		BackendURL:       backendURL,
		BackendTimeout:   timeout,
		DatabaseDSN:      getenv("DATABASE_DSN", "pos_journal.db"),
		AllowedOrigins:   origins,
		SaleQuantityUnit: unit,
		MetricsEnabled:   metrics,
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
