package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL     string
	RawDataDir      string
	OutputDir       string
	CrosswalkPath   string
	CejstPath       string
	PolicyPath      string
	NumTractWorkers int
	Port            string
	LogLevel        string
	HudAPIKey       string
}

// New reads the process environment. DATABASE_URL may be empty; the
// warehouse sink is disabled when it is, and commands that cannot run
// without it enforce its presence themselves.
func New() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RawDataDir:      getEnv("RAW_DATA_DIR", "./data/raw"),
		OutputDir:       getEnv("OUTPUT_DIR", "./out"),
		CrosswalkPath:   getEnv("CROSSWALK_PATH", "./data/reference/hud_zip_tract_crosswalk.csv"),
		CejstPath:       getEnv("CEJST_PATH", "./data/reference/cejst_communities.csv"),
		PolicyPath:      os.Getenv("PIPELINE_CONFIG_PATH"),
		NumTractWorkers: 4,
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		HudAPIKey:       os.Getenv("HUD_API_KEY"),
	}

	var err error
	cfg.NumTractWorkers, err = getEnvAsInt("NUM_TRACT_WORKERS", cfg.NumTractWorkers)
	if err != nil {
		return nil, err
	}

	if cfg.NumTractWorkers < 1 {
		return nil, fmt.Errorf("NUM_TRACT_WORKERS must be at least 1, got %d", cfg.NumTractWorkers)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
