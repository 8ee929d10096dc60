package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	TemplateDir  string
	BaseURL      string
	Username     string
	Password     string
	CABundle     string
	PollInterval time.Duration
	PollTimeout  time.Duration
	ResultsDir   string
	ScratchDir   string

	// Optional run-history and artifact-upload backends. Empty values
	// disable the corresponding integration.
	DatabaseURL   string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	ReportsBucket string
}

func getBool(key, def string) bool {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func getSeconds(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("%s must be an integer number of seconds, got %q", key, v)
	}
	return time.Duration(n) * time.Second
}

func Load() Config {
	cfg := Config{
		TemplateDir:   os.Getenv("IAC_TEMPLATE_DIR"),
		BaseURL:       os.Getenv("QUALYS_BASE_URL"),
		Username:      os.Getenv("QUALYS_USERNAME"),
		Password:      os.Getenv("QUALYS_PASSWORD"),
		CABundle:      os.Getenv("QUALYS_CA_BUNDLE"),
		PollInterval:  getSeconds("POLL_INTERVAL_SECONDS", 10),
		PollTimeout:   getSeconds("POLL_TIMEOUT_SECONDS", 600),
		ResultsDir:    os.Getenv("RESULTS_DIR"),
		ScratchDir:    os.Getenv("SCRATCH_DIR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:      getBool("S3_USE_SSL", "false"),
		ReportsBucket: os.Getenv("REPORTS_BUCKET"),
	}
	// quick sanity
	if cfg.TemplateDir == "" {
		log.Fatal("IAC_TEMPLATE_DIR is required")
	}
	if cfg.BaseURL == "" {
		log.Fatal("QUALYS_BASE_URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		log.Fatal("QUALYS_USERNAME and QUALYS_PASSWORD are required")
	}
	if cfg.PollInterval <= 0 {
		// zero or negative would busy-loop against the API
		log.Fatal("POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.PollTimeout <= 0 {
		log.Fatal("POLL_TIMEOUT_SECONDS must be positive")
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "."
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	return cfg
}
