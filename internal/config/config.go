package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIBase     string
	DeviceDB    string
	LogFile     string
	HTTPTimeout time.Duration
}

func Load() Config {
	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	dsn := os.Getenv("DEVICE_DB")
	if dsn == "" {
		dsn = "bakehouse.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./bakehouse.log" // default log sink in project root
	}
	timeout := 15 * time.Second
	if s := os.Getenv("HTTP_TIMEOUT_SEC"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	cfg := Config{APIBase: base, DeviceDB: dsn, LogFile: logFile, HTTPTimeout: timeout}
	log.Printf("[config] API_BASE=%s DEVICE_DB=%s LOG_FILE=%s HTTP_TIMEOUT=%s", cfg.APIBase, cfg.DeviceDB, cfg.LogFile, cfg.HTTPTimeout)
	return cfg
}
