package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	envConfig   = "FORMFLOW_CONFIG"
	envStore    = "FORMFLOW_STORE"
	envHeadless = "FORMFLOW_HEADLESS"
	envTab      = "FORMFLOW_TAB"
	envAddr     = "FORMFLOW_ADDR"
)

// loadEnv reads .env from the working directory. Variables already set in
// the environment win.
func loadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
