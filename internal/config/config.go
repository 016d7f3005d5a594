// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const (
	DefaultLLMBaseURL     = "https://api.groq.com/openai/v1"
	DefaultLLMModel       = "llama-3.3-70b-versatile"
	DefaultLLMTemperature = 0.1
	DefaultLLMMaxTokens   = 1024
	DefaultLLMMaxRetries  = 1
)

// ErrMissingAPIKey indicates neither LLM_API_KEY nor GROQ_API_KEY is set.
var ErrMissingAPIKey = errors.New("LLM_API_KEY or GROQ_API_KEY must be set")

type Config struct {
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int64
	LLMMaxRetries  int

	OAuthClientID     string
	OAuthClientSecret string

	RulesFile string
	LogLevel  log.Level
}

// GmailEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GmailEnabled() bool {
	return c.OAuthClientID != "" && c.OAuthClientSecret != ""
}

// Load reads envFile when given and builds a Config from the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	conf := &Config{
		LLMAPIKey:         getEnv("LLM_API_KEY", getEnv("GROQ_API_KEY", "")),
		LLMBaseURL:        getEnv("LLM_BASE_URL", DefaultLLMBaseURL),
		LLMModel:          getEnv("LLM_MODEL", DefaultLLMModel),
		OAuthClientID:     getEnv("OAUTH_GOOGLE_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_GOOGLE_CLIENT_SECRET", ""),
		RulesFile:         getEnv("PREPROCESS_RULES_FILE", ""),
	}

	if conf.LLMAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var err error
	if conf.LLMTemperature, err = getFloat("LLM_TEMPERATURE", DefaultLLMTemperature); err != nil {
		return nil, err
	}
	if conf.LLMMaxTokens, err = getInt("LLM_MAX_TOKENS", DefaultLLMMaxTokens); err != nil {
		return nil, err
	}
	maxRetries, err := getInt("LLM_MAX_RETRIES", DefaultLLMMaxRetries)
	if err != nil {
		return nil, err
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("LLM_MAX_RETRIES must not be negative, got %d", maxRetries)
	}
	conf.LLMMaxRetries = int(maxRetries)

	if conf.LogLevel, err = log.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("log.ParseLevel failed: %w", err)
	}

	return conf, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("strconv.ParseFloat(%s) failed: %w", key, err)
	}
	return v, nil
}

func getInt(key string, defaultValue int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("strconv.ParseInt(%s) failed: %w", key, err)
	}
	return v, nil
}
