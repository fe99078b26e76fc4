package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvLoader reads prefixed bootstrap values that are needed before the
// config file is located.
type EnvLoader struct {
	prefix string
}

func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix}
}

func (e *EnvLoader) GetString(key, defaultValue string) string {
	if value := os.Getenv(e.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e *EnvLoader) GetStringRequired(key string) (string, error) {
	envKey := e.buildKey(key)
	value := os.Getenv(envKey)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", envKey)
	}
	return value, nil
}

func (e *EnvLoader) GetInt(key string, defaultValue int) int {
	value := os.Getenv(e.buildKey(key))
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// GetBool accepts true/1/yes/on and false/0/no/off.
func (e *EnvLoader) GetBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(e.buildKey(key))) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func (e *EnvLoader) GetDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(e.buildKey(key)))
	if err != nil {
		return defaultValue
	}
	return value
}

// buildKey: prefix="BRACKET", key="CONFIG_PATH" -> "BRACKET_CONFIG_PATH"
func (e *EnvLoader) buildKey(key string) string {
	if e.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s_%s", e.prefix, key)
}
