// Package config: API key format validation and masked-display helpers.
// They do not resolve keys; the provider registry reads the active
// profile's key from the environment itself.
package config

import (
	"errors"
	"strings"
)

// ErrNoAPIKey is returned when no API key could be resolved.
var ErrNoAPIKey = errors.New("no API key configured")

// ValidateAPIKey performs basic format validation on an Anthropic-style
// key. It checks format but does not verify the key with the API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of key for display: the first 7
// characters and last 4, or a flat mask for keys too short to split.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
