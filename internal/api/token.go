package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = "api_token"

// LoadOrCreateToken reads the API token from configDir/api_token, or
// generates and persists a new 256-bit hex-encoded token if the file is
// missing or empty. Used when no token is configured explicitly.
func LoadOrCreateToken(configDir string) (string, error) {
	path := filepath.Join(configDir, tokenFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	if err := writeToken(configDir, path, token); err != nil {
		return "", err
	}

	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func writeToken(configDir, path, token string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
