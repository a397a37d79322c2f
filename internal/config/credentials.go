package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials identifies the logged-in shopper. The token is issued by the
// storefront's auth service; shopchat never performs the login flow itself.
type Credentials struct {
	UserID   string `json:"user_id"`
	APIToken string `json:"api_token,omitempty"`
}

// LoadCredentials loads credentials from disk, with environment overrides.
// SHOPCHAT_USER_ID / SHOPCHAT_API_TOKEN win over the credentials file so CI
// and scripts can run without touching ~/.shopchat.
func LoadCredentials() (*Credentials, error) {
	creds := &Credentials{}

	credsPath, err := GetCredentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(credsPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
	case os.IsNotExist(err):
		// Fall through to the environment
	default:
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if v := os.Getenv("SHOPCHAT_USER_ID"); v != "" {
		creds.UserID = v
	}
	if v := os.Getenv("SHOPCHAT_API_TOKEN"); v != "" {
		creds.APIToken = v
	}

	if creds.UserID == "" {
		return nil, fmt.Errorf("no credentials found. Run:\n  shopchat login --user <user-id> --token <api-token>")
	}

	return creds, nil
}

// SaveCredentials saves credentials to the credentials file
func SaveCredentials(creds *Credentials) error {
	if err := ValidateCredentials(creds); err != nil {
		return err
	}

	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	credsPath := filepath.Join(configDir, "credentials.json")

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// 0o600: contains the API token
	if err := os.WriteFile(credsPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// ValidateCredentials checks that the credentials carry a user id
func ValidateCredentials(creds *Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials are nil")
	}
	if creds.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	return nil
}
