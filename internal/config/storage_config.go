package config

import (
	"os"
	"path/filepath"
)

const (
	tokenFileVar       = "BUDGET_TOKEN_FILE"
	tokenPassphraseVar = "BUDGET_TOKEN_PASSPHRASE"
)

type Storage struct{}

var _ StorageConfig = Storage{}

// GetTokenFile returns where the access and refresh tokens are persisted.
// An empty result means no durable medium is available.
func (Storage) GetTokenFile() string {
	if file := GetEnv(tokenFileVar, ""); file != "" {
		return file
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "budgetctl", "tokens.json")
}

// GetTokenPassphrase returns the passphrase used to encrypt the token file.
// Empty disables encryption.
func (Storage) GetTokenPassphrase() string {
	return GetEnv(tokenPassphraseVar, "")
}
