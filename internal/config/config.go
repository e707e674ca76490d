package config

import (
	"errors"
	"os"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode selects how strategy executors are wired: "live" expects real
	// executor plugins, "dry-run" wires the built-in stub.
	Mode string

	// ManagementTreasury is the account receiving management fee shares.
	ManagementTreasury string
	// WithdrawalTreasury is the account receiving withdrawal fee shares.
	WithdrawalTreasury string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("VAULTD_MODE")
	if err != nil {
		return err
	}

	ManagementTreasury, err = getEnv("TREASURY_MANAGEMENT")
	if err != nil {
		return err
	}

	WithdrawalTreasury, err = getEnv("TREASURY_WITHDRAWAL")
	if err != nil {
		return err
	}

	log.Debug().
		Str("Mode", Mode).
		Str("ManagementTreasury", ManagementTreasury).
		Str("WithdrawalTreasury", WithdrawalTreasury).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}
