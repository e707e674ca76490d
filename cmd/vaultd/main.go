package main

import (
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vaultd/internal/config"
	"github.com/meridianfi/vaultd/internal/coordinator"
	"github.com/meridianfi/vaultd/internal/executor"
	"github.com/meridianfi/vaultd/internal/ledger"
	"github.com/meridianfi/vaultd/internal/logger"
	"github.com/meridianfi/vaultd/internal/oracle"
	"github.com/meridianfi/vaultd/internal/registry"
	"github.com/meridianfi/vaultd/internal/state"
	"github.com/meridianfi/vaultd/internal/web"
)

// main is the entry point for the vaultd service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Vault coordinator starting...")

	// Initialize database connection for configs and audit records
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Registry Hydration ---
	reg := registry.New()

	configs, err := state.LoadAllVaultConfigs()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load vault configs")
	}
	for _, cfg := range configs {
		if err := reg.OpenVault(cfg); err != nil {
			log.Fatal().Err(err).Uint64("vaultId", uint64(cfg.VaultID)).Msg("Failed to register persisted vault")
		}
	}

	managerFlags, err := state.LoadManagerFlags()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load manager flags")
	}
	for _, f := range managerFlags {
		if err := reg.SetManager(f.VaultID, f.Account, f.Allowed); err != nil {
			log.Fatal().Err(err).Uint64("vaultId", uint64(f.VaultID)).Msg("Failed to restore manager flag")
		}
	}

	assetFlags, err := state.LoadAssetFlags()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load asset flags")
	}
	for _, f := range assetFlags {
		if err := reg.AllowAsset(f.VaultID, f.Denom, f.Allowed); err != nil {
			log.Fatal().Err(err).Uint64("vaultId", uint64(f.VaultID)).Msg("Failed to restore asset flag")
		}
	}

	exemptions, err := state.LoadFeeExemptions()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fee exemptions")
	}
	for account, exempt := range exemptions {
		reg.SetFeeExempt(account, exempt)
	}

	log.Info().
		Int("vaults", len(configs)).
		Int("managerFlags", len(managerFlags)).
		Int("assetFlags", len(assetFlags)).
		Int("feeExemptions", len(exemptions)).
		Msg("Registry hydrated from database")

	// --- 3. Executor and Oracle Wiring (with Safety Switch) ---
	executors := executor.NewMapResolver()
	oracles := oracle.NewMapResolver()

	if config.Mode == "dry-run" {
		log.Warn().Msg("Running in DRY-RUN mode. Stub executors and static oracles are wired; no external strategy is touched.")
		staticOracle := oracle.NewStaticOracle()
		for _, cfg := range reg.All() {
			executors.Register(cfg.Strategy, executor.NewStub(cfg.Strategy))
			oracles.Register(cfg.Oracle, staticOracle)
			staticOracle.Set(cfg.VaultID, sdkmath.ZeroInt(), sdkmath.ZeroInt())
		}
	} else {
		log.Fatal().Msg("VAULTD_MODE is not set to 'dry-run'. Live strategy executor plugins are not configured in this build. Halting to prevent accidental execution.")
	}

	// --- 4. Coordinator Creation with Dependency Injection ---
	shares := ledger.NewMemoryLedger()
	coord, err := coordinator.New(coordinator.Config{
		Registry:           reg,
		Ledger:             shares,
		Bank:               ledger.NewMemoryBank(),
		Oracles:            oracles,
		Executors:          executors,
		Store:              state.NewAuditStore(),
		ManagementTreasury: config.ManagementTreasury,
		WithdrawalTreasury: config.WithdrawalTreasury,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create coordinator")
	}

	// --- 5. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, coord, reg, shares)
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting vaultd API server")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
