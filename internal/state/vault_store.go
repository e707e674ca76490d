// ./internal/state/vault_store.go
package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vaultd/internal/types"
)

// SaveVaultConfig inserts or updates a vault configuration record.
func SaveVaultConfig(cfg types.VaultConfig) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
        INSERT INTO vault_configs (
            vault_id, strategy, worker, oracle,
            deposit_paused, withdraw_paused,
            min_deposit_value, min_deposit_scale, capacity_value, capacity_scale,
            withdrawal_fee_bps, management_fee_rate, last_fee_collected,
            tolerance_bps, max_leverage, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, CURRENT_TIMESTAMP
        )
        ON CONFLICT (vault_id) DO UPDATE SET
            strategy = EXCLUDED.strategy,
            worker = EXCLUDED.worker,
            oracle = EXCLUDED.oracle,
            deposit_paused = EXCLUDED.deposit_paused,
            withdraw_paused = EXCLUDED.withdraw_paused,
            min_deposit_value = EXCLUDED.min_deposit_value,
            min_deposit_scale = EXCLUDED.min_deposit_scale,
            capacity_value = EXCLUDED.capacity_value,
            capacity_scale = EXCLUDED.capacity_scale,
            withdrawal_fee_bps = EXCLUDED.withdrawal_fee_bps,
            management_fee_rate = EXCLUDED.management_fee_rate,
            last_fee_collected = EXCLUDED.last_fee_collected,
            tolerance_bps = EXCLUDED.tolerance_bps,
            max_leverage = EXCLUDED.max_leverage,
            updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt,
		uint64(cfg.VaultID), cfg.Strategy, cfg.Worker, cfg.Oracle,
		cfg.DepositPaused, cfg.WithdrawPaused,
		int64(cfg.MinDeposit.Value), int16(cfg.MinDeposit.Scale),
		int64(cfg.Capacity.Value), int16(cfg.Capacity.Scale),
		cfg.WithdrawalFeeBps, cfg.ManagementFeeRate.String(), cfg.LastFeeCollected,
		cfg.ToleranceBps, cfg.MaxLeverage,
	)
	if err != nil {
		return fmt.Errorf("failed to save vault config %d: %w", cfg.VaultID, err)
	}

	log.Info().Uint64("vault_id", uint64(cfg.VaultID)).Msg("Saved vault config")
	return nil
}

// LoadAllVaultConfigs loads every persisted vault configuration.
func LoadAllVaultConfigs() ([]types.VaultConfig, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT vault_id, strategy, worker, oracle,
               deposit_paused, withdraw_paused,
               min_deposit_value, min_deposit_scale, capacity_value, capacity_scale,
               withdrawal_fee_bps, management_fee_rate, last_fee_collected,
               tolerance_bps, max_leverage
        FROM vault_configs
        ORDER BY vault_id;`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault configs: %w", err)
	}
	defer rows.Close()

	var configs []types.VaultConfig
	for rows.Next() {
		var (
			cfg                            types.VaultConfig
			vaultID                        uint64
			minDepValue, capValue          int64
			minDepScale, capScale          int16
			feeRateStr                     string
		)
		err := rows.Scan(
			&vaultID, &cfg.Strategy, &cfg.Worker, &cfg.Oracle,
			&cfg.DepositPaused, &cfg.WithdrawPaused,
			&minDepValue, &minDepScale, &capValue, &capScale,
			&cfg.WithdrawalFeeBps, &feeRateStr, &cfg.LastFeeCollected,
			&cfg.ToleranceBps, &cfg.MaxLeverage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vault config: %w", err)
		}

		cfg.VaultID = types.VaultID(vaultID)
		cfg.MinDeposit = types.NewCompressed(uint32(minDepValue), uint8(minDepScale))
		cfg.Capacity = types.NewCompressed(uint32(capValue), uint8(capScale))

		rate, ok := sdkmath.NewIntFromString(feeRateStr)
		if !ok {
			return nil, fmt.Errorf("vault %d has invalid management fee rate %q", vaultID, feeRateStr)
		}
		cfg.ManagementFeeRate = rate

		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vault configs: %w", err)
	}

	log.Info().Int("count", len(configs)).Msg("Loaded vault configs")
	return configs, nil
}

// UpdateFeeTimestamp persists a vault's advanced fee-collection timestamp.
func UpdateFeeTimestamp(vault types.VaultID, unixSec int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	result, err := DB.Exec(
		`UPDATE vault_configs SET last_fee_collected = $2, updated_at = CURRENT_TIMESTAMP WHERE vault_id = $1;`,
		uint64(vault), unixSec,
	)
	if err != nil {
		return fmt.Errorf("failed to update fee timestamp for vault %d: %w", vault, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("vault %d not found when updating fee timestamp", vault)
	}
	return nil
}

// ManagerFlag is a persisted per-(vault,manager) authorization row.
type ManagerFlag struct {
	VaultID types.VaultID
	Account string
	Allowed bool
}

// SetManagerFlag upserts a manager authorization for a vault.
func SetManagerFlag(vault types.VaultID, account string, allowed bool) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`
        INSERT INTO vault_managers (vault_id, account, allowed) VALUES ($1, $2, $3)
        ON CONFLICT (vault_id, account) DO UPDATE SET allowed = EXCLUDED.allowed;`,
		uint64(vault), account, allowed,
	)
	if err != nil {
		return fmt.Errorf("failed to set manager flag for vault %d: %w", vault, err)
	}
	return nil
}

// LoadManagerFlags loads every persisted manager authorization.
func LoadManagerFlags() ([]ManagerFlag, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT vault_id, account, allowed FROM vault_managers;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manager flags: %w", err)
	}
	defer rows.Close()

	var flags []ManagerFlag
	for rows.Next() {
		var f ManagerFlag
		var vaultID uint64
		if err := rows.Scan(&vaultID, &f.Account, &f.Allowed); err != nil {
			return nil, fmt.Errorf("failed to scan manager flag: %w", err)
		}
		f.VaultID = types.VaultID(vaultID)
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// AssetFlag is a persisted per-(vault,asset) allow-list row.
type AssetFlag struct {
	VaultID types.VaultID
	Denom   string
	Allowed bool
}

// SetAssetFlag upserts an asset allow-list entry for a vault.
func SetAssetFlag(vault types.VaultID, denom string, allowed bool) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`
        INSERT INTO vault_assets (vault_id, denom, allowed) VALUES ($1, $2, $3)
        ON CONFLICT (vault_id, denom) DO UPDATE SET allowed = EXCLUDED.allowed;`,
		uint64(vault), denom, allowed,
	)
	if err != nil {
		return fmt.Errorf("failed to set asset flag for vault %d: %w", vault, err)
	}
	return nil
}

// LoadAssetFlags loads every persisted asset allow-list entry.
func LoadAssetFlags() ([]AssetFlag, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT vault_id, denom, allowed FROM vault_assets;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset flags: %w", err)
	}
	defer rows.Close()

	var flags []AssetFlag
	for rows.Next() {
		var f AssetFlag
		var vaultID uint64
		if err := rows.Scan(&vaultID, &f.Denom, &f.Allowed); err != nil {
			return nil, fmt.Errorf("failed to scan asset flag: %w", err)
		}
		f.VaultID = types.VaultID(vaultID)
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// SetFeeExemption upserts an account's withdrawal fee exemption.
func SetFeeExemption(account string, exempt bool) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`
        INSERT INTO fee_exemptions (account, exempt) VALUES ($1, $2)
        ON CONFLICT (account) DO UPDATE SET exempt = EXCLUDED.exempt;`,
		account, exempt,
	)
	if err != nil {
		return fmt.Errorf("failed to set fee exemption for %s: %w", account, err)
	}
	return nil
}

// LoadFeeExemptions loads every persisted fee-exempt account.
func LoadFeeExemptions() (map[string]bool, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT account, exempt FROM fee_exemptions;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee exemptions: %w", err)
	}
	defer rows.Close()

	exemptions := make(map[string]bool)
	for rows.Next() {
		var account string
		var exempt bool
		if err := rows.Scan(&account, &exempt); err != nil {
			return nil, fmt.Errorf("failed to scan fee exemption: %w", err)
		}
		exemptions[account] = exempt
	}
	return exemptions, rows.Err()
}
