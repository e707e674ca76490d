package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/meridianfi/vaultd/internal/logger"
	"github.com/meridianfi/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrVaultNotFound = errors.New("vault not found")
	ErrVaultExists   = errors.New("vault already exists")
	ErrInvalidConfig = errors.New("vault configuration is invalid")
)

var registryLogger = logger.GetForComponent("vault_registry")

// Registry maps vault identifiers to their configuration, plus the flag
// tables the coordinator consults: per-(vault,manager) authorization,
// per-(vault,asset) allow-list, per-account fee exemption. Read access is
// unrestricted; writes happen through owner-gated service operations.
type Registry struct {
	mu        sync.RWMutex
	vaults    map[types.VaultID]types.VaultConfig
	managers  map[managerKey]bool
	assets    map[assetKey]bool
	feeExempt map[string]bool
}

type managerKey struct {
	vault   types.VaultID
	account string
}

type assetKey struct {
	vault types.VaultID
	denom string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		vaults:    make(map[types.VaultID]types.VaultConfig),
		managers:  make(map[managerKey]bool),
		assets:    make(map[assetKey]bool),
		feeExempt: make(map[string]bool),
	}
}

// OpenVault registers a new vault configuration. The strategy, worker and
// oracle references must all be set; a config with an empty strategy
// reference would read back as non-existent.
func (r *Registry) OpenVault(cfg types.VaultConfig) error {
	if cfg.Strategy == "" || cfg.Worker == "" || cfg.Oracle == "" {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("vault %d has empty strategy, worker or oracle reference", cfg.VaultID))
	}
	if cfg.MaxLeverage == 0 {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("vault %d has zero max leverage", cfg.VaultID))
	}
	if cfg.WithdrawalFeeBps > types.MaxBPS {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("vault %d withdrawal fee %d exceeds %d bps", cfg.VaultID, cfg.WithdrawalFeeBps, types.MaxBPS))
	}
	if cfg.ManagementFeeRate.IsNil() || cfg.ManagementFeeRate.IsNegative() {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("vault %d has invalid management fee rate", cfg.VaultID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.vaults[cfg.VaultID]; ok && existing.Exists() {
		return errors.Join(ErrVaultExists, fmt.Errorf("vault %d", cfg.VaultID))
	}
	r.vaults[cfg.VaultID] = cfg

	registryLogger.Info().
		Uint64("vaultId", uint64(cfg.VaultID)).
		Str("strategy", cfg.Strategy).
		Str("oracle", cfg.Oracle).
		Msg("Vault registered")
	return nil
}

// Get returns the configuration of a vault, or VaultNotFound.
func (r *Registry) Get(vault types.VaultID) (types.VaultConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.vaults[vault]
	if !ok || !cfg.Exists() {
		return types.VaultConfig{}, errors.Join(ErrVaultNotFound, fmt.Errorf("vault %d", vault))
	}
	return cfg, nil
}

// All returns a snapshot of every registered vault config.
func (r *Registry) All() []types.VaultConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.VaultConfig, 0, len(r.vaults))
	for _, cfg := range r.vaults {
		if cfg.Exists() {
			out = append(out, cfg)
		}
	}
	return out
}

// Update applies a mutation to an existing vault config. Owner-gated setters
// and the coordinator's fee timestamp advance both route through here.
func (r *Registry) Update(vault types.VaultID, mutate func(*types.VaultConfig)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.vaults[vault]
	if !ok || !cfg.Exists() {
		return errors.Join(ErrVaultNotFound, fmt.Errorf("vault %d", vault))
	}
	mutate(&cfg)
	r.vaults[vault] = cfg
	return nil
}

// AdvanceFeeTimestamp moves a vault's last fee collection time forward.
func (r *Registry) AdvanceFeeTimestamp(vault types.VaultID, unixSec int64) error {
	return r.Update(vault, func(cfg *types.VaultConfig) {
		cfg.LastFeeCollected = unixSec
	})
}

// SetManager grants or revokes a manager authorization for a vault.
func (r *Registry) SetManager(vault types.VaultID, account string, allowed bool) error {
	if _, err := r.Get(vault); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[managerKey{vault: vault, account: account}] = allowed
	return nil
}

// IsManager reports whether an account is an authorized manager of a vault.
func (r *Registry) IsManager(vault types.VaultID, account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.managers[managerKey{vault: vault, account: account}]
}

// AllowAsset adds or removes an asset from a vault's deposit allow-list.
func (r *Registry) AllowAsset(vault types.VaultID, denom string, allowed bool) error {
	if _, err := r.Get(vault); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[assetKey{vault: vault, denom: denom}] = allowed
	return nil
}

// IsAssetAllowed reports whether a vault accepts deposits of an asset.
func (r *Registry) IsAssetAllowed(vault types.VaultID, denom string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[assetKey{vault: vault, denom: denom}]
}

// SetFeeExempt grants or revokes an account's withdrawal fee exemption.
func (r *Registry) SetFeeExempt(account string, exempt bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeExempt[account] = exempt
}

// IsFeeExempt reports whether an account is exempt from withdrawal fees.
func (r *Registry) IsFeeExempt(account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeExempt[account]
}
