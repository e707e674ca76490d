package ledger

import (
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/types"
)

// ShareLedger tracks the fungible share token of each vault. Supply changes
// are the only record of ownership; the coordinator is the only component
// that mutates it.
type ShareLedger interface {
	// Mint creates shares for an account.
	Mint(vault types.VaultID, account string, amount sdkmath.Int) error

	// Burn destroys shares held by an account.
	Burn(vault types.VaultID, account string, amount sdkmath.Int) error

	// TotalSupply returns the outstanding share supply of a vault.
	TotalSupply(vault types.VaultID) sdkmath.Int

	// BalanceOf returns an account's share balance in a vault.
	BalanceOf(vault types.VaultID, account string) sdkmath.Int
}

// AssetBank moves underlying assets on behalf of the coordinator. Deposit
// inputs flow caller -> executor; withdrawal outputs flow back to the caller.
type AssetBank interface {
	// TransferToExecutor moves declared deposit assets from the caller to the
	// vault's strategy executor, which is responsible for consuming them.
	TransferToExecutor(from, executorRef string, deposits sdk.Coins) error

	// TransferToAccount pays withdrawal outputs out to an account.
	TransferToAccount(to string, coins sdk.Coins) error
}
