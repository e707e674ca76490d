package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/meridianfi/vaultd/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidAmount      = errors.New("amount is invalid")
	ErrInsufficientShares = errors.New("insufficient share balance")
	ErrInsufficientFunds  = errors.New("insufficient asset balance")
)

// MemoryLedger is an in-process ShareLedger. Deployments may substitute any
// implementation of the interface; this one backs tests and dry-run mode.
type MemoryLedger struct {
	mu       sync.Mutex
	supply   map[types.VaultID]sdkmath.Int
	balances map[balanceKey]sdkmath.Int
}

type balanceKey struct {
	vault   types.VaultID
	account string
}

// NewMemoryLedger creates an empty share ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		supply:   make(map[types.VaultID]sdkmath.Int),
		balances: make(map[balanceKey]sdkmath.Int),
	}
}

// Mint creates shares for an account.
func (l *MemoryLedger) Mint(vault types.VaultID, account string, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{vault: vault, account: account}
	l.balances[key] = l.balanceLocked(key).Add(amount)
	l.supply[vault] = l.supplyLocked(vault).Add(amount)
	return nil
}

// Burn destroys shares held by an account.
func (l *MemoryLedger) Burn(vault types.VaultID, account string, amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{vault: vault, account: account}
	balance := l.balanceLocked(key)
	if balance.LT(amount) {
		return errors.Join(ErrInsufficientShares,
			fmt.Errorf("account %s holds %s, cannot burn %s", account, balance, amount))
	}
	l.balances[key] = balance.Sub(amount)
	l.supply[vault] = l.supplyLocked(vault).Sub(amount)
	return nil
}

// TotalSupply returns the outstanding share supply of a vault.
func (l *MemoryLedger) TotalSupply(vault types.VaultID) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supplyLocked(vault)
}

// BalanceOf returns an account's share balance in a vault.
func (l *MemoryLedger) BalanceOf(vault types.VaultID, account string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(balanceKey{vault: vault, account: account})
}

func (l *MemoryLedger) supplyLocked(vault types.VaultID) sdkmath.Int {
	if s, ok := l.supply[vault]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

func (l *MemoryLedger) balanceLocked(key balanceKey) sdkmath.Int {
	if b, ok := l.balances[key]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return errors.Join(ErrInvalidAmount, errors.New("amount is nil"))
	}
	if amount.IsNegative() {
		return errors.Join(ErrInvalidAmount, fmt.Errorf("amount is negative: %s", amount))
	}
	return nil
}

// MemoryBank is an in-process AssetBank keyed by account. Accounts are funded
// explicitly; transfers fail rather than overdraw.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]sdk.Coins
}

// NewMemoryBank creates an empty asset bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{balances: make(map[string]sdk.Coins)}
}

// Fund credits an account with assets. Test and dry-run helper.
func (b *MemoryBank) Fund(account string, coins sdk.Coins) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = b.balances[account].Add(coins...)
}

// Balance returns an account's asset balance.
func (b *MemoryBank) Balance(account string) sdk.Coins {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// TransferToExecutor moves deposit assets from the caller to the executor.
func (b *MemoryBank) TransferToExecutor(from, executorRef string, deposits sdk.Coins) error {
	return b.transfer(from, executorRef, deposits)
}

// TransferToAccount pays withdrawal outputs out to an account.
func (b *MemoryBank) TransferToAccount(to string, coins sdk.Coins) error {
	return b.transfer("", to, coins)
}

func (b *MemoryBank) transfer(from, to string, coins sdk.Coins) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from != "" {
		have := b.balances[from]
		if !coins.IsAllLTE(have) {
			return errors.Join(ErrInsufficientFunds,
				fmt.Errorf("account %s holds %s, cannot transfer %s", from, have, coins))
		}
		b.balances[from] = have.Sub(coins...)
	}
	b.balances[to] = b.balances[to].Add(coins...)
	return nil
}
