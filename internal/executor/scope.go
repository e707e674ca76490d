/*

The execution scope is the authorization channel for outbound calls during a
delegated strategy step. While a scope is open, downstream collaborators may
trust that the named executor is acting for the named vault. The guard holds
at most one open scope at a time, and every exit path closes it.

*/

package executor

import (
	"errors"
	"sync"

	"github.com/meridianfi/vaultd/internal/types"
)

var ErrScopeAlreadyOpen = errors.New("an execution scope is already open")

// ScopeGuard is the single-slot holder of the active execution scope.
type ScopeGuard struct {
	mu     sync.Mutex
	active *Scope
}

// Scope is an explicit capability naming which executor may act for which
// vault. It is handed by reference into the delegated call and becomes inert
// once closed.
type Scope struct {
	guard       *ScopeGuard
	executorRef string
	worker      string
	vault       types.VaultID
	closed      bool
}

// NewScopeGuard creates a guard with no open scope.
func NewScopeGuard() *ScopeGuard {
	return &ScopeGuard{}
}

// Open creates the active scope. It fails if one is already open; the
// coordinator is not reentrant across vaults while a scope is open.
func (g *ScopeGuard) Open(executorRef, worker string, vault types.VaultID) (*Scope, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active != nil {
		return nil, ErrScopeAlreadyOpen
	}
	s := &Scope{
		guard:       g,
		executorRef: executorRef,
		worker:      worker,
		vault:       vault,
	}
	g.active = s
	return s, nil
}

// Active reports whether a scope is currently open.
func (g *ScopeGuard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active != nil
}

// Close clears the scope. Safe to call more than once; callers defer it so
// failure paths never leave stale trust behind.
func (s *Scope) Close() {
	if s == nil {
		return
	}
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.guard.active == s {
		s.guard.active = nil
	}
}

// Authorizes reports whether this scope names the given executor acting for
// the given vault. A closed scope authorizes nothing.
func (s *Scope) Authorizes(executorRef string, vault types.VaultID) bool {
	if s == nil {
		return false
	}
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return !s.closed && s.executorRef == executorRef && s.vault == vault
}

// Vault returns the vault this scope was opened for.
func (s *Scope) Vault() types.VaultID {
	return s.vault
}

// Worker returns the worker reference this scope was opened for.
func (s *Scope) Worker() string {
	return s.worker
}
