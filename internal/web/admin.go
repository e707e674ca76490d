package web

import (
	"encoding/json"
	"errors"
	"net/http"

	sdkmath "cosmossdk.io/math"

	"github.com/meridianfi/vaultd/internal/registry"
	"github.com/meridianfi/vaultd/internal/state"
	"github.com/meridianfi/vaultd/internal/types"
)

// Administrative surface. Ownership gating happens at the service boundary;
// these routes are for the single operator of this instance. Registry state
// is authoritative; persistence failures are logged, and the row is written
// again on the next successful mutation.

func (ws *WebServer) handleOpenVault(w http.ResponseWriter, r *http.Request) {
	var cfg types.VaultConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cfg.ManagementFeeRate.IsNil() {
		cfg.ManagementFeeRate = sdkmath.ZeroInt()
	}

	if err := ws.registry.OpenVault(cfg); err != nil {
		switch {
		case errors.Is(err, registry.ErrVaultExists):
			ws.writeErrorResponse(w, http.StatusConflict, err.Error())
		case errors.Is(err, registry.ErrInvalidConfig):
			ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		default:
			ws.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := state.SaveVaultConfig(cfg); err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", uint64(cfg.VaultID)).Msg("Failed to persist vault config")
	}
	ws.writeJSONResponse(w, http.StatusCreated, cfg)
}

type pauseRequest struct {
	DepositPaused  bool `json:"deposit_paused"`
	WithdrawPaused bool `json:"withdraw_paused"`
}

func (ws *WebServer) handleSetPause(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := ws.registry.Update(vault, func(cfg *types.VaultConfig) {
		cfg.DepositPaused = req.DepositPaused
		cfg.WithdrawPaused = req.WithdrawPaused
	})
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return
	}

	cfg, err := ws.registry.Get(vault)
	if err == nil {
		if perr := state.SaveVaultConfig(cfg); perr != nil {
			webLogger.Error().Err(perr).Uint64("vaultId", uint64(vault)).Msg("Failed to persist pause flags")
		}
	}
	ws.writeJSONResponse(w, http.StatusOK, cfg)
}

type managerRequest struct {
	Account string `json:"account"`
	Allowed bool   `json:"allowed"`
}

func (ws *WebServer) handleSetManager(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req managerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ws.registry.SetManager(vault, req.Account, req.Allowed); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return
	}
	if err := state.SetManagerFlag(vault, req.Account, req.Allowed); err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", uint64(vault)).Msg("Failed to persist manager flag")
	}
	ws.writeJSONResponse(w, http.StatusOK, req)
}

type assetRequest struct {
	Denom   string `json:"denom"`
	Allowed bool   `json:"allowed"`
}

func (ws *WebServer) handleSetAsset(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Denom == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := ws.registry.AllowAsset(vault, req.Denom, req.Allowed); err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return
	}
	if err := state.SetAssetFlag(vault, req.Denom, req.Allowed); err != nil {
		webLogger.Error().Err(err).Uint64("vaultId", uint64(vault)).Msg("Failed to persist asset flag")
	}
	ws.writeJSONResponse(w, http.StatusOK, req)
}

type exemptionRequest struct {
	Account string `json:"account"`
	Exempt  bool   `json:"exempt"`
}

func (ws *WebServer) handleSetFeeExemption(w http.ResponseWriter, r *http.Request) {
	var req exemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ws.registry.SetFeeExempt(req.Account, req.Exempt)
	if err := state.SetFeeExemption(req.Account, req.Exempt); err != nil {
		webLogger.Error().Err(err).Str("account", req.Account).Msg("Failed to persist fee exemption")
	}
	ws.writeJSONResponse(w, http.StatusOK, req)
}
