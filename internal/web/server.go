package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meridianfi/vaultd/internal/coordinator"
	"github.com/meridianfi/vaultd/internal/ledger"
	"github.com/meridianfi/vaultd/internal/logger"
	"github.com/meridianfi/vaultd/internal/registry"
	"github.com/meridianfi/vaultd/internal/state"
	"github.com/meridianfi/vaultd/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the vault operations and audit data over HTTP.
type WebServer struct {
	router      *mux.Router
	port        string
	coordinator *coordinator.Coordinator
	registry    *registry.Registry
	ledger      ledger.ShareLedger
	startedAt   time.Time
}

// NewWebServer creates a new web server instance.
func NewWebServer(port string, coord *coordinator.Coordinator, reg *registry.Registry, shares ledger.ShareLedger) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:      mux.NewRouter(),
		port:        port,
		coordinator: coord,
		registry:    reg,
		ledger:      shares,
		startedAt:   time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vaults", ws.handleListVaults).Methods("GET")
	api.HandleFunc("/vaults/{id}", ws.handleGetVault).Methods("GET")
	api.HandleFunc("/vaults/{id}/pending-fee", ws.handleGetPendingFee).Methods("GET")
	api.HandleFunc("/vaults/{id}/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/vaults/{id}/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/vaults/{id}/manage", ws.handleManage).Methods("POST")
	api.HandleFunc("/records", ws.handleGetRecords).Methods("GET")

	// Administrative surface
	api.HandleFunc("/vaults", ws.handleOpenVault).Methods("POST")
	api.HandleFunc("/vaults/{id}/pause", ws.handleSetPause).Methods("POST")
	api.HandleFunc("/vaults/{id}/managers", ws.handleSetManager).Methods("POST")
	api.HandleFunc("/vaults/{id}/assets", ws.handleSetAsset).Methods("POST")
	api.HandleFunc("/fee-exemptions", ws.handleSetFeeExemption).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	if !dbHealthy {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"vaultd_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"scope_active":     ws.coordinator.ScopeActive(),
			"vault_count":      len(ws.registry.All()),
		},
	}

	statusCode := http.StatusOK
	if !dbHealthy {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleListVaults returns every registered vault configuration.
func (ws *WebServer) handleListVaults(w http.ResponseWriter, r *http.Request) {
	configs := ws.registry.All()
	response := map[string]interface{}{
		"vaults": configs,
		"count":  len(configs),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetVault returns one vault's configuration and share supply.
func (ws *WebServer) handleGetVault(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	cfg, err := ws.registry.Get(vault)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return
	}

	response := map[string]interface{}{
		"config":       cfg,
		"total_supply": ws.ledger.TotalSupply(vault).String(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPendingFee returns the management fee that would accrue now.
func (ws *WebServer) handleGetPendingFee(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	fee, err := ws.coordinator.PendingManagementFee(vault)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Vault not found")
		return
	}

	response := map[string]interface{}{
		"vault_id":    vault,
		"pending_fee": fee.String(),
		"timestamp":   time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

type depositRequest struct {
	Caller      string `json:"caller"`
	Beneficiary string `json:"beneficiary"`
	Deposits    string `json:"deposits"`
	MinShares   string `json:"min_shares"`
}

// handleDeposit runs a deposit operation.
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposits, err := sdk.ParseCoinsNormalized(req.Deposits)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid deposits coin list")
		return
	}
	minShares, ok2 := parseIntField(req.MinShares)
	if !ok2 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid min_shares")
		return
	}

	start := time.Now()
	record, err := ws.coordinator.Deposit(vault, req.Caller, req.Beneficiary, deposits, minShares)
	observeOperation(types.RecordKindDeposit, time.Since(start).Seconds(), err)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, record)
}

type withdrawRequest struct {
	Caller        string `json:"caller"`
	Shares        string `json:"shares"`
	MinAmountsOut string `json:"min_amounts_out"`
}

// handleWithdraw runs a withdraw operation.
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	shares, ok2 := parseIntField(req.Shares)
	if !ok2 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid shares")
		return
	}
	minOut, err := sdk.ParseCoinsNormalized(req.MinAmountsOut)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid min_amounts_out coin list")
		return
	}

	start := time.Now()
	record, err := ws.coordinator.Withdraw(vault, req.Caller, shares, minOut)
	observeOperation(types.RecordKindWithdraw, time.Since(start).Seconds(), err)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, record)
}

type manageRequest struct {
	Manager string                 `json:"manager"`
	Batch   types.InstructionBatch `json:"batch"`
}

// handleManage runs a manage operation.
func (ws *WebServer) handleManage(w http.ResponseWriter, r *http.Request) {
	vault, ok := ws.vaultID(w, r)
	if !ok {
		return
	}

	var req manageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start := time.Now()
	record, err := ws.coordinator.Manage(vault, req.Manager, req.Batch)
	observeOperation(types.RecordKindManage, time.Since(start).Seconds(), err)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, record)
}

// handleGetRecords returns recent audit records, newest first.
func (ws *WebServer) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	records, err := state.LoadRecentRecords(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load operation records")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve records")
		return
	}

	response := map[string]interface{}{
		"records": records,
		"count":   len(records),
		"limit":   limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// vaultID parses the {id} path variable.
func (ws *WebServer) vaultID(w http.ResponseWriter, r *http.Request) (types.VaultID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid vault ID")
		return 0, false
	}
	return types.VaultID(id), true
}

func parseIntField(s string) (sdkmath.Int, bool) {
	if s == "" {
		return sdkmath.ZeroInt(), true
	}
	return sdkmath.NewIntFromString(s)
}

// writeOperationError maps coordinator rejections to HTTP status codes.
func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coordinator.ErrReentrancy):
		status = http.StatusConflict
	case errors.Is(err, registry.ErrVaultNotFound):
		status = http.StatusNotFound
	case errors.Is(err, coordinator.ErrUnauthorizedManager):
		status = http.StatusForbidden
	case errors.Is(err, coordinator.ErrDepositPaused),
		errors.Is(err, coordinator.ErrWithdrawPaused),
		errors.Is(err, coordinator.ErrAssetNotAllowed),
		errors.Is(err, coordinator.ErrExceedCapacity),
		errors.Is(err, coordinator.ErrBelowMinimumDeposit),
		errors.Is(err, coordinator.ErrTooLittleReceived),
		errors.Is(err, coordinator.ErrTooMuchEquityLoss),
		errors.Is(err, coordinator.ErrTooMuchLeverage),
		errors.Is(err, coordinator.ErrWithdrawExceedBalance),
		errors.Is(err, coordinator.ErrInvalidMinAmountOut),
		errors.Is(err, coordinator.ErrTokenMismatch),
		errors.Is(err, coordinator.ErrInvalidRequest):
		status = http.StatusUnprocessableEntity
	}

	ws.writeErrorResponse(w, status, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture the status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
