package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/execution"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/domain/intent"
	"github.com/Matt-Aurora-Ventures/Jarvis-sub032/internal/service/monitor"
)

// handlerSet carries the handler dependencies
type handlerSet struct {
	monitor *monitor.Service
	journal execution.Journal
}

// CreateIntentRequest represents POST /api/intents request
type CreateIntentRequest struct {
	PositionID  string           `json:"position_id"`
	TokenMint   string           `json:"token_mint"`
	Symbol      string           `json:"symbol"`
	EntryPrice  decimal.Decimal  `json:"entry_price"`
	Quantity    decimal.Decimal  `json:"quantity"`
	AutoExecute bool             `json:"auto_execute"`
	Notes       string           `json:"notes"`
	Plan        *intent.PlanSpec `json:"plan,omitempty"`
}

// ListIntents handles GET /api/intents
func (h *handlerSet) ListIntents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Intents())
}

// CreateIntent handles POST /api/intents
func (h *handlerSet) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid intent request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Absent plan falls back to the conservative default ladder
	plan := intent.DefaultSpotPlan()
	if req.Plan != nil {
		plan = *req.Plan
	}

	it, err := intent.Build(intent.BuildParams{
		PositionID:  req.PositionID,
		TokenMint:   req.TokenMint,
		Symbol:      req.Symbol,
		EntryPrice:  req.EntryPrice,
		Quantity:    req.Quantity,
		AutoExecute: req.AutoExecute,
		Notes:       req.Notes,
		Plan:        plan,
	}, time.Now())
	if err != nil {
		log.Warn().Err(err).Str("token_mint", req.TokenMint).Msg("Intent plan rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.monitor.Register(ctx, it); err != nil {
		log.Error().Err(err).Str("intent_id", it.ID).Msg("Failed to register intent")
		http.Error(w, "Failed to register intent", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, it)
}

// GetIntent handles GET /api/intents/{intent_id}
func (h *handlerSet) GetIntent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	intentID := vars["intent_id"]

	it, err := h.monitor.Intent(intentID)
	if err != nil {
		if errors.Is(err, intent.ErrIntentNotFound) {
			http.Error(w, "Intent not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("intent_id", intentID).Msg("Failed to get intent")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, it)
}

// CancelIntent handles POST /api/intents/{intent_id}/cancel
func (h *handlerSet) CancelIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	intentID := vars["intent_id"]

	cancelled, err := h.monitor.Cancel(ctx, intentID)
	if err != nil {
		switch {
		case errors.Is(err, intent.ErrIntentNotFound):
			http.Error(w, "Intent not found", http.StatusNotFound)
		case errors.Is(err, intent.ErrIntentTerminal):
			http.Error(w, "Intent already terminal", http.StatusConflict)
		default:
			log.Error().Err(err).Str("intent_id", intentID).Msg("Failed to cancel intent")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, cancelled)
}
