package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"transfer-dashboard/internal/storage"
)

// Transfer and player handlers

// GetTransfers returns a season's transfer records
// @Summary List transfers for a season
// @Description Returns every transfer recorded for the season in insertion order.
// @Tags transfers
// @Produce json
// @Param season path string true "Season, e.g. 2023"
// @Success 200 {array} storage.Transfer "Transfers"
// @Failure 500 {string} string "Failed to get transfers"
// @Router /api/transfers/{season} [get]
func (h *Handlers) GetTransfers(w http.ResponseWriter, r *http.Request) {
	season := mux.Vars(r)["season"]

	transfers, err := h.storage.GetTransfersBySeason(season)
	if err != nil {
		http.Error(w, "Failed to get transfers", http.StatusInternalServerError)
		return
	}
	if transfers == nil {
		transfers = []*storage.Transfer{}
	}

	writeJSON(w, http.StatusOK, transfers)
}

// CreateTransfer records a new transfer
// @Summary Create a transfer record
// @Description Stores a transfer for later enrichment. PlayerID may be zero for records that cannot be enriched.
// @Tags transfers
// @Accept json
// @Produce json
// @Success 201 {object} storage.Transfer "Created transfer"
// @Failure 400 {string} string "Invalid payload"
// @Failure 500 {string} string "Failed to create transfer"
// @Router /api/transfers [post]
func (h *Handlers) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var transfer storage.Transfer
	if err := json.NewDecoder(r.Body).Decode(&transfer); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if transfer.Season == "" || transfer.PlayerName == "" {
		http.Error(w, "season and player_name are required", http.StatusBadRequest)
		return
	}

	if err := h.storage.CreateTransfer(&transfer); err != nil {
		http.Error(w, "Failed to create transfer", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, transfer)
}

// GetPlayer returns one enriched player record
// @Summary Get an enriched player
// @Description Returns the stored enriched attributes for a player ID.
// @Tags players
// @Produce json
// @Param id path int true "Player ID"
// @Success 200 {object} storage.Player "Player"
// @Failure 400 {string} string "Invalid player ID"
// @Failure 404 {string} string "Player not found"
// @Router /api/players/{id} [get]
func (h *Handlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id < 1 {
		http.Error(w, "Invalid player ID", http.StatusBadRequest)
		return
	}

	player, err := h.storage.GetPlayer(id)
	if err != nil {
		http.Error(w, "Failed to get player", http.StatusInternalServerError)
		return
	}
	if player == nil {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, player)
}
