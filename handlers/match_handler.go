package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/google/uuid"
)

type MatchService interface {
	SubmitResult(ctx context.Context, input services.SubmitResultInput) (*services.ResultOutcome, error)
	RegisterBye(ctx context.Context, tournamentID uuid.UUID, playerName string) (*services.ResultOutcome, error)
	ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error)
}

type MatchHandler struct {
	matchService MatchService
}

func NewMatchHandler(ms MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type submitResultRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Score   string `json:"score"`
	IsDraw  bool   `json:"is_draw"`
}

type registerByeRequest struct {
	Player string `json:"player"`
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListMatches(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultHandler обрабатывает POST /tournaments/{tournamentID}/matches
func (h *MatchHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req submitResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.SubmitResult(r.Context(), services.SubmitResultInput{
		TournamentID: id,
		Player1:      req.Player1,
		Player2:      req.Player2,
		Score:        req.Score,
		IsDraw:       req.IsDraw,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterByeHandler обрабатывает POST /tournaments/{tournamentID}/byes
func (h *MatchHandler) RegisterByeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req registerByeRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.RegisterBye(r.Context(), id, req.Player)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
