package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultListLimit = 20

type TournamentService interface {
	CreateTournament(ctx context.Context, input services.CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context, statuses []models.TournamentStatus, limit, offset int) ([]*models.Tournament, error)
	GetTournamentData(ctx context.Context, id uuid.UUID) (*services.TournamentData, error)
	AddContestant(ctx context.Context, id uuid.UUID, input services.AddContestantInput) (*models.Contestant, error)
	WithdrawContestant(ctx context.Context, id uuid.UUID, name string) (*models.Contestant, error)
	CancelTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	FinishTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	GetStandings(ctx context.Context, id uuid.UUID) ([]models.Standing, error)
	GetPairings(ctx context.Context, id uuid.UUID, query services.PairingsQuery) (*services.PairingsView, error)
}

type RoundService interface {
	CheckRoundCompletion(ctx context.Context, id uuid.UUID) (bool, error)
}

type TournamentHandler struct {
	tournamentService TournamentService
	roundService      RoundService
}

func NewTournamentHandler(ts TournamentService, rs RoundService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		roundService:      rs,
	}
}

// CreateHandler обрабатывает POST /tournaments
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments?status=active,pending&limit=20&offset=0
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var statuses []models.TournamentStatus
	if raw := query.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.TournamentStatus(strings.TrimSpace(s)))
		}
	}

	limit := defaultListLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		limit = n
	}
	offset := 0
	if raw := query.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		offset = n
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), statuses, limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if tournaments == nil {
		tournaments = []*models.Tournament{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /tournaments/{tournamentID}
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	data, err := h.tournamentService.GetTournamentData(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AddContestantHandler обрабатывает POST /tournaments/{tournamentID}/contestants
func (h *TournamentHandler) AddContestantHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AddContestantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contestant, err := h.tournamentService.AddContestant(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WithdrawContestantHandler обрабатывает POST /tournaments/{tournamentID}/contestants/{name}/withdraw
func (h *TournamentHandler) WithdrawContestantHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid contestant name"))
		return
	}

	contestant, err := h.tournamentService.WithdrawContestant(r.Context(), id, name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"contestant": contestant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler обрабатывает GET /tournaments/{tournamentID}/standings
func (h *TournamentHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.tournamentService.GetStandings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PairingsHandler обрабатывает GET /tournaments/{tournamentID}/pairings?bracket=losers
func (h *TournamentHandler) PairingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.tournamentService.GetPairings(r.Context(), id, services.PairingsQuery{
		Bracket:  r.URL.Query().Get("bracket"),
		Strategy: r.URL.Query().Get("strategy"),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pairings": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckRoundHandler обрабатывает POST /tournaments/{tournamentID}/rounds/check
func (h *TournamentHandler) CheckRoundHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	advanced, err := h.roundService.CheckRoundCompletion(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"round_advanced": advanced, "tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler обрабатывает POST /tournaments/{tournamentID}/cancel
func (h *TournamentHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.tournamentService.CancelTournament)
}

// FinishHandler обрабатывает POST /tournaments/{tournamentID}/finish
func (h *TournamentHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.tournamentService.FinishTournament)
}

func (h *TournamentHandler) changeStatus(w http.ResponseWriter, r *http.Request, change func(context.Context, uuid.UUID) (*models.Tournament, error)) {
	id, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := change(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
