package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus представляет статусы турнира, соответствующие значениям в БД.
type TournamentStatus string

const (
	StatusPending   TournamentStatus = "pending"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCanceled  TournamentStatus = "canceled"
)

var allowedTransitions = map[TournamentStatus][]TournamentStatus{
	StatusPending:   {StatusActive, StatusCanceled},
	StatusActive:    {StatusCompleted, StatusCanceled},
	StatusCompleted: {},
	StatusCanceled:  {},
}

func (s TournamentStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TournamentOutcome фиксирует, чем закончился турнир.
type TournamentOutcome string

const (
	OutcomeNone     TournamentOutcome = "none"
	OutcomeChampion TournamentOutcome = "champion"
	OutcomeTie      TournamentOutcome = "tie"
)

// Tournament представляет турнир.
// Round - счетчик раундов (для double elimination - счетчик верхней сетки),
// LosersRound используется только нижней сеткой double elimination.
type Tournament struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	Name        string            `json:"name" db:"name"`
	Format      Format            `json:"format" db:"format"`
	Status      TournamentStatus  `json:"status" db:"status"`
	StartsAt    time.Time         `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time         `json:"ends_at" db:"ends_at"`
	Round       int               `json:"round" db:"current_round"`
	LosersRound int               `json:"losers_round,omitempty" db:"losers_round"`
	Outcome     TournamentOutcome `json:"outcome" db:"outcome"`
	Version     int               `json:"version" db:"version"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// CurrentRound возвращает счетчик раунда для указанной сетки.
func (t *Tournament) CurrentRound(bracket Bracket) int {
	if t.Format == FormatDoubleElimination && bracket == BracketLosers {
		return t.LosersRound
	}
	return t.Round
}

func (t *Tournament) AdvanceRound(bracket Bracket) {
	if t.Format == FormatDoubleElimination && bracket == BracketLosers {
		t.LosersRound++
		return
	}
	t.Round++
}

// StatusAt вычисляет статус, которого турнир должен достичь к моменту now
// по расписанию. Терминальные статусы не меняются.
func (t *Tournament) StatusAt(now time.Time) TournamentStatus {
	status := t.Status
	if status == StatusPending && !now.Before(t.StartsAt) {
		status = StatusActive
	}
	if status == StatusActive && now.After(t.EndsAt) {
		status = StatusCompleted
	}
	return status
}

// Brackets перечисляет сетки, по которым ведутся раунды.
func (t *Tournament) Brackets() []Bracket {
	if t.Format == FormatDoubleElimination {
		return []Bracket{BracketWinners, BracketLosers}
	}
	return []Bracket{BracketNone}
}
