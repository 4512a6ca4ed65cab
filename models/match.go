package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusBye       MatchStatus = "bye"
)

// Bracket - сетка double elimination. Для остальных форматов пустая.
type Bracket string

const (
	BracketNone    Bracket = ""
	BracketWinners Bracket = "winners"
	BracketLosers  Bracket = "losers"
)

var (
	ErrInvalidMatchState = errors.New("invalid match state")
	ErrUnknownBracket    = errors.New("unknown bracket")
)

func ParseBracket(s string) (Bracket, error) {
	switch Bracket(strings.ToLower(strings.TrimSpace(s))) {
	case BracketNone:
		return BracketNone, nil
	case BracketWinners:
		return BracketWinners, nil
	case BracketLosers:
		return BracketLosers, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBracket, s)
}

// Match - запись о сыгранном матче или бае. После создания не изменяется.
type Match struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	TournamentID uuid.UUID   `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	Bracket      Bracket     `json:"bracket,omitempty" db:"bracket"`
	Player1ID    uuid.UUID   `json:"player1_id" db:"player1_id"`
	Player2ID    *uuid.UUID  `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *uuid.UUID  `json:"winner_id,omitempty" db:"winner_id"`
	LoserID      *uuid.UUID  `json:"loser_id,omitempty" db:"loser_id"`
	IsDraw       bool        `json:"is_draw" db:"is_draw"`
	Score        *string     `json:"score,omitempty" db:"score"`
	Status       MatchStatus `json:"status" db:"status"`
	CompletedAt  time.Time   `json:"completed_at" db:"completed_at"`
}

func (m *Match) IsBye() bool {
	return m.Status == MatchStatusBye
}

// Involves сообщает, участвовал ли игрок в матче.
func (m *Match) Involves(id uuid.UUID) bool {
	return m.Player1ID == id || (m.Player2ID != nil && *m.Player2ID == id)
}

// Validate проверяет согласованность полей результата.
func (m *Match) Validate() error {
	if m.Round < 1 {
		return fmt.Errorf("%w: round must be positive, got %d", ErrInvalidMatchState, m.Round)
	}
	switch m.Status {
	case MatchStatusBye:
		if m.Player2ID != nil {
			return fmt.Errorf("%w: bye must not have a second player", ErrInvalidMatchState)
		}
		if m.WinnerID == nil || *m.WinnerID != m.Player1ID {
			return fmt.Errorf("%w: bye winner must be player1", ErrInvalidMatchState)
		}
		if m.LoserID != nil || m.IsDraw {
			return fmt.Errorf("%w: bye cannot have a loser or a draw", ErrInvalidMatchState)
		}
	case MatchStatusCompleted:
		if m.Player2ID == nil {
			return fmt.Errorf("%w: completed match requires two players", ErrInvalidMatchState)
		}
		if *m.Player2ID == m.Player1ID {
			return fmt.Errorf("%w: player cannot face themselves", ErrInvalidMatchState)
		}
		if m.IsDraw {
			if m.WinnerID != nil || m.LoserID != nil {
				return fmt.Errorf("%w: draw cannot have a winner or a loser", ErrInvalidMatchState)
			}
			return nil
		}
		if m.WinnerID == nil || m.LoserID == nil {
			return fmt.Errorf("%w: decisive match requires a winner and a loser", ErrInvalidMatchState)
		}
		if *m.WinnerID == *m.LoserID {
			return fmt.Errorf("%w: winner and loser must differ", ErrInvalidMatchState)
		}
		if !m.Involves(*m.WinnerID) || !m.Involves(*m.LoserID) {
			return fmt.Errorf("%w: winner and loser must be match players", ErrInvalidMatchState)
		}
	default:
		return fmt.Errorf("%w: unexpected status %q", ErrInvalidMatchState, m.Status)
	}
	return nil
}
