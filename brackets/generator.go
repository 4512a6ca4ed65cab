package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrFormatMismatch       = errors.New("pairing strategy does not match tournament format")
	ErrNotEnoughContestants = errors.New("not enough active contestants to pair")
	ErrBracketWaiting       = errors.New("bracket is waiting for results from the other bracket")
)

// Pairing - пара соперников раунда. Player2 == nil означает бай.
type Pairing struct {
	Round   int                `json:"round"`
	Bracket models.Bracket     `json:"bracket,omitempty"`
	Player1 *models.Contestant `json:"player1"`
	Player2 *models.Contestant `json:"player2,omitempty"`
}

func (p *Pairing) IsBye() bool {
	return p.Player2 == nil
}

// GeneratePairingsParams. Contestants - все участники турнира, включая выбывших,
// History - все записанные матчи турнира.
type GeneratePairingsParams struct {
	Tournament  *models.Tournament
	Bracket     models.Bracket
	Contestants []*models.Contestant
	History     []*models.Match
}

type PairingGenerator interface {
	GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]*Pairing, error)

	GetName() string
}

func NewGenerator(format models.Format) (PairingGenerator, error) {
	switch format {
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownFormat, format)
}

func checkFormat(g PairingGenerator, t *models.Tournament, want models.Format) error {
	if t == nil {
		return errors.New("tournament is required")
	}
	if t.Format != want {
		return fmt.Errorf("%w: %s generator cannot pair a %s tournament", ErrFormatMismatch, g.GetName(), t.Format)
	}
	return nil
}

func newPairing(round int, bracket models.Bracket, a, b *models.Contestant) *Pairing {
	if a == nil {
		a, b = b, nil
	}
	return &Pairing{Round: round, Bracket: bracket, Player1: a, Player2: b}
}
