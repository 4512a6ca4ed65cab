package brackets

import (
	"context"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() PairingGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]*Pairing, error) {
	if err := checkFormat(g, params.Tournament, models.FormatSingleElimination); err != nil {
		return nil, err
	}
	if len(filterContestants(params.Contestants, isActive)) == 0 {
		return nil, ErrNotEnoughContestants
	}

	tree := newEliminationTree(params.Contestants)
	return tree.pairings(params.Tournament.Round, models.BracketNone, params.History, isActive), nil
}

// eliminationTree - сетка на выбывание, построенная по посеву всех участников.
// Слоты первого уровня расставлены стандартно (1 против N, ...), пустые слоты - баи.
type eliminationTree struct {
	slots []*models.Contestant
}

func newEliminationTree(contestants []*models.Contestant) *eliminationTree {
	seeded := SortBySeed(filterContestants(contestants, func(*models.Contestant) bool { return true }))
	pairs := GenerateRound1Pairs(len(seeded))

	slots := make([]*models.Contestant, 0, len(pairs)*2)
	slotAt := func(idx int) *models.Contestant {
		if idx < len(seeded) {
			return seeded[idx]
		}
		return nil
	}
	for _, p := range pairs {
		slots = append(slots, slotAt(p[0]), slotAt(p[1]))
	}
	if len(slots) == 0 && len(seeded) == 1 {
		slots = append(slots, seeded[0])
	}
	return &eliminationTree{slots: slots}
}

// level возвращает занятость слотов перед раундом round: в каждый узел
// проходит тот, кто выиграл (матч или бай) в предыдущем раунде этой сетки.
func (t *eliminationTree) level(round int, bracket models.Bracket, history []*models.Match) []*models.Contestant {
	current := t.slots
	for r := 1; r < round && len(current) > 1; r++ {
		winners := roundWinners(history, r, bracket)
		next := make([]*models.Contestant, 0, len(current)/2)
		for i := 0; i+1 < len(current); i += 2 {
			next = append(next, advancing(current[i], current[i+1], winners))
		}
		current = next
	}
	return current
}

func (t *eliminationTree) pairings(round int, bracket models.Bracket, history []*models.Match, present func(*models.Contestant) bool) []*Pairing {
	round = max(round, 1)
	current := t.level(round, bracket, history)

	pairings := make([]*Pairing, 0, len(current)/2)
	for i := 0; i+1 < len(current); i += 2 {
		a, b := current[i], current[i+1]
		if a != nil && !present(a) {
			a = nil
		}
		if b != nil && !present(b) {
			b = nil
		}
		if a == nil && b == nil {
			continue
		}
		pairings = append(pairings, newPairing(round, bracket, a, b))
	}
	return pairings
}

func roundWinners(history []*models.Match, round int, bracket models.Bracket) map[uuid.UUID]bool {
	winners := make(map[uuid.UUID]bool)
	for _, m := range history {
		if m.Round == round && m.Bracket == bracket && m.WinnerID != nil {
			winners[*m.WinnerID] = true
		}
	}
	return winners
}

func advancing(a, b *models.Contestant, winners map[uuid.UUID]bool) *models.Contestant {
	if a != nil && winners[a.ID] {
		return a
	}
	if b != nil && winners[b.ID] {
		return b
	}
	return nil
}
