package brackets

import (
	"context"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() PairingGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GeneratePairings возвращает пары запрошенной сетки.
// Верхняя сетка строится так же, как single elimination. Проигравшие в ней
// попадают в нижнюю, где новички встречаются с выжившими, а остальные
// сводятся по посеву. Когда в каждой сетке остается по одному участнику,
// возвращается гранд-финал (записывается в верхнюю сетку).
func (g *DoubleEliminationGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]*Pairing, error) {
	if err := checkFormat(g, params.Tournament, models.FormatDoubleElimination); err != nil {
		return nil, err
	}
	t := params.Tournament

	winners := filterContestants(params.Contestants, inWinnersBracket)
	losers := filterContestants(params.Contestants, inLosersBracket)
	if len(winners)+len(losers) == 0 {
		return nil, ErrNotEnoughContestants
	}

	if len(winners) == 1 && len(losers) == 1 {
		return []*Pairing{newPairing(max(t.Round, 1), models.BracketWinners, winners[0], losers[0])}, nil
	}

	if params.Bracket == models.BracketLosers {
		return g.losersPairings(t, len(winners), losers, params.History)
	}

	switch len(winners) {
	case 0:
		return []*Pairing{}, nil
	case 1:
		return nil, ErrBracketWaiting
	}
	tree := newEliminationTree(params.Contestants)
	return tree.pairings(t.Round, models.BracketWinners, params.History, inWinnersBracket), nil
}

func (g *DoubleEliminationGenerator) losersPairings(t *models.Tournament, winnersActive int, losers []*models.Contestant, history []*models.Match) ([]*Pairing, error) {
	if len(losers) == 0 {
		return []*Pairing{}, nil
	}
	if !LosersRoundOpen(t, winnersActive) {
		return nil, ErrBracketWaiting
	}

	round := max(t.LosersRound, 1)
	appeared := appearedInRound(history, round, models.BracketLosers)
	eligible := EligibleLosers(t, winnersActive, losers, history)
	pool := filterContestants(eligible, func(c *models.Contestant) bool { return !appeared[c.ID] })

	played := playedInBracket(history, models.BracketLosers)
	fresh := SortBySeed(filterContestants(pool, func(c *models.Contestant) bool { return !played[c.ID] }))
	survivors := SortBySeed(filterContestants(pool, func(c *models.Contestant) bool { return played[c.ID] }))

	k := min(len(fresh), len(survivors))
	pairings := make([]*Pairing, 0, (len(pool)+1)/2)
	for i := 0; i < k; i++ {
		pairings = append(pairings, newPairing(round, models.BracketLosers, survivors[i], fresh[len(fresh)-1-i]))
	}

	leftovers := append(fresh[:len(fresh)-k:len(fresh)-k], survivors[k:]...)
	pairings = append(pairings, foldPairs(round, models.BracketLosers, SortBySeed(leftovers))...)
	return pairings, nil
}

// LosersEntryRound - раунд нижней сетки, в который попадает проигравший
// раунда r верхней сетки: 1 для r=1, иначе 2(r-1).
func LosersEntryRound(winnersRound int) int {
	if winnersRound <= 1 {
		return 1
	}
	return 2 * (winnersRound - 1)
}

// EligibleLosers оставляет участников нижней сетки, чей раунд входа уже наступил.
// Когда верхняя сетка пуста, новых входов не будет и играют все.
func EligibleLosers(t *models.Tournament, winnersActive int, losers []*models.Contestant, history []*models.Match) []*models.Contestant {
	if winnersActive == 0 {
		return losers
	}
	entry := make(map[uuid.UUID]int)
	for _, m := range history {
		if m.Bracket != models.BracketWinners || m.LoserID == nil {
			continue
		}
		entry[*m.LoserID] = LosersEntryRound(m.Round)
	}
	round := max(t.LosersRound, 1)
	return filterContestants(losers, func(c *models.Contestant) bool { return entry[c.ID] <= round })
}

// LosersRoundOpen сообщает, можно ли играть текущий раунд нижней сетки:
// раунд l ждет завершения раунда l/2+1 верхней сетки, пока в ней больше одного участника.
func LosersRoundOpen(t *models.Tournament, winnersActive int) bool {
	if winnersActive <= 1 {
		return true
	}
	return t.Round > t.LosersRound/2+1
}

func inWinnersBracket(c *models.Contestant) bool {
	return c.Active && c.Status == models.ContestantWinnersBracket
}

func inLosersBracket(c *models.Contestant) bool {
	return c.Active && c.Status == models.ContestantLosersBracket
}

func playedInBracket(history []*models.Match, bracket models.Bracket) map[uuid.UUID]bool {
	played := make(map[uuid.UUID]bool)
	for _, m := range history {
		if m.Bracket != bracket {
			continue
		}
		played[m.Player1ID] = true
		if m.Player2ID != nil {
			played[*m.Player2ID] = true
		}
	}
	return played
}
