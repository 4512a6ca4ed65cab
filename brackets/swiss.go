package brackets

import (
	"context"
	"slices"

	"github.com/Dosada05/tournament-engine/models"
)

type SwissGenerator struct{}

func NewSwissGenerator() PairingGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// GeneratePairings жадно сводит лидера с сильнейшим соперником, с которым он еще не играл.
// Если такого нет, берется следующий доступный (повторная встреча допускается).
// Участники, уже сыгравшие в текущем раунде, в пары не попадают.
func (g *SwissGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]*Pairing, error) {
	if err := checkFormat(g, params.Tournament, models.FormatSwiss); err != nil {
		return nil, err
	}
	round := params.Tournament.Round
	appeared := appearedInRound(params.History, round, models.BracketNone)

	pool := SortByStanding(filterContestants(params.Contestants, func(c *models.Contestant) bool {
		return c.Active && !appeared[c.ID]
	}))
	if len(pool) == 0 && len(appeared) == 0 {
		return nil, ErrNotEnoughContestants
	}

	played := playedPairs(params.History)
	pairings := make([]*Pairing, 0, (len(pool)+1)/2)

	for len(pool) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := pool[0]
		pool = pool[1:]
		if len(pool) == 0 {
			pairings = append(pairings, newPairing(round, models.BracketNone, top, nil))
			break
		}

		opponentIdx := slices.IndexFunc(pool, func(c *models.Contestant) bool {
			return !played[newPairKey(top.ID, c.ID)]
		})
		if opponentIdx < 0 {
			opponentIdx = 0
		}
		opponent := pool[opponentIdx]
		pool = slices.Delete(pool, opponentIdx, opponentIdx+1)

		pairings = append(pairings, newPairing(round, models.BracketNone, top, opponent))
	}

	return pairings, nil
}
