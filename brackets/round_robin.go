package brackets

import (
	"context"

	"github.com/Dosada05/tournament-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() PairingGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GeneratePairings строит пары раунда методом круга.
// Первый участник (по посеву) закреплен, остальные образуют перевернутый круг,
// который для раунда r поворачивается r-1 раз. При нечетном количестве
// добавляется фиктивный слот: пара с ним становится баем.
func (g *RoundRobinGenerator) GeneratePairings(ctx context.Context, params GeneratePairingsParams) ([]*Pairing, error) {
	if err := checkFormat(g, params.Tournament, models.FormatRoundRobin); err != nil {
		return nil, err
	}

	players := SortBySeed(filterContestants(params.Contestants, isActive))
	if len(players) == 0 {
		return nil, ErrNotEnoughContestants
	}
	if len(players)%2 == 1 {
		players = append(players, nil)
	}

	round := max(params.Tournament.Round, 1)
	arrangement := circleArrangement(players, round)

	n := len(arrangement)
	pairings := make([]*Pairing, 0, n/2)
	for i := 0; i < n/2; i++ {
		a, b := arrangement[i], arrangement[n-1-i]
		if a == nil && b == nil {
			continue
		}
		pairings = append(pairings, newPairing(round, models.BracketNone, a, b))
	}
	return pairings, nil
}

// circleArrangement возвращает расстановку для раунда: голова на месте,
// на каждом повороте хвост круга переходит на вторую позицию.
func circleArrangement(players []*models.Contestant, round int) []*models.Contestant {
	n := len(players)
	circle := make([]*models.Contestant, 0, n-1)
	for i := n - 1; i >= 1; i-- {
		circle = append(circle, players[i])
	}

	if len(circle) > 0 {
		// период поворотов - длина круга
		shift := (round - 1) % len(circle)
		rotated := make([]*models.Contestant, len(circle))
		for i := range circle {
			rotated[(i+shift)%len(circle)] = circle[i]
		}
		circle = rotated
	}

	return append([]*models.Contestant{players[0]}, circle...)
}
