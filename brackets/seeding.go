package brackets

import (
	"bytes"
	"math"
	"slices"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
)

// CalcBracketSize округляет количество участников вверх до степени двойки.
func CalcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^log2
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// GenerateRound1Pairs возвращает пары индексов посева для первого раунда
// (0 против последнего, ...). Индексы >= числа участников - пустые слоты.
func GenerateRound1Pairs(count int) [][2]int {
	bracketSize := CalcBracketSize(count)
	if bracketSize < 2 {
		return [][2]int{}
	}

	order := []int{0}
	for len(order) < bracketSize {
		next := make([]int, 0, len(order)*2)
		currentCount := len(order) * 2
		for _, seed := range order {
			next = append(next, seed, (currentCount-1)-seed)
		}
		order = next
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(order); i += 2 {
		pairs = append(pairs, [2]int{order[i], order[i+1]})
	}
	return pairs
}

func SortBySeed(contestants []*models.Contestant) []*models.Contestant {
	sorted := slices.Clone(contestants)
	slices.SortStableFunc(sorted, models.CompareBySeed)
	return sorted
}

func SortByStanding(contestants []*models.Contestant) []*models.Contestant {
	sorted := slices.Clone(contestants)
	slices.SortStableFunc(sorted, models.CompareByStanding)
	return sorted
}

func filterContestants(contestants []*models.Contestant, keep func(*models.Contestant) bool) []*models.Contestant {
	result := make([]*models.Contestant, 0, len(contestants))
	for _, c := range contestants {
		if c != nil && keep(c) {
			result = append(result, c)
		}
	}
	return result
}

func isActive(c *models.Contestant) bool {
	return c.Active
}

func filterMatches(history []*models.Match, keep func(*models.Match) bool) []*models.Match {
	result := make([]*models.Match, 0, len(history))
	for _, m := range history {
		if m != nil && keep(m) {
			result = append(result, m)
		}
	}
	return result
}

type pairKey [2]uuid.UUID

func newPairKey(a, b uuid.UUID) pairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

// playedPairs - множество пар, уже встречавшихся (в любом порядке).
func playedPairs(history []*models.Match) map[pairKey]bool {
	played := make(map[pairKey]bool, len(history))
	for _, m := range history {
		if m.Player2ID == nil {
			continue
		}
		played[newPairKey(m.Player1ID, *m.Player2ID)] = true
	}
	return played
}

// appearedInRound - участники, у которых уже есть матч или бай в раунде.
func appearedInRound(history []*models.Match, round int, bracket models.Bracket) map[uuid.UUID]bool {
	appeared := make(map[uuid.UUID]bool)
	for _, m := range history {
		if m.Round != round || m.Bracket != bracket {
			continue
		}
		appeared[m.Player1ID] = true
		if m.Player2ID != nil {
			appeared[*m.Player2ID] = true
		}
	}
	return appeared
}

// foldPairs сводит лучшего с худшим; при нечетном количестве лучший получает бай.
func foldPairs(round int, bracket models.Bracket, pool []*models.Contestant) []*Pairing {
	pairings := make([]*Pairing, 0, (len(pool)+1)/2)
	if len(pool)%2 == 1 {
		pairings = append(pairings, newPairing(round, bracket, pool[0], nil))
		pool = pool[1:]
	}
	for i := 0; i < len(pool)/2; i++ {
		pairings = append(pairings, newPairing(round, bracket, pool[i], pool[len(pool)-1-i]))
	}
	return pairings
}
