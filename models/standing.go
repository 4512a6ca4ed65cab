package models

import (
	"slices"

	"github.com/google/uuid"
)

// Standing - строка турнирной таблицы.
type Standing struct {
	Rank         int              `json:"rank"`
	ContestantID uuid.UUID        `json:"contestant_id"`
	Name         string           `json:"name"`
	Seed         *int             `json:"seed,omitempty"`
	Score        float64          `json:"score"`
	Played       int              `json:"played"`
	Won          int              `json:"won"`
	Drawn        int              `json:"drawn"`
	Lost         int              `json:"lost"`
	Active       bool             `json:"active"`
	Status       ContestantStatus `json:"status"`
}

// BuildStandings сортирует участников по очкам. Участники с равными очками
// делят место (1, 1, 3 ...).
func BuildStandings(contestants []*Contestant) []Standing {
	sorted := slices.Clone(contestants)
	slices.SortStableFunc(sorted, CompareByStanding)

	standings := make([]Standing, 0, len(sorted))
	for i, c := range sorted {
		rank := i + 1
		if i > 0 && sorted[i-1].Score == c.Score {
			rank = standings[i-1].Rank
		}
		standings = append(standings, Standing{
			Rank:         rank,
			ContestantID: c.ID,
			Name:         c.Name,
			Seed:         c.Seed,
			Score:        c.Score,
			Played:       c.Played,
			Won:          c.Won,
			Drawn:        c.Drawn,
			Lost:         c.Lost,
			Active:       c.Active,
			Status:       c.Status,
		})
	}
	return standings
}
