package models

import (
	"cmp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

type ContestantStatus string

const (
	ContestantCompeting      ContestantStatus = "competing"
	ContestantWinnersBracket ContestantStatus = "winners_bracket"
	ContestantLosersBracket  ContestantStatus = "losers_bracket"
	ContestantEliminated     ContestantStatus = "eliminated"
	ContestantWithdrawn      ContestantStatus = "withdrawn"
	ContestantChampion       ContestantStatus = "champion"
	ContestantLost           ContestantStatus = "lost"
	ContestantTied           ContestantStatus = "tied"
)

// Contestant - участник турнира. Имя уникально в пределах турнира.
type Contestant struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	TournamentID uuid.UUID        `json:"tournament_id" db:"tournament_id"`
	Name         string           `json:"name" db:"name"`
	Seed         *int             `json:"seed,omitempty" db:"seed"`
	Score        float64          `json:"score" db:"score"`
	Played       int              `json:"played" db:"played"`
	Won          int              `json:"won" db:"won"`
	Drawn        int              `json:"drawn" db:"drawn"`
	Lost         int              `json:"lost" db:"lost"`
	Active       bool             `json:"active" db:"active"`
	Status       ContestantStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// InitialContestantStatus - статус нового участника для формата.
func InitialContestantStatus(format Format) ContestantStatus {
	if format == FormatDoubleElimination {
		return ContestantWinnersBracket
	}
	return ContestantCompeting
}

// NormalizeName приводит имя к NFC и схлопывает пробелы.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

func (c *Contestant) RecordWin() {
	c.Score++
	c.Won++
	c.Played++
}

func (c *Contestant) RecordDraw() {
	c.Score += 0.5
	c.Drawn++
	c.Played++
}

func (c *Contestant) RecordLoss() {
	c.Lost++
	c.Played++
}

// Deactivate выводит участника из турнира. Повторная активация не предусмотрена.
func (c *Contestant) Deactivate(status ContestantStatus) {
	c.Active = false
	c.Status = status
}

// Bracket возвращает сетку, в которой сейчас находится участник.
func (c *Contestant) Bracket() Bracket {
	switch c.Status {
	case ContestantWinnersBracket:
		return BracketWinners
	case ContestantLosersBracket:
		return BracketLosers
	default:
		return BracketNone
	}
}

func (c *Contestant) IsConsistent() bool {
	return c.Played == c.Won+c.Drawn+c.Lost && c.Score == float64(c.Won)+0.5*float64(c.Drawn)
}

// CompareBySeed: сначала посеянные по возрастанию, непосеянные в конце, затем по имени.
func CompareBySeed(a, b *Contestant) int {
	if c := compareSeeds(a.Seed, b.Seed); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}

// CompareByStanding: очки по убыванию, затем посев и имя.
func CompareByStanding(a, b *Contestant) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return CompareBySeed(a, b)
}

func compareSeeds(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return cmp.Compare(*a, *b)
	}
}
