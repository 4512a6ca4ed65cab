package services

import (
	"context"
	"math/bits"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type RoundService struct {
	*core
}

// TotalRoundsNeeded возвращает число раундов для форматов с фиксированной длиной.
// Для форматов на выбывание длина не задается (ok = false).
func TotalRoundsNeeded(format models.Format, contestants int) (int, bool) {
	switch format {
	case models.FormatRoundRobin:
		if contestants < 2 {
			return 1, true
		}
		if contestants%2 == 0 {
			return contestants - 1, true
		}
		return contestants, true
	case models.FormatSwiss:
		if contestants <= 1 {
			return 1, true
		}
		return bits.Len(uint(contestants - 1)), true
	default:
		return 0, false
	}
}

// CheckRoundCompletion проверяет, закрыт ли текущий раунд, и при необходимости
// продвигает счетчик (или завершает турнир). Повторный вызов без новых
// результатов ничего не меняет.
func (s *RoundService) CheckRoundCompletion(ctx context.Context, tournamentID uuid.UUID) (bool, error) {
	var advanced bool
	_, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		if m.tournament.Status != models.StatusActive {
			return nil
		}
		var err error
		advanced, err = s.evaluateRounds(ctx, tx, m)
		return err
	})
	if err != nil {
		return false, err
	}
	return advanced, nil
}

// afterResult вызывается после каждого записанного результата или bye.
func (c *core) afterResult(ctx context.Context, tx *sqlx.Tx, m *mutation) (bool, error) {
	t := m.tournament
	if t.Status != models.StatusActive {
		return false, nil
	}

	active, err := c.contestants.ListActive(ctx, tx, t.ID, models.BracketNone)
	if err != nil {
		return false, err
	}
	switch {
	case len(active) == 0:
		t.Outcome = models.OutcomeNone
		return false, c.transition(m, models.StatusCompleted)
	case len(active) == 1 && t.Format.IsElimination():
		return false, c.completeWithChampion(ctx, tx, m, active[0])
	}

	return c.evaluateRounds(ctx, tx, m)
}

func (c *core) evaluateRounds(ctx context.Context, tx *sqlx.Tx, m *mutation) (bool, error) {
	advanced := false
	for _, bracket := range m.tournament.Brackets() {
		if m.tournament.Status != models.StatusActive {
			break
		}
		ok, err := c.evaluateBracket(ctx, tx, m, bracket)
		if err != nil {
			return advanced, err
		}
		advanced = advanced || ok
	}
	return advanced, nil
}

// evaluateBracket продвигает раунд сетки, когда каждый активный участник
// этой сетки сыграл (или получил bye) в текущем раунде.
func (c *core) evaluateBracket(ctx context.Context, tx *sqlx.Tx, m *mutation, bracket models.Bracket) (bool, error) {
	t := m.tournament

	relevant, err := c.contestants.ListActive(ctx, tx, t.ID, bracket)
	if err != nil {
		return false, err
	}
	if len(relevant) == 0 {
		return false, nil
	}

	if t.Format == models.FormatDoubleElimination && bracket == models.BracketLosers {
		winners, err := c.contestants.ListActive(ctx, tx, t.ID, models.BracketWinners)
		if err != nil {
			return false, err
		}
		if !brackets.LosersRoundOpen(t, len(winners)) {
			return false, nil
		}
		history, err := c.matches.ListByTournament(ctx, tx, t.ID)
		if err != nil {
			return false, err
		}
		// выпавшие из верхней сетки позже ждут своего раунда входа
		relevant = brackets.EligibleLosers(t, len(winners), relevant, history)
		if len(relevant) == 0 {
			return c.advanceRound(ctx, m, bracket), nil
		}
	}

	round := t.CurrentRound(bracket)
	played, err := c.matches.ListByRound(ctx, tx, t.ID, round, bracket)
	if err != nil {
		return false, err
	}
	appeared := make(map[uuid.UUID]bool, len(played)*2)
	for _, match := range played {
		appeared[match.Player1ID] = true
		if match.Player2ID != nil {
			appeared[*match.Player2ID] = true
		}
	}
	for _, contestant := range relevant {
		if !appeared[contestant.ID] {
			return false, nil
		}
	}

	if total, ok := TotalRoundsNeeded(t.Format, len(relevant)); ok && round+1 > total {
		// счетчик остается на последнем сыгранном раунде
		return false, c.completeByScore(ctx, tx, m)
	}

	return c.advanceRound(ctx, m, bracket), nil
}

func (c *core) advanceRound(ctx context.Context, m *mutation, bracket models.Bracket) bool {
	t := m.tournament
	t.AdvanceRound(bracket)
	m.dirty = true
	m.emit(EventRoundAdvanced, RoundAdvancedPayload{Bracket: string(bracket), Round: t.CurrentRound(bracket)})
	c.logger.InfoContext(ctx, "round advanced",
		"tournament_id", t.ID.String(),
		"bracket", string(bracket),
		"round", t.CurrentRound(bracket))
	return true
}
