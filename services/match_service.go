package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	*core
}

type SubmitResultInput struct {
	TournamentID uuid.UUID
	Player1      string
	Player2      string
	Score        string
	IsDraw       bool
}

// ResultOutcome - итог записи результата или бая.
type ResultOutcome struct {
	Match         *models.Match      `json:"match"`
	Tournament    *models.Tournament `json:"tournament"`
	RoundAdvanced bool               `json:"round_advanced"`
	Completed     bool               `json:"completed"`
}

type parsedScore struct {
	raw    string
	first  int
	second int
	set    bool
}

// parseScore разбирает счет вида "2-1".
func parseScore(s string) (parsedScore, error) {
	s = strings.TrimSpace(s)
	left, right, ok := strings.Cut(s, "-")
	if !ok {
		return parsedScore{}, fmt.Errorf("%w: got %q", ErrMalformedScore, s)
	}
	first, err1 := strconv.Atoi(strings.TrimSpace(left))
	second, err2 := strconv.Atoi(strings.TrimSpace(right))
	if err1 != nil || err2 != nil || first < 0 || second < 0 {
		return parsedScore{}, fmt.Errorf("%w: got %q", ErrMalformedScore, s)
	}
	return parsedScore{raw: fmt.Sprintf("%d-%d", first, second), first: first, second: second, set: true}, nil
}

func validateResult(input SubmitResultInput) (string, string, parsedScore, error) {
	p1 := models.NormalizeName(input.Player1)
	p2 := models.NormalizeName(input.Player2)
	if p1 == "" || p2 == "" {
		return "", "", parsedScore{}, ErrContestantNameRequired
	}
	if p1 == p2 {
		return "", "", parsedScore{}, ErrSamePlayer
	}

	if input.IsDraw && strings.TrimSpace(input.Score) == "" {
		return p1, p2, parsedScore{}, nil
	}
	score, err := parseScore(input.Score)
	if err != nil {
		return "", "", parsedScore{}, err
	}
	switch {
	case input.IsDraw && score.first != score.second:
		return "", "", parsedScore{}, ErrDrawScoreMismatch
	case !input.IsDraw && score.first == score.second:
		return "", "", parsedScore{}, ErrTiedScoreWithoutDraw
	}
	return p1, p2, score, nil
}

// SubmitResult записывает результат матча между двумя участниками текущего раунда.
// Матч, статистика, последствия поражения, досрочное завершение и проверка
// раунда выполняются в одной транзакции.
func (s *MatchService) SubmitResult(ctx context.Context, input SubmitResultInput) (*ResultOutcome, error) {
	name1, name2, score, err := validateResult(input)
	if err != nil {
		return nil, err
	}

	outcome := &ResultOutcome{}
	m, err := s.mutate(ctx, input.TournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		t := m.tournament
		if err := requireActive(t); err != nil {
			return err
		}

		player1, err := s.lookupContestant(ctx, tx, t.ID, name1)
		if err != nil {
			return err
		}
		player2, err := s.lookupContestant(ctx, tx, t.ID, name2)
		if err != nil {
			return err
		}
		if player1.ID == player2.ID {
			return ErrSamePlayer
		}
		for _, p := range []*models.Contestant{player1, player2} {
			if !p.Active {
				return fmt.Errorf("%w: %q", ErrContestantInactive, p.Name)
			}
		}
		if input.IsDraw && !t.Format.AllowsDraws() {
			return ErrDrawNotAllowed
		}

		bracket, err := s.matchBracket(ctx, tx, t, player1, player2)
		if err != nil {
			return err
		}
		round := t.CurrentRound(bracket)
		for _, p := range []*models.Contestant{player1, player2} {
			if err := s.ensureFreeThisRound(ctx, tx, t, p); err != nil {
				return err
			}
		}
		if bracket == models.BracketLosers {
			if err := s.ensureEnteredLosersRound(ctx, tx, t, player1, player2); err != nil {
				return err
			}
		}

		now := s.now()
		match := &models.Match{
			TournamentID: t.ID,
			Round:        round,
			Bracket:      bracket,
			Player1ID:    player1.ID,
			Player2ID:    &player2.ID,
			IsDraw:       input.IsDraw,
			Status:       models.MatchStatusCompleted,
			CompletedAt:  now,
		}
		if score.set {
			match.Score = &score.raw
		}

		var loser *models.Contestant
		switch {
		case input.IsDraw:
			player1.RecordDraw()
			player2.RecordDraw()
		case score.first > score.second:
			player1.RecordWin()
			player2.RecordLoss()
			match.WinnerID, match.LoserID = &player1.ID, &player2.ID
			loser = player2
		default:
			player2.RecordWin()
			player1.RecordLoss()
			match.WinnerID, match.LoserID = &player2.ID, &player1.ID
			loser = player1
		}
		if loser != nil {
			applyLossConsequence(t.Format, loser)
		}

		if err := s.matches.Create(ctx, tx, match); err != nil {
			return fmt.Errorf("failed to record match: %w", err)
		}
		for _, p := range []*models.Contestant{player1, player2} {
			p.UpdatedAt = now
			if err := s.contestants.Update(ctx, tx, p); err != nil {
				return handleRepositoryError(err)
			}
		}
		m.emit(EventMatchRecorded, match)

		outcome.Match = match
		outcome.RoundAdvanced, err = s.afterResult(ctx, tx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match result recorded",
		slog.String("tournament_id", input.TournamentID.String()),
		slog.String("match_id", outcome.Match.ID.String()),
		slog.Int("round", outcome.Match.Round),
		slog.Bool("draw", outcome.Match.IsDraw))

	outcome.Tournament = m.tournament
	outcome.Completed = m.tournament.Status == models.StatusCompleted
	return outcome, nil
}

// RegisterBye засчитывает участнику автоматическую победу в текущем раунде.
func (s *MatchService) RegisterBye(ctx context.Context, tournamentID uuid.UUID, playerName string) (*ResultOutcome, error) {
	name := models.NormalizeName(playerName)
	if name == "" {
		return nil, ErrContestantNameRequired
	}

	outcome := &ResultOutcome{}
	m, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		t := m.tournament
		if err := requireActive(t); err != nil {
			return err
		}

		player, err := s.lookupContestant(ctx, tx, t.ID, name)
		if err != nil {
			return err
		}
		if !player.Active {
			return fmt.Errorf("%w: %q", ErrContestantInactive, player.Name)
		}
		if err := s.ensureFreeThisRound(ctx, tx, t, player); err != nil {
			return err
		}
		bracket := bracketOf(t, player)
		if bracket == models.BracketLosers {
			if err := s.ensureEnteredLosersRound(ctx, tx, t, player); err != nil {
				return err
			}
		}

		now := s.now()
		match := &models.Match{
			TournamentID: t.ID,
			Round:        t.CurrentRound(bracket),
			Bracket:      bracket,
			Player1ID:    player.ID,
			WinnerID:     &player.ID,
			Status:       models.MatchStatusBye,
			CompletedAt:  now,
		}
		if err := s.matches.Create(ctx, tx, match); err != nil {
			return fmt.Errorf("failed to record bye: %w", err)
		}

		player.RecordWin()
		player.UpdatedAt = now
		if err := s.contestants.Update(ctx, tx, player); err != nil {
			return handleRepositoryError(err)
		}
		m.emit(EventByeRegistered, match)

		outcome.Match = match
		outcome.RoundAdvanced, err = s.afterResult(ctx, tx, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome.Tournament = m.tournament
	outcome.Completed = m.tournament.Status == models.StatusCompleted
	return outcome, nil
}

func (s *MatchService) ListMatches(ctx context.Context, tournamentID uuid.UUID) ([]*models.Match, error) {
	if _, err := s.tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matches.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// bracketOf - сетка, в которой участник играет свой следующий матч.
func bracketOf(t *models.Tournament, c *models.Contestant) models.Bracket {
	if t.Format != models.FormatDoubleElimination {
		return models.BracketNone
	}
	return c.Bracket()
}

// matchBracket определяет сетку матча. Участники разных сеток могут встретиться
// только в гранд-финале, который записывается в верхнюю сетку.
func (s *MatchService) matchBracket(ctx context.Context, tx *sqlx.Tx, t *models.Tournament, a, b *models.Contestant) (models.Bracket, error) {
	ba, bb := bracketOf(t, a), bracketOf(t, b)
	if ba == bb {
		return ba, nil
	}

	winners, err := s.contestants.ListActive(ctx, tx, t.ID, models.BracketWinners)
	if err != nil {
		return "", err
	}
	losers, err := s.contestants.ListActive(ctx, tx, t.ID, models.BracketLosers)
	if err != nil {
		return "", err
	}
	if len(winners) == 1 && len(losers) == 1 {
		return models.BracketWinners, nil
	}
	return "", fmt.Errorf("%w: %q is in %s, %q is in %s", ErrDifferentBrackets, a.Name, ba, b.Name, bb)
}

// ensureFreeThisRound проверяет, что у участника еще нет матча (или бая)
// в текущем раунде его сетки.
func (s *MatchService) ensureFreeThisRound(ctx context.Context, tx *sqlx.Tx, t *models.Tournament, c *models.Contestant) error {
	bracket := bracketOf(t, c)
	played, err := s.matches.ListByRound(ctx, tx, t.ID, t.CurrentRound(bracket), bracket)
	if err != nil {
		return err
	}
	for _, match := range played {
		if match.Involves(c.ID) {
			return fmt.Errorf("%w: %q in round %d", ErrAlreadyPlayedThisRound, c.Name, t.CurrentRound(bracket))
		}
	}
	return nil
}

// ensureEnteredLosersRound не дает участнику нижней сетки сыграть раньше раунда,
// в который он попадает после поражения в верхней.
func (s *MatchService) ensureEnteredLosersRound(ctx context.Context, tx *sqlx.Tx, t *models.Tournament, players ...*models.Contestant) error {
	winners, err := s.contestants.ListActive(ctx, tx, t.ID, models.BracketWinners)
	if err != nil {
		return err
	}
	history, err := s.matches.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	eligible := make(map[uuid.UUID]bool, len(players))
	for _, c := range brackets.EligibleLosers(t, len(winners), players, history) {
		eligible[c.ID] = true
	}
	for _, p := range players {
		if !eligible[p.ID] {
			return fmt.Errorf("%w: %q, losers round %d", ErrLosersRoundNotReached, p.Name, t.LosersRound)
		}
	}
	return nil
}

// applyLossConsequence применяет политику поражения формата.
func applyLossConsequence(format models.Format, loser *models.Contestant) {
	switch format {
	case models.FormatSingleElimination:
		loser.Deactivate(models.ContestantEliminated)
	case models.FormatDoubleElimination:
		if loser.Status == models.ContestantWinnersBracket {
			loser.Status = models.ContestantLosersBracket
			return
		}
		loser.Deactivate(models.ContestantEliminated)
	}
}
