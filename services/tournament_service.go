package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const (
	maxTournamentNameLength = 255
	maxContestantNameLength = 100
)

type TournamentService struct {
	*core
}

type CreateTournamentInput struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type AddContestantInput struct {
	Name string `json:"name"`
	Seed *int   `json:"seed"`
}

// PairingsQuery. Bracket нужен только для double elimination (по умолчанию winners).
// Strategy позволяет явно выбрать генератор; он обязан совпадать с форматом турнира.
type PairingsQuery struct {
	Bracket  string
	Strategy string
}

type PairingsView struct {
	TournamentID uuid.UUID           `json:"tournament_id"`
	Strategy     string              `json:"strategy"`
	Bracket      models.Bracket      `json:"bracket,omitempty"`
	Round        int                 `json:"round"`
	Pairings     []*brackets.Pairing `json:"pairings"`
}

type TournamentData struct {
	Tournament  *models.Tournament   `json:"tournament"`
	Contestants []*models.Contestant `json:"contestants"`
	Matches     []*models.Match      `json:"matches"`
	Standings   []models.Standing    `json:"standings"`
}

func validateCreateTournament(input CreateTournamentInput) (string, models.Format, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", "", ErrTournamentNameRequired
	}
	if utf8.RuneCountInString(name) > maxTournamentNameLength {
		return "", "", ErrTournamentNameTooLong
	}
	format, err := models.ParseFormat(input.Format)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrTournamentInvalidFormat, input.Format)
	}
	if input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		return "", "", ErrTournamentDatesRequired
	}
	if !input.EndsAt.After(input.StartsAt) {
		return "", "", ErrTournamentInvalidDateRange
	}
	return name, format, nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name, format, err := validateCreateTournament(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.Tournament{
		Name:      name,
		Format:    format,
		Status:    models.StatusPending,
		StartsAt:  input.StartsAt.UTC(),
		EndsAt:    input.EndsAt.UTC(),
		Round:     1,
		Outcome:   models.OutcomeNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if format == models.FormatDoubleElimination {
		t.LosersRound = 1
	}

	if err := s.tournaments.Create(ctx, nil, t); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", t.ID.String()),
		slog.String("format", string(t.Format)))
	return t, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	t, err := s.tournaments.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return t, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, statuses []models.TournamentStatus, limit, offset int) ([]*models.Tournament, error) {
	for _, status := range statuses {
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
	}
	list, err := s.tournaments.List(ctx, nil, repositories.ListTournamentsFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return list, nil
}

// AddContestant регистрирует участника. В форматах на выбывание сетка строится
// по посеву один раз, поэтому после первого матча регистрация закрыта.
func (s *TournamentService) AddContestant(ctx context.Context, tournamentID uuid.UUID, input AddContestantInput) (*models.Contestant, error) {
	name := models.NormalizeName(input.Name)
	if name == "" {
		return nil, ErrContestantNameRequired
	}
	if utf8.RuneCountInString(name) > maxContestantNameLength {
		return nil, ErrContestantNameTooLong
	}
	if input.Seed != nil && *input.Seed < 1 {
		return nil, ErrContestantInvalidSeed
	}

	var contestant *models.Contestant
	_, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		t := m.tournament
		if err := requireOpen(t); err != nil {
			return err
		}
		if t.Format.IsElimination() {
			recorded, err := s.matches.ListByTournament(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			if len(recorded) > 0 {
				return ErrRegistrationClosed
			}
		}

		now := s.now()
		contestant = &models.Contestant{
			TournamentID: t.ID,
			Name:         name,
			Seed:         input.Seed,
			Active:       true,
			Status:       models.InitialContestantStatus(t.Format),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.contestants.Create(ctx, tx, contestant); err != nil {
			return handleRepositoryError(err)
		}
		m.emit(EventContestantAdded, contestant)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contestant, nil
}

// WithdrawContestant снимает участника с турнира. Снятие может закрыть раунд
// или оставить единственного выжившего, поэтому проверки повторяются.
func (s *TournamentService) WithdrawContestant(ctx context.Context, tournamentID uuid.UUID, name string) (*models.Contestant, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return nil, ErrContestantNameRequired
	}

	var contestant *models.Contestant
	_, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		t := m.tournament
		if err := requireOpen(t); err != nil {
			return err
		}

		var err error
		contestant, err = s.lookupContestant(ctx, tx, t.ID, name)
		if err != nil {
			return err
		}
		if !contestant.Active {
			return fmt.Errorf("%w: %q", ErrContestantInactive, contestant.Name)
		}

		contestant.Deactivate(models.ContestantWithdrawn)
		contestant.UpdatedAt = s.now()
		if err := s.contestants.Update(ctx, tx, contestant); err != nil {
			return handleRepositoryError(err)
		}
		m.emit(EventContestantWithdrawn, contestant)

		if t.Status == models.StatusActive {
			_, err = s.afterResult(ctx, tx, m)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return contestant, nil
}

// CancelTournament отменяет турнир и безвозвратно удаляет его матчи.
func (s *TournamentService) CancelTournament(ctx context.Context, tournamentID uuid.UUID) (*models.Tournament, error) {
	var deleted int64
	m, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		if err := s.transition(m, models.StatusCanceled); err != nil {
			return err
		}
		var err error
		deleted, err = s.matches.DeleteByTournament(ctx, tx, m.tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to discard matches: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament canceled",
		slog.String("tournament_id", tournamentID.String()),
		slog.Int64("matches_discarded", deleted))
	return m.tournament, nil
}

// FinishTournament принудительно завершает активный турнир по очкам.
func (s *TournamentService) FinishTournament(ctx context.Context, tournamentID uuid.UUID) (*models.Tournament, error) {
	m, err := s.mutate(ctx, tournamentID, func(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
		if err := requireActive(m.tournament); err != nil {
			return err
		}
		return s.completeByScore(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	return m.tournament, nil
}

// AutoUpdateTournamentStatusesByDates применяет переходы по расписанию
// ко всем незавершенным турнирам. Ошибка одного турнира не останавливает остальные.
func (s *TournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	open, err := s.tournaments.List(ctx, nil, repositories.ListTournamentsFilter{
		Statuses: []models.TournamentStatus{models.StatusPending, models.StatusActive},
	})
	if err != nil {
		return fmt.Errorf("failed to list open tournaments: %w", err)
	}

	now := s.now()
	var errs []error
	changed := 0
	for _, t := range open {
		if t.StatusAt(now) == t.Status {
			continue
		}
		if err := s.syncStatus(ctx, t.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to update tournament status",
				slog.String("tournament_id", t.ID.String()),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("tournament %s: %w", t.ID, err))
			continue
		}
		changed++
	}

	if changed > 0 {
		s.logger.InfoContext(ctx, "tournament statuses updated by schedule", slog.Int("count", changed))
	}
	return errors.Join(errs...)
}

func (s *TournamentService) syncStatus(ctx context.Context, tournamentID uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, tournamentID)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.run(ctx, tournamentID, s.applyClock)
	return err
}

func (s *TournamentService) GetStandings(ctx context.Context, tournamentID uuid.UUID) ([]models.Standing, error) {
	if _, err := s.tournaments.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	contestants, err := s.contestants.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	return models.BuildStandings(contestants), nil
}

// GetTournamentData загружает турнир, участников и матчи параллельно.
func (s *TournamentService) GetTournamentData(ctx context.Context, tournamentID uuid.UUID) (*TournamentData, error) {
	data := &TournamentData{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournaments.GetByID(gCtx, nil, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		data.Tournament = t
		return nil
	})
	g.Go(func() error {
		contestants, err := s.contestants.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list contestants: %w", err)
		}
		data.Contestants = contestants
		return nil
	})
	g.Go(func() error {
		matches, err := s.matches.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}
		data.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Standings = models.BuildStandings(data.Contestants)
	return data, nil
}

// GetPairings строит пары ближайшего раунда. Чтение выполняется без блокировки.
func (s *TournamentService) GetPairings(ctx context.Context, tournamentID uuid.UUID, query PairingsQuery) (*PairingsView, error) {
	t, err := s.tournaments.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if err := requireOpen(t); err != nil {
		return nil, err
	}

	bracket := models.BracketNone
	if t.Format == models.FormatDoubleElimination {
		bracket = models.BracketWinners
		if query.Bracket != "" {
			bracket, err = models.ParseBracket(query.Bracket)
			if err != nil || bracket == models.BracketNone {
				return nil, fmt.Errorf("%w: %q", ErrInvalidBracket, query.Bracket)
			}
		}
	}

	strategy := t.Format
	if query.Strategy != "" {
		strategy, err = models.ParseFormat(query.Strategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidFormat, query.Strategy)
		}
	}
	generator, err := brackets.NewGenerator(strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidFormat, query.Strategy)
	}

	contestants, err := s.contestants.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	history, err := s.matches.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	pairings, err := generator.GeneratePairings(ctx, brackets.GeneratePairingsParams{
		Tournament:  t,
		Bracket:     bracket,
		Contestants: contestants,
		History:     history,
	})
	switch {
	case errors.Is(err, brackets.ErrFormatMismatch):
		return nil, fmt.Errorf("%w: %s strategy cannot pair a %s tournament", ErrInvalidState, generator.GetName(), t.Format)
	case errors.Is(err, brackets.ErrBracketWaiting), errors.Is(err, brackets.ErrNotEnoughContestants):
		return nil, fmt.Errorf("%w: %v", ErrPairingUnavailable, err)
	case err != nil:
		return nil, fmt.Errorf("failed to generate pairings: %w", err)
	}

	return &PairingsView{
		TournamentID: t.ID,
		Strategy:     generator.GetName(),
		Bracket:      bracket,
		Round:        t.CurrentRound(bracket),
		Pairings:     pairings,
	}, nil
}
