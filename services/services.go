package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Dependencies struct {
	DB          *sqlx.DB
	Tournaments repositories.TournamentRepository
	Contestants repositories.ContestantRepository
	Matches     repositories.MatchRepository
	Publisher   EventPublisher
	Archiver    *StandingsArchiver
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Services - набор сервисов, разделяющих блокировки турниров.
type Services struct {
	Tournaments *TournamentService
	Matches     *MatchService
	Rounds      *RoundService
}

func New(deps Dependencies) *Services {
	c := newCore(deps)
	return &Services{
		Tournaments: &TournamentService{core: c},
		Matches:     &MatchService{core: c},
		Rounds:      &RoundService{core: c},
	}
}

type core struct {
	db          *sqlx.DB
	tournaments repositories.TournamentRepository
	contestants repositories.ContestantRepository
	matches     repositories.MatchRepository
	publisher   EventPublisher
	archiver    *StandingsArchiver
	logger      *slog.Logger
	clock       func() time.Time
	locks       *tournamentLocks
}

func newCore(deps Dependencies) *core {
	c := &core{
		db:          deps.DB,
		tournaments: deps.Tournaments,
		contestants: deps.Contestants,
		matches:     deps.Matches,
		publisher:   deps.Publisher,
		archiver:    deps.Archiver,
		logger:      deps.Logger,
		clock:       deps.Clock,
		locks:       newTournamentLocks(),
	}
	if c.publisher == nil {
		c.publisher = noopPublisher{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

func (c *core) now() time.Time {
	return c.clock().UTC()
}

// mutation - состояние одной единицы работы над турниром.
type mutation struct {
	tournament *models.Tournament
	previous   models.TournamentStatus
	dirty      bool
	events     []Event
}

func (m *mutation) emit(eventType string, payload interface{}) {
	m.events = append(m.events, Event{Type: eventType, Payload: payload})
}

type mutationFunc func(ctx context.Context, tx *sqlx.Tx, m *mutation) error

func (c *core) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.ErrorContext(ctx, "transaction rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	return fn(tx)
}

// mutate выполняет fn под блокировкой турнира в одной транзакции.
// Перед этим статус турнира синхронизируется с расписанием (отдельным коммитом,
// чтобы переход сохранился даже если fn вернет ошибку).
func (c *core) mutate(ctx context.Context, tournamentID uuid.UUID, fn mutationFunc) (*mutation, error) {
	unlock, err := c.locks.Lock(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := c.run(ctx, tournamentID, c.applyClock); err != nil {
		return nil, err
	}
	return c.run(ctx, tournamentID, fn)
}

// run требует, чтобы вызывающий держал блокировку турнира.
func (c *core) run(ctx context.Context, tournamentID uuid.UUID, fn mutationFunc) (*mutation, error) {
	var m *mutation
	err := c.withTx(ctx, func(tx *sqlx.Tx) error {
		t, err := c.tournaments.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		m = &mutation{tournament: t, previous: t.Status}

		if err := fn(ctx, tx, m); err != nil {
			return err
		}
		if m.dirty {
			t.UpdatedAt = c.now()
			if err := c.tournaments.Update(ctx, tx, t); err != nil {
				return handleRepositoryError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.afterCommit(ctx, m)
	return m, nil
}

func (c *core) afterCommit(ctx context.Context, m *mutation) {
	for _, e := range m.events {
		c.publisher.PublishTournamentEvent(m.tournament.ID, e.Type, e.Payload)
	}
	if m.previous != models.StatusCompleted && m.tournament.Status == models.StatusCompleted {
		c.logger.InfoContext(ctx, "tournament completed",
			slog.String("tournament_id", m.tournament.ID.String()),
			slog.String("outcome", string(m.tournament.Outcome)))
		c.archiveStandings(ctx, m.tournament)
	}
}

// applyClock переводит турнир в статус, положенный по расписанию.
func (c *core) applyClock(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
	t := m.tournament
	target := t.StatusAt(c.now())
	for t.Status != target {
		switch t.Status {
		case models.StatusPending:
			if err := c.transition(m, models.StatusActive); err != nil {
				return err
			}
		case models.StatusActive:
			if err := c.completeByScore(ctx, tx, m); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (c *core) transition(m *mutation, next models.TournamentStatus) error {
	t := m.tournament
	if !t.Status.CanTransitionTo(next) {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w (status %s)", ErrTournamentTerminal, t.Status)
		}
		return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, t.Status, next)
	}

	payload := StatusChangedPayload{From: string(t.Status), To: string(next)}
	if next == models.StatusCompleted {
		payload.Outcome = string(t.Outcome)
	}
	t.Status = next
	m.dirty = true
	m.emit(EventTournamentStatusChanged, payload)
	return nil
}

// completeWithChampion завершает турнир с единственным победителем.
func (c *core) completeWithChampion(ctx context.Context, tx *sqlx.Tx, m *mutation, champion *models.Contestant) error {
	champion.Status = models.ContestantChampion
	champion.UpdatedAt = c.now()
	if err := c.contestants.Update(ctx, tx, champion); err != nil {
		return handleRepositoryError(err)
	}
	m.tournament.Outcome = models.OutcomeChampion
	return c.transition(m, models.StatusCompleted)
}

// completeByScore завершает турнир по очкам: единственный лидер становится
// чемпионом, остальные активные - "lost". При дележе первого места лидеры
// получают статус tied, а турнир - исход tie (без дополнительных тай-брейков).
func (c *core) completeByScore(ctx context.Context, tx *sqlx.Tx, m *mutation) error {
	t := m.tournament
	active, err := c.contestants.ListActive(ctx, tx, t.ID, models.BracketNone)
	if err != nil {
		return err
	}

	t.Outcome = models.OutcomeNone
	if len(active) > 0 {
		best := active[0].Score
		for _, contestant := range active[1:] {
			best = max(best, contestant.Score)
		}
		leaders := 0
		for _, contestant := range active {
			if contestant.Score == best {
				leaders++
			}
		}

		now := c.now()
		for _, contestant := range active {
			switch {
			case contestant.Score == best && leaders == 1:
				contestant.Status = models.ContestantChampion
			case contestant.Score == best:
				contestant.Status = models.ContestantTied
			default:
				contestant.Status = models.ContestantLost
			}
			contestant.UpdatedAt = now
			if err := c.contestants.Update(ctx, tx, contestant); err != nil {
				return handleRepositoryError(err)
			}
		}

		t.Outcome = models.OutcomeChampion
		if leaders > 1 {
			t.Outcome = models.OutcomeTie
		}
	}
	return c.transition(m, models.StatusCompleted)
}

func requireActive(t *models.Tournament) error {
	switch t.Status {
	case models.StatusActive:
		return nil
	case models.StatusPending:
		return ErrTournamentNotStarted
	default:
		return fmt.Errorf("%w (status %s)", ErrTournamentTerminal, t.Status)
	}
}

func requireOpen(t *models.Tournament) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w (status %s)", ErrTournamentTerminal, t.Status)
	}
	return nil
}
