package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentConflict        = errors.New("tournament already exists")
	ErrTournamentVersionConflict = errors.New("tournament was modified concurrently")
)

type ListTournamentsFilter struct {
	Statuses []models.TournamentStatus
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// Update сохраняет турнир, если версия в БД совпадает с tournament.Version,
	// и увеличивает версию.
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
}

type sqlTournamentRepository struct {
	db *sqlx.DB
}

func NewTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &sqlTournamentRepository{db: db}
}

func (r *sqlTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, format, status, starts_at, ends_at, current_round, losers_round, outcome, version, created_at, updated_at`

func (r *sqlTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Version == 0 {
		t.Version = 1
	}

	query := `
		INSERT INTO tournaments (` + tournamentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := execContext(ctx, executor, query,
		t.ID, t.Name, t.Format, t.Status, t.StartsAt.UTC(), t.EndsAt.UTC(),
		t.Round, t.LosersRound, t.Outcome, t.Version, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTournamentConflict
		}
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`

	t := &models.Tournament{}
	if err := getContext(ctx, executor, t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *sqlTournamentRepository) List(ctx context.Context, exec SQLExecutor, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	args := []interface{}{}

	if len(filter.Statuses) > 0 {
		inQuery, inArgs, err := sqlx.In(` WHERE status IN (?)`, filter.Statuses)
		if err != nil {
			return nil, fmt.Errorf("failed to build status filter: %w", err)
		}
		query += inQuery
		args = append(args, inArgs...)
	}

	query += ` ORDER BY starts_at DESC, created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	tournaments := []*models.Tournament{}
	if err := selectContext(ctx, executor, &tournaments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET name = ?, status = ?, starts_at = ?, ends_at = ?, current_round = ?, losers_round = ?,
			outcome = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	result, err := execContext(ctx, executor, query,
		t.Name, t.Status, t.StartsAt.UTC(), t.EndsAt.UTC(), t.Round, t.LosersRound,
		t.Outcome, t.UpdatedAt.UTC(), t.ID, t.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update tournament %s: %w", t.ID, err)
	}

	if err := checkAffectedRows(result, ErrTournamentVersionConflict); err != nil {
		if !errors.Is(err, ErrTournamentVersionConflict) {
			return err
		}
		// различаем "нет такого турнира" и "версия устарела"
		if _, getErr := r.GetByID(ctx, executor, t.ID); errors.Is(getErr, ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return ErrTournamentVersionConflict
	}

	t.Version++
	return nil
}
