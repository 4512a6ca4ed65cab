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
	ErrContestantNotFound     = errors.New("contestant not found")
	ErrContestantNameConflict = errors.New("contestant name is already registered in this tournament")
)

type ContestantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, contestant *models.Contestant) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Contestant, error)
	GetByName(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, name string) (*models.Contestant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Contestant, error)
	// ListActive возвращает активных участников; для BracketWinners/BracketLosers
	// только находящихся в соответствующей сетке.
	ListActive(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, bracket models.Bracket) ([]*models.Contestant, error)
	Update(ctx context.Context, exec SQLExecutor, contestant *models.Contestant) error
}

type sqlContestantRepository struct {
	db *sqlx.DB
}

func NewContestantRepository(db *sqlx.DB) ContestantRepository {
	return &sqlContestantRepository{db: db}
}

func (r *sqlContestantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const contestantColumns = `id, tournament_id, name, seed, score, played, won, drawn, lost, active, status, created_at, updated_at`

func (r *sqlContestantRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Contestant) error {
	executor := r.getExecutor(exec)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO contestants (` + contestantColumns + `)
		VALUES (:id, :tournament_id, :name, :seed, :score, :played, :won, :drawn, :lost, :active, :status, :created_at, :updated_at)`

	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if _, err := sqlx.NamedExecContext(ctx, executor, query, c); err != nil {
		return r.handleContestantError(err)
	}
	return nil
}

func (r *sqlContestantRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Contestant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE id = ?`

	c := &models.Contestant{}
	if err := getContext(ctx, executor, c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestantNotFound
		}
		return nil, fmt.Errorf("failed to get contestant %s: %w", id, err)
	}
	return c, nil
}

func (r *sqlContestantRepository) GetByName(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, name string) (*models.Contestant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE tournament_id = ? AND name = ?`

	c := &models.Contestant{}
	if err := getContext(ctx, executor, c, query, tournamentID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestantNotFound
		}
		return nil, fmt.Errorf("failed to get contestant %q: %w", name, err)
	}
	return c, nil
}

func (r *sqlContestantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Contestant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE tournament_id = ? ORDER BY created_at, name`

	contestants := []*models.Contestant{}
	if err := selectContext(ctx, executor, &contestants, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	return contestants, nil
}

func (r *sqlContestantRepository) ListActive(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, bracket models.Bracket) ([]*models.Contestant, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + contestantColumns + ` FROM contestants WHERE tournament_id = ? AND active = ?`
	args := []interface{}{tournamentID, true}

	switch bracket {
	case models.BracketWinners:
		query += ` AND status = ?`
		args = append(args, models.ContestantWinnersBracket)
	case models.BracketLosers:
		query += ` AND status = ?`
		args = append(args, models.ContestantLosersBracket)
	}
	query += ` ORDER BY created_at, name`

	contestants := []*models.Contestant{}
	if err := selectContext(ctx, executor, &contestants, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list active contestants: %w", err)
	}
	return contestants, nil
}

func (r *sqlContestantRepository) Update(ctx context.Context, exec SQLExecutor, c *models.Contestant) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE contestants
		SET seed = :seed, score = :score, played = :played, won = :won, drawn = :drawn, lost = :lost,
			active = :active, status = :status, updated_at = :updated_at
		WHERE id = :id`

	c.UpdatedAt = c.UpdatedAt.UTC()
	result, err := sqlx.NamedExecContext(ctx, executor, query, c)
	if err != nil {
		return r.handleContestantError(err)
	}
	return checkAffectedRows(result, ErrContestantNotFound)
}

func (r *sqlContestantRepository) handleContestantError(err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrContestantNameConflict
	case isForeignKeyViolation(err):
		return ErrTournamentNotFound
	}
	return fmt.Errorf("contestant query failed: %w", err)
}
