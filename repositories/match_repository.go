package repositories

import (
	"context"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MatchRepository хранит историю матчей. Матчи только добавляются;
// удаляются целиком вместе с отменой турнира.
type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int, bracket models.Bracket) ([]*models.Match, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int64, error)
}

type sqlMatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqlMatchRepository{db: db}
}

func (r *sqlMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, bracket, player1_id, player2_id, winner_id, loser_id, is_draw, score, status, completed_at`

func (r *sqlMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	executor := r.getExecutor(exec)
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CompletedAt = m.CompletedAt.UTC()

	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES (:id, :tournament_id, :round, :bracket, :player1_id, :player2_id, :winner_id, :loser_id, :is_draw, :score, :status, :completed_at)`

	if _, err := sqlx.NamedExecContext(ctx, executor, query, m); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("match references unknown tournament or contestant: %w", ErrContestantNotFound)
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *sqlMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ? ORDER BY round, bracket, completed_at`

	matches := []*models.Match{}
	if err := selectContext(ctx, executor, &matches, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int, bracket models.Bracket) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ? AND round = ? AND bracket = ? ORDER BY completed_at`

	matches := []*models.Match{}
	if err := selectContext(ctx, executor, &matches, query, tournamentID, round, bracket); err != nil {
		return nil, fmt.Errorf("failed to list matches for round %d: %w", round, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int64, error) {
	executor := r.getExecutor(exec)
	result, err := execContext(ctx, executor, `DELETE FROM matches WHERE tournament_id = ?`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches: %w", err)
	}
	return result.RowsAffected()
}
