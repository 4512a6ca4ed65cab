package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/repositories"
)

// Виды ошибок. Конкретные ошибки оборачивают один из них,
// поэтому проверка выполняется через errors.Is(err, ErrValidation) и т.д.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("requested resource not found")
	ErrInvalidState = errors.New("operation not allowed in the current state")
	ErrConflict     = errors.New("conflict")
)

var (
	// Не найдено
	ErrTournamentNotFound = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrContestantNotFound = fmt.Errorf("%w: contestant not found", ErrNotFound)

	// Валидация
	ErrTournamentNameRequired     = fmt.Errorf("%w: tournament name is required", ErrValidation)
	ErrTournamentNameTooLong      = fmt.Errorf("%w: tournament name is too long", ErrValidation)
	ErrTournamentInvalidFormat    = fmt.Errorf("%w: unknown tournament format", ErrValidation)
	ErrTournamentDatesRequired    = fmt.Errorf("%w: tournament start and end dates are required", ErrValidation)
	ErrTournamentInvalidDateRange = fmt.Errorf("%w: tournament end date must be after start date", ErrValidation)
	ErrContestantNameRequired     = fmt.Errorf("%w: contestant name is required", ErrValidation)
	ErrContestantNameTooLong      = fmt.Errorf("%w: contestant name is too long", ErrValidation)
	ErrContestantInvalidSeed      = fmt.Errorf("%w: seed must be a positive number", ErrValidation)
	ErrSamePlayer                 = fmt.Errorf("%w: a contestant cannot play against themselves", ErrValidation)
	ErrAlreadyPlayedThisRound     = fmt.Errorf("%w: contestant already has a match in the current round", ErrValidation)
	ErrDrawNotAllowed             = fmt.Errorf("%w: draws are not allowed in elimination formats", ErrValidation)
	ErrMalformedScore             = fmt.Errorf("%w: score must look like \"2-1\"", ErrValidation)
	ErrTiedScoreWithoutDraw       = fmt.Errorf("%w: equal scores require the result to be marked as a draw", ErrValidation)
	ErrDrawScoreMismatch          = fmt.Errorf("%w: a draw must have equal scores", ErrValidation)
	ErrDifferentBrackets          = fmt.Errorf("%w: contestants are in different brackets", ErrValidation)
	ErrInvalidBracket             = fmt.Errorf("%w: unknown bracket", ErrValidation)

	// Недопустимое состояние
	ErrTournamentTerminal                = fmt.Errorf("%w: tournament is already finished", ErrInvalidState)
	ErrTournamentNotStarted              = fmt.Errorf("%w: tournament has not started yet", ErrInvalidState)
	ErrTournamentInvalidStatusTransition = fmt.Errorf("%w: invalid tournament status transition", ErrInvalidState)
	ErrContestantInactive                = fmt.Errorf("%w: contestant is no longer active", ErrInvalidState)
	ErrRegistrationClosed                = fmt.Errorf("%w: bracket is already drawn, registration is closed", ErrInvalidState)
	ErrPairingUnavailable                = fmt.Errorf("%w: pairings are not available", ErrInvalidState)
	ErrLosersRoundNotReached             = fmt.Errorf("%w: contestant enters the losers bracket in a later round", ErrInvalidState)

	// Конфликты
	ErrContestantNameConflict = fmt.Errorf("%w: contestant name is already registered in this tournament", ErrConflict)
	ErrConcurrentModification = fmt.Errorf("%w: tournament was modified concurrently, retry the request", ErrConflict)
)

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrContestantNotFound):
		return ErrContestantNotFound
	case errors.Is(err, repositories.ErrContestantNameConflict):
		return ErrContestantNameConflict
	case errors.Is(err, repositories.ErrTournamentVersionConflict):
		return ErrConcurrentModification
	}
	return err
}
