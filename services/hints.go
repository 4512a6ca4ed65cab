package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const maxSuggestionDistance = 2

// lookupContestant ищет участника по имени; при промахе подсказывает похожее имя.
func (c *core) lookupContestant(ctx context.Context, exec repositories.SQLExecutor, tournamentID uuid.UUID, name string) (*models.Contestant, error) {
	contestant, err := c.contestants.GetByName(ctx, exec, tournamentID, name)
	if err == nil {
		return contestant, nil
	}
	if !errors.Is(err, repositories.ErrContestantNotFound) {
		return nil, err
	}

	registered, listErr := c.contestants.ListByTournament(ctx, exec, tournamentID)
	if listErr != nil {
		return nil, fmt.Errorf("%w: %q", ErrContestantNotFound, name)
	}
	names := make([]string, 0, len(registered))
	for _, r := range registered {
		names = append(names, r.Name)
	}
	if suggestion := suggestName(name, names); suggestion != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrContestantNotFound, name, suggestion)
	}
	return nil, fmt.Errorf("%w: %q", ErrContestantNotFound, name)
}

// suggestName возвращает ближайшее зарегистрированное имя или "".
func suggestName(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// опечатки не ловятся поиском подпоследовательности
	best, bestDistance := "", maxSuggestionDistance+1
	lowered := strings.ToLower(name)
	for _, candidate := range candidates {
		d := fuzzy.LevenshteinDistance(lowered, strings.ToLower(candidate))
		if d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}
