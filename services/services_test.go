package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	TournamentID uuid.UUID
	Type         string
	Payload      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishTournamentEvent(tournamentID uuid.UUID, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *memoryUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string {
	return "memory://" + key
}

func (u *memoryUploader) get(key string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	body, ok := u.objects[key]
	return body, ok
}

type testEnv struct {
	svc       *Services
	clock     *fakeClock
	publisher *recordingPublisher
	uploader  *memoryUploader
}

func newTestEnv(t *testing.T, overrides ...func(*Dependencies)) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "services.db") + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	conn, err := db.Connect(db.DriverSQLite, dsn, 5*time.Second)
	require.NoError(t, err, "Failed to connect to test DB")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(conn), "Failed to apply migrations")

	env := &testEnv{
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
		uploader:  &memoryUploader{objects: make(map[string][]byte)},
	}
	deps := Dependencies{
		DB:          conn,
		Tournaments: repositories.NewTournamentRepository(conn),
		Contestants: repositories.NewContestantRepository(conn),
		Matches:     repositories.NewMatchRepository(conn),
		Publisher:   env.publisher,
		Archiver:    NewStandingsArchiver(env.uploader),
		Clock:       env.clock.Now,
	}
	for _, override := range overrides {
		override(&deps)
	}
	env.svc = New(deps)
	return env
}

// startTournament создает уже начавшийся турнир и регистрирует участников
// с посевом по порядку.
func (e *testEnv) startTournament(t *testing.T, format models.Format, names ...string) *models.Tournament {
	t.Helper()
	ctx := context.Background()

	now := e.clock.Now()
	tournament, err := e.svc.Tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:     "Club Championship",
		Format:   string(format),
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(72 * time.Hour),
	})
	require.NoError(t, err)

	for i, name := range names {
		seed := i + 1
		_, err := e.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: name, Seed: &seed})
		require.NoError(t, err)
	}

	tournament, err = e.svc.Tournaments.GetTournament(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament
}

func (e *testEnv) submit(t *testing.T, tournamentID uuid.UUID, p1, p2, score string) *ResultOutcome {
	t.Helper()
	outcome, err := e.svc.Matches.SubmitResult(context.Background(), SubmitResultInput{
		TournamentID: tournamentID,
		Player1:      p1,
		Player2:      p2,
		Score:        score,
	})
	require.NoError(t, err, "submit %s vs %s (%s)", p1, p2, score)
	return outcome
}

func (e *testEnv) bye(t *testing.T, tournamentID uuid.UUID, name string) *ResultOutcome {
	t.Helper()
	outcome, err := e.svc.Matches.RegisterBye(context.Background(), tournamentID, name)
	require.NoError(t, err, "bye for %s", name)
	return outcome
}

func (e *testEnv) contestants(t *testing.T, tournamentID uuid.UUID) map[string]models.Standing {
	t.Helper()
	standings, err := e.svc.Tournaments.GetStandings(context.Background(), tournamentID)
	require.NoError(t, err)
	byName := make(map[string]models.Standing, len(standings))
	for _, s := range standings {
		byName[s.Name] = s
	}
	return byName
}

func (e *testEnv) tournament(t *testing.T, id uuid.UUID) *models.Tournament {
	t.Helper()
	tournament, err := e.svc.Tournaments.GetTournament(context.Background(), id)
	require.NoError(t, err)
	return tournament
}

func pairingNames(t *testing.T, view *PairingsView) [][2]string {
	t.Helper()
	names := make([][2]string, 0, len(view.Pairings))
	for _, p := range view.Pairings {
		pair := [2]string{p.Player1.Name, ""}
		if p.Player2 != nil {
			pair[1] = p.Player2.Name
		}
		names = append(names, pair)
	}
	return names
}

func TestSingleEliminationFourPlayers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatSingleElimination, "Alice", "Bob", "Carol", "Dave")
	assert.Equal(t, models.StatusActive, tournament.Status)

	view, err := env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Alice", "Dave"}, {"Bob", "Carol"}}, pairingNames(t, view))

	first := env.submit(t, tournament.ID, "Alice", "Dave", "2-0")
	assert.False(t, first.RoundAdvanced)
	assert.Equal(t, 1, first.Match.Round)

	second := env.submit(t, tournament.ID, "Carol", "Bob", "1-3")
	assert.True(t, second.RoundAdvanced)
	assert.Equal(t, 2, second.Tournament.Round)

	view, err = env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Alice", "Bob"}}, pairingNames(t, view))

	final := env.submit(t, tournament.ID, "Alice", "Bob", "3-1")
	assert.True(t, final.Completed)
	assert.Equal(t, models.StatusCompleted, final.Tournament.Status)
	assert.Equal(t, models.OutcomeChampion, final.Tournament.Outcome)

	standings := env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantChampion, standings["Alice"].Status)
	for _, name := range []string{"Bob", "Carol", "Dave"} {
		assert.Equal(t, models.ContestantEliminated, standings[name].Status, name)
		assert.False(t, standings[name].Active, name)
	}
	assert.Equal(t, 2, standings["Alice"].Won)
	assert.Equal(t, 1, standings["Bob"].Won)

	_, err = env.svc.Matches.SubmitResult(ctx, SubmitResultInput{TournamentID: tournament.ID, Player1: "Alice", Player2: "Bob", Score: "1-0"})
	assert.ErrorIs(t, err, ErrTournamentTerminal)

	body, ok := env.uploader.get(ArchiveKey(final.Tournament))
	require.True(t, ok, "final standings should be archived")
	assert.Contains(t, string(body), `"Alice"`)
	assert.Equal(t, 2, env.publisher.count(EventTournamentStatusChanged), "activation and completion")
}

func TestRoundRobinThreePlayersWithByes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatRoundRobin, "Alice", "Bob", "Carol")

	view, err := env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Alice", "Bob"}, {"Carol", ""}}, pairingNames(t, view))

	env.submit(t, tournament.ID, "Alice", "Bob", "1-0")
	outcome := env.bye(t, tournament.ID, "Carol")
	assert.True(t, outcome.RoundAdvanced)
	assert.Equal(t, 2, outcome.Tournament.Round)

	env.submit(t, tournament.ID, "Alice", "Carol", "0-1")
	outcome = env.bye(t, tournament.ID, "Bob")
	assert.True(t, outcome.RoundAdvanced)
	assert.Equal(t, 3, outcome.Tournament.Round)

	env.bye(t, tournament.ID, "Alice")
	outcome = env.submit(t, tournament.ID, "Carol", "Bob", "2-1")
	assert.False(t, outcome.RoundAdvanced)
	assert.True(t, outcome.Completed)
	assert.Equal(t, 3, outcome.Tournament.Round, "counter stays on the last played round")
	assert.Equal(t, models.OutcomeChampion, outcome.Tournament.Outcome)

	standings := env.contestants(t, tournament.ID)
	assert.Equal(t, 3.0, standings["Carol"].Score)
	assert.Equal(t, 2.0, standings["Alice"].Score)
	assert.Equal(t, 1.0, standings["Bob"].Score)
	assert.Equal(t, models.ContestantChampion, standings["Carol"].Status)
	assert.Equal(t, models.ContestantLost, standings["Alice"].Status)
	assert.Equal(t, models.ContestantLost, standings["Bob"].Status)

	matches, err := env.svc.Matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	pairs := make(map[string]int)
	for _, m := range matches {
		if m.IsBye() {
			continue
		}
		a, b := m.Player1ID.String(), m.Player2ID.String()
		if a > b {
			a, b = b, a
		}
		pairs[a+b]++
	}
	assert.Len(t, pairs, 3)
	for _, n := range pairs {
		assert.Equal(t, 1, n)
	}
}

func TestDoubleEliminationFlow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatDoubleElimination, "Alice", "Bob", "Carol", "Dave")
	assert.Equal(t, 1, tournament.LosersRound)

	env.submit(t, tournament.ID, "Alice", "Dave", "2-0")
	outcome := env.submit(t, tournament.ID, "Bob", "Carol", "2-1")
	assert.True(t, outcome.RoundAdvanced)
	assert.Equal(t, 2, outcome.Tournament.Round)

	standings := env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantLosersBracket, standings["Dave"].Status, "first loss moves to losers bracket")
	assert.True(t, standings["Dave"].Active)

	view, err := env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{Bracket: "losers"})
	require.NoError(t, err)
	require.Len(t, view.Pairings, 1)

	env.submit(t, tournament.ID, "Carol", "Dave", "2-1")
	standings = env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantEliminated, standings["Dave"].Status, "second loss eliminates")
	assert.False(t, standings["Dave"].Active)
	assert.Equal(t, 2, standings["Dave"].Lost)
	assert.Equal(t, 2, env.tournament(t, tournament.ID).LosersRound)

	// выбывший участник не может проиграть третий матч
	_, err = env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
		TournamentID: tournament.ID, Player1: "Carol", Player2: "Dave", Score: "2-0",
	})
	assert.ErrorIs(t, err, ErrContestantInactive)
	assert.Equal(t, 2, env.contestants(t, tournament.ID)["Dave"].Lost)

	env.submit(t, tournament.ID, "Alice", "Bob", "2-0")
	env.submit(t, tournament.ID, "Bob", "Carol", "2-0")

	current := env.tournament(t, tournament.ID)
	assert.Equal(t, 3, current.Round)
	assert.Equal(t, 3, current.LosersRound)

	view, err = env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Alice", "Bob"}}, pairingNames(t, view))

	grandFinal := env.submit(t, tournament.ID, "Bob", "Alice", "3-2")
	assert.Equal(t, models.BracketWinners, grandFinal.Match.Bracket)
	assert.False(t, grandFinal.Completed)
	standings = env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantLosersBracket, standings["Alice"].Status)

	reset := env.submit(t, tournament.ID, "Alice", "Bob", "3-0")
	assert.Equal(t, models.BracketLosers, reset.Match.Bracket)
	assert.True(t, reset.Completed)

	standings = env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantChampion, standings["Alice"].Status)
	assert.Equal(t, models.ContestantEliminated, standings["Bob"].Status)
}

func TestDoubleEliminationLateDropInsKeepSchedule(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatDoubleElimination, "P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8")

	env.submit(t, tournament.ID, "P1", "P8", "2-0")
	env.submit(t, tournament.ID, "P4", "P5", "2-0")
	env.submit(t, tournament.ID, "P2", "P7", "2-0")
	env.submit(t, tournament.ID, "P3", "P6", "2-0")
	env.submit(t, tournament.ID, "P1", "P4", "2-0")
	env.submit(t, tournament.ID, "P2", "P3", "2-0")

	current := env.tournament(t, tournament.ID)
	assert.Equal(t, 3, current.Round)
	assert.Equal(t, 1, current.LosersRound)

	view, err := env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{Bracket: "losers"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"P5", "P8"}, {"P6", "P7"}}, pairingNames(t, view))

	_, err = env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
		TournamentID: tournament.ID, Player1: "P3", Player2: "P8", Score: "2-0",
	})
	assert.ErrorIs(t, err, ErrLosersRoundNotReached)
	_, err = env.svc.Matches.RegisterBye(ctx, tournament.ID, "P4")
	assert.ErrorIs(t, err, ErrLosersRoundNotReached)

	env.submit(t, tournament.ID, "P5", "P8", "2-1")
	outcome := env.submit(t, tournament.ID, "P6", "P7", "2-1")
	assert.True(t, outcome.RoundAdvanced)
	assert.Equal(t, 2, outcome.Tournament.LosersRound)

	view, err = env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{Bracket: "losers"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"P5", "P4"}, {"P6", "P3"}}, pairingNames(t, view))
}

func TestDoubleEliminationRejectsCrossBracketMatch(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatDoubleElimination, "Alice", "Bob", "Carol", "Dave")
	env.submit(t, tournament.ID, "Alice", "Dave", "2-0")

	_, err := env.svc.Matches.SubmitResult(context.Background(), SubmitResultInput{
		TournamentID: tournament.ID, Player1: "Bob", Player2: "Dave", Score: "1-0",
	})
	assert.ErrorIs(t, err, ErrDifferentBrackets)
}

func TestCheckRoundCompletionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatRoundRobin, "Alice", "Bob", "Carol", "Dave")

	advanced, err := env.svc.Rounds.CheckRoundCompletion(ctx, tournament.ID)
	require.NoError(t, err)
	assert.False(t, advanced, "no results yet")

	env.submit(t, tournament.ID, "Alice", "Dave", "1-0")
	outcome := env.submit(t, tournament.ID, "Bob", "Carol", "1-0")
	require.True(t, outcome.RoundAdvanced)

	for i := 0; i < 3; i++ {
		advanced, err := env.svc.Rounds.CheckRoundCompletion(ctx, tournament.ID)
		require.NoError(t, err)
		assert.False(t, advanced)
	}
	assert.Equal(t, 2, env.tournament(t, tournament.ID).Round)
	assert.Equal(t, 1, env.publisher.count(EventRoundAdvanced))
}

func TestMalformedScoreLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob")
	before := env.contestants(t, tournament.ID)

	for _, score := range []string{"two-one", "2:1", "", "-1-2", "2-"} {
		_, err := env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
			TournamentID: tournament.ID, Player1: "Alice", Player2: "Bob", Score: score,
		})
		assert.ErrorIs(t, err, ErrMalformedScore, score)
		assert.ErrorIs(t, err, ErrValidation, score)
	}

	assert.Equal(t, before, env.contestants(t, tournament.ID))
	matches, err := env.svc.Matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1, env.tournament(t, tournament.ID).Round)
}

// failingContestants отказывает на N-м вызове Update после включения.
type failingContestants struct {
	repositories.ContestantRepository

	mu     sync.Mutex
	armed  bool
	calls  int
	failAt int
}

var errStorageUnavailable = errors.New("storage unavailable")

func (r *failingContestants) arm(failAt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed, r.calls, r.failAt = true, 0, failAt
}

func (r *failingContestants) Update(ctx context.Context, exec repositories.SQLExecutor, c *models.Contestant) error {
	r.mu.Lock()
	fail := false
	if r.armed {
		r.calls++
		fail = r.calls == r.failAt
	}
	r.mu.Unlock()
	if fail {
		return errStorageUnavailable
	}
	return r.ContestantRepository.Update(ctx, exec, c)
}

func TestFailedWriteRollsBackWholeResult(t *testing.T) {
	ctx := context.Background()
	var flaky *failingContestants
	env := newTestEnv(t, func(deps *Dependencies) {
		flaky = &failingContestants{ContestantRepository: deps.Contestants}
		deps.Contestants = flaky
	})
	tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob", "Carol", "Dave")
	env.submit(t, tournament.ID, "Alice", "Bob", "2-0")
	before := env.contestants(t, tournament.ID)
	roundEvents := env.publisher.count(EventRoundAdvanced)

	// первый участник уже обновлен, второй падает
	flaky.arm(2)
	_, err := env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
		TournamentID: tournament.ID, Player1: "Carol", Player2: "Dave", Score: "2-1",
	})
	require.ErrorIs(t, err, errStorageUnavailable)

	assert.Equal(t, before, env.contestants(t, tournament.ID))
	matches, err := env.svc.Matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	current := env.tournament(t, tournament.ID)
	assert.Equal(t, 1, current.Round)
	assert.Equal(t, models.StatusActive, current.Status)
	assert.Equal(t, roundEvents, env.publisher.count(EventRoundAdvanced))

	// после сбоя тот же результат записывается и раунд продвигается
	flaky.arm(0)
	outcome := env.submit(t, tournament.ID, "Carol", "Dave", "2-1")
	assert.True(t, outcome.RoundAdvanced)
	assert.Equal(t, 2, outcome.Tournament.Round)
}

func TestContestantNamesAreCaseSensitive(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatSwiss, "Alice", "alice")

	outcome := env.submit(t, tournament.ID, "Alice", "alice", "2-1")
	assert.NotEqual(t, *outcome.Match.WinnerID, *outcome.Match.LoserID)

	standings := env.contestants(t, tournament.ID)
	require.Len(t, standings, 2)
	assert.Equal(t, 1, standings["Alice"].Won)
	assert.Equal(t, 1, standings["alice"].Lost)
}

func TestSubmitResultValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	swiss := env.startTournament(t, models.FormatSwiss, "Alice", "Bob", "Carol", "Dave")
	elimination := env.startTournament(t, models.FormatSingleElimination, "Erin", "Frank")

	submit := func(tournamentID uuid.UUID, p1, p2, score string, draw bool) error {
		_, err := env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
			TournamentID: tournamentID, Player1: p1, Player2: p2, Score: score, IsDraw: draw,
		})
		return err
	}

	assert.ErrorIs(t, submit(swiss.ID, "Alice", " Alice ", "1-0", false), ErrSamePlayer)
	assert.ErrorIs(t, submit(swiss.ID, "Alice", "Bob", "1-1", false), ErrTiedScoreWithoutDraw)
	assert.ErrorIs(t, submit(swiss.ID, "Alice", "Bob", "2-1", true), ErrDrawScoreMismatch)
	assert.ErrorIs(t, submit(elimination.ID, "Erin", "Frank", "1-1", true), ErrDrawNotAllowed)
	assert.ErrorIs(t, submit(uuid.New(), "Alice", "Bob", "1-0", false), ErrTournamentNotFound)

	err := submit(swiss.ID, "Alcie", "Bob", "1-0", false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `did you mean "Alice"`)

	require.NoError(t, submit(swiss.ID, "Alice", "Bob", "", true))
	err = submit(swiss.ID, "Alice", "Carol", "1-0", false)
	assert.ErrorIs(t, err, ErrAlreadyPlayedThisRound)
	_, err = env.svc.Matches.RegisterBye(ctx, swiss.ID, "Bob")
	assert.ErrorIs(t, err, ErrAlreadyPlayedThisRound)

	standings := env.contestants(t, swiss.ID)
	assert.Equal(t, 0.5, standings["Alice"].Score)
	assert.Equal(t, 1, standings["Bob"].Drawn)
}

func TestSwissCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("unique leader becomes champion", func(t *testing.T) {
		env := newTestEnv(t)
		tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob", "Carol", "Dave")

		view, err := env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
		require.NoError(t, err)
		assert.Equal(t, [][2]string{{"Alice", "Bob"}, {"Carol", "Dave"}}, pairingNames(t, view))

		env.submit(t, tournament.ID, "Alice", "Bob", "1-0")
		env.submit(t, tournament.ID, "Carol", "Dave", "1-0")

		view, err = env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
		require.NoError(t, err)
		assert.Equal(t, 2, view.Round)
		assert.Equal(t, [][2]string{{"Alice", "Carol"}, {"Bob", "Dave"}}, pairingNames(t, view))

		env.submit(t, tournament.ID, "Alice", "Carol", "1-0")
		outcome := env.submit(t, tournament.ID, "Bob", "Dave", "1-0")
		assert.True(t, outcome.Completed)
		assert.Equal(t, models.OutcomeChampion, outcome.Tournament.Outcome)
		assert.Equal(t, 2, outcome.Tournament.Round)

		standings := env.contestants(t, tournament.ID)
		assert.Equal(t, models.ContestantChampion, standings["Alice"].Status)
		for _, name := range []string{"Bob", "Carol", "Dave"} {
			assert.Equal(t, models.ContestantLost, standings[name].Status, name)
		}
	})

	t.Run("shared lead is an explicit tie", func(t *testing.T) {
		env := newTestEnv(t)
		tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob")

		outcome, err := env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
			TournamentID: tournament.ID, Player1: "Alice", Player2: "Bob", Score: "1-1", IsDraw: true,
		})
		require.NoError(t, err)
		assert.True(t, outcome.Completed)
		assert.Equal(t, models.OutcomeTie, outcome.Tournament.Outcome)

		standings := env.contestants(t, tournament.ID)
		assert.Equal(t, models.ContestantTied, standings["Alice"].Status)
		assert.Equal(t, models.ContestantTied, standings["Bob"].Status)
		assert.Equal(t, standings["Alice"].Rank, standings["Bob"].Rank)
	})
}

func TestClockDrivenTransitions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	now := env.clock.Now()
	tournament, err := env.svc.Tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:     "Weekend Swiss",
		Format:   "swiss",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tournament.Status)

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: name})
		require.NoError(t, err)
	}

	_, err = env.svc.Matches.SubmitResult(ctx, SubmitResultInput{TournamentID: tournament.ID, Player1: "Alice", Player2: "Bob", Score: "1-0"})
	assert.ErrorIs(t, err, ErrTournamentNotStarted)

	env.clock.Advance(time.Hour)
	require.NoError(t, env.svc.Tournaments.AutoUpdateTournamentStatusesByDates(ctx))
	assert.Equal(t, models.StatusActive, env.tournament(t, tournament.ID).Status)

	env.submit(t, tournament.ID, "Alice", "Bob", "1-0")

	env.clock.Advance(3 * time.Hour)
	_, err = env.svc.Matches.RegisterBye(ctx, tournament.ID, "Carol")
	assert.ErrorIs(t, err, ErrTournamentTerminal)

	finished := env.tournament(t, tournament.ID)
	assert.Equal(t, models.StatusCompleted, finished.Status, "clock transition persists even though the bye failed")
	assert.Equal(t, models.OutcomeChampion, finished.Outcome)
	assert.Equal(t, models.ContestantChampion, env.contestants(t, tournament.ID)["Alice"].Status)

	require.NoError(t, env.svc.Tournaments.AutoUpdateTournamentStatusesByDates(ctx))
	assert.Equal(t, 2, env.publisher.count(EventTournamentStatusChanged))
}

func TestCancelTournament(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatRoundRobin, "Alice", "Bob", "Carol", "Dave")
	env.submit(t, tournament.ID, "Alice", "Dave", "1-0")

	canceled, err := env.svc.Tournaments.CancelTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)

	matches, err := env.svc.Matches.ListMatches(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = env.svc.Tournaments.CancelTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: "Erin"})
	assert.ErrorIs(t, err, ErrTournamentTerminal)
	_, err = env.svc.Tournaments.GetPairings(ctx, tournament.ID, PairingsQuery{})
	assert.ErrorIs(t, err, ErrTournamentTerminal)
}

func TestWithdrawAndRegistration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("withdrawal can leave a single survivor", func(t *testing.T) {
		tournament := env.startTournament(t, models.FormatSingleElimination, "Alice", "Bob")
		withdrawn, err := env.svc.Tournaments.WithdrawContestant(ctx, tournament.ID, "Bob")
		require.NoError(t, err)
		assert.Equal(t, models.ContestantWithdrawn, withdrawn.Status)
		assert.False(t, withdrawn.Active)

		finished := env.tournament(t, tournament.ID)
		assert.Equal(t, models.StatusCompleted, finished.Status)
		assert.Equal(t, models.ContestantChampion, env.contestants(t, tournament.ID)["Alice"].Status)
	})

	t.Run("withdrawal closes a round", func(t *testing.T) {
		tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob", "Carol", "Dave", "Erin")
		env.submit(t, tournament.ID, "Alice", "Bob", "1-0")
		env.submit(t, tournament.ID, "Carol", "Dave", "1-0")

		_, err := env.svc.Tournaments.WithdrawContestant(ctx, tournament.ID, "Erin")
		require.NoError(t, err)
		assert.Equal(t, 2, env.tournament(t, tournament.ID).Round)

		_, err = env.svc.Tournaments.WithdrawContestant(ctx, tournament.ID, "Erin")
		assert.ErrorIs(t, err, ErrContestantInactive)
	})

	t.Run("elimination registration closes after first match", func(t *testing.T) {
		tournament := env.startTournament(t, models.FormatSingleElimination, "Alice", "Bob", "Carol", "Dave")
		env.submit(t, tournament.ID, "Alice", "Dave", "1-0")

		_, err := env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: "Erin"})
		assert.ErrorIs(t, err, ErrRegistrationClosed)
	})

	t.Run("duplicate and invalid names", func(t *testing.T) {
		tournament := env.startTournament(t, models.FormatSwiss, "Alice")
		_, err := env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: "  Alice "})
		assert.ErrorIs(t, err, ErrContestantNameConflict)
		_, err = env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: "   "})
		assert.ErrorIs(t, err, ErrContestantNameRequired)
		zero := 0
		_, err = env.svc.Tournaments.AddContestant(ctx, tournament.ID, AddContestantInput{Name: "Bob", Seed: &zero})
		assert.ErrorIs(t, err, ErrContestantInvalidSeed)
	})
}

func TestFinishTournament(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatRoundRobin, "Alice", "Bob", "Carol", "Dave")
	env.submit(t, tournament.ID, "Alice", "Dave", "1-0")
	env.submit(t, tournament.ID, "Bob", "Carol", "1-0")

	finished, err := env.svc.Tournaments.FinishTournament(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, finished.Status)
	assert.Equal(t, models.OutcomeTie, finished.Outcome)

	standings := env.contestants(t, tournament.ID)
	assert.Equal(t, models.ContestantTied, standings["Alice"].Status)
	assert.Equal(t, models.ContestantTied, standings["Bob"].Status)
	assert.Equal(t, models.ContestantLost, standings["Carol"].Status)

	_, err = env.svc.Tournaments.FinishTournament(ctx, tournament.ID)
	assert.ErrorIs(t, err, ErrTournamentTerminal)
}

func TestConcurrentSubmissionsAdvanceOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	names := []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}
	tournament := env.startTournament(t, models.FormatSwiss, names...)

	var wg sync.WaitGroup
	errs := make([]error, len(names)/2)
	for i := 0; i < len(names); i += 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i/2] = env.svc.Matches.SubmitResult(ctx, SubmitResultInput{
				TournamentID: tournament.ID,
				Player1:      names[i],
				Player2:      names[i+1],
				Score:        "2-0",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "pair %d", i)
	}
	assert.Equal(t, 2, env.tournament(t, tournament.ID).Round)
	assert.Equal(t, 1, env.publisher.count(EventRoundAdvanced))
}

func TestGetTournamentData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	tournament := env.startTournament(t, models.FormatSwiss, "Alice", "Bob", "Carol")
	env.submit(t, tournament.ID, "Alice", "Bob", "1-0")

	data, err := env.svc.Tournaments.GetTournamentData(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, data.Tournament.ID)
	assert.Len(t, data.Contestants, 3)
	assert.Len(t, data.Matches, 1)
	require.Len(t, data.Standings, 3)
	assert.Equal(t, "Alice", data.Standings[0].Name)

	_, err = env.svc.Tournaments.GetTournamentData(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestCreateTournamentValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	now := env.clock.Now()

	tests := []struct {
		name  string
		input CreateTournamentInput
		want  error
	}{
		{"missing name", CreateTournamentInput{Format: "swiss", StartsAt: now, EndsAt: now.Add(time.Hour)}, ErrTournamentNameRequired},
		{"unknown format", CreateTournamentInput{Name: "Open", Format: "ladder", StartsAt: now, EndsAt: now.Add(time.Hour)}, ErrTournamentInvalidFormat},
		{"missing dates", CreateTournamentInput{Name: "Open", Format: "swiss"}, ErrTournamentDatesRequired},
		{"reversed dates", CreateTournamentInput{Name: "Open", Format: "swiss", StartsAt: now, EndsAt: now.Add(-time.Hour)}, ErrTournamentInvalidDateRange},
		{"long name", CreateTournamentInput{Name: string(bytes.Repeat([]byte("x"), maxTournamentNameLength+1)), Format: "swiss", StartsAt: now, EndsAt: now.Add(time.Hour)}, ErrTournamentNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Tournaments.CreateTournament(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	created, err := env.svc.Tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Open", Format: "Double-Elimination", StartsAt: now, EndsAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FormatDoubleElimination, created.Format)
	assert.Equal(t, 1, created.LosersRound)
}

func TestTotalRoundsNeeded(t *testing.T) {
	tests := []struct {
		format models.Format
		n      int
		want   int
		ok     bool
	}{
		{models.FormatRoundRobin, 4, 3, true},
		{models.FormatRoundRobin, 3, 3, true},
		{models.FormatRoundRobin, 1, 1, true},
		{models.FormatSwiss, 1, 1, true},
		{models.FormatSwiss, 2, 1, true},
		{models.FormatSwiss, 5, 3, true},
		{models.FormatSwiss, 8, 3, true},
		{models.FormatSwiss, 9, 4, true},
		{models.FormatSingleElimination, 8, 0, false},
		{models.FormatDoubleElimination, 8, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.format, tt.n), func(t *testing.T) {
			got, ok := TotalRoundsNeeded(tt.format, tt.n)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestName(t *testing.T) {
	candidates := []string{"Alice", "Bob", "Carol"}
	assert.Equal(t, "Alice", suggestName("alice", candidates))
	assert.Equal(t, "Alice", suggestName("Alcie", candidates))
	assert.Equal(t, "Carol", suggestName("Carl", candidates))
	assert.Equal(t, "", suggestName("Zed", candidates))
	assert.Equal(t, "", suggestName("Alice", nil))
}

func TestParseScore(t *testing.T) {
	score, err := parseScore(" 3 - 1 ")
	require.NoError(t, err)
	assert.Equal(t, "3-1", score.raw)
	assert.Equal(t, 3, score.first)
	assert.Equal(t, 1, score.second)

	for _, bad := range []string{"3", "a-b", "3-1-2", "-3-1", "3--1"} {
		_, err := parseScore(bad)
		assert.ErrorIs(t, err, ErrMalformedScore, bad)
	}
}
