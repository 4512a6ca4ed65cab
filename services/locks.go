package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// tournamentLocks сериализует изменяющие операции в пределах одного турнира.
// Разные турниры не блокируют друг друга.
type tournamentLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*tournamentLock
}

type tournamentLock struct {
	sem  chan struct{}
	refs int
}

func newTournamentLocks() *tournamentLocks {
	return &tournamentLocks{locks: make(map[uuid.UUID]*tournamentLock)}
}

// Lock ждет освобождения турнира или отмены контекста.
func (l *tournamentLocks) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &tournamentLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(id, lock)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.sem
			l.release(id, lock)
		})
	}, nil
}

func (l *tournamentLocks) release(id uuid.UUID, lock *tournamentLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}
