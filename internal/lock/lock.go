// Package lock резервирует imdbId на время проверки уникальности и записи,
// чтобы два параллельных запроса не заняли один и тот же imdbId.
package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrTimeout возвращается, если блокировку не удалось получить до отмены контекста.
var ErrTimeout = errors.New("lock acquisition timed out")

// Unlock освобождает полученную блокировку.
type Unlock func(ctx context.Context) error

// Locker выдает блокировки по ключу.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// ImdbKey нормализует imdbId в ключ блокировки.
func ImdbKey(imdbID string) string {
	return "imdb:" + strings.ToLower(strings.TrimSpace(imdbID))
}

// MemoryLocker - блокировки внутри одного процесса.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{keys: make(map[string]*keyLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.keys[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ErrTimeout
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-kl.sem
			l.release(key, kl)
		})
		return nil
	}, nil
}

func (l *MemoryLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, key)
	}
}

// WithWait ограничивает ожидание блокировки величиной wait.
// При wait <= 0 возвращает l без изменений.
func WithWait(l Locker, wait time.Duration) Locker {
	if wait <= 0 {
		return l
	}
	return boundedLocker{next: l, wait: wait}
}

type boundedLocker struct {
	next Locker
	wait time.Duration
}

func (b boundedLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, b.wait)
	defer cancel()
	return b.next.Lock(waitCtx, key)
}
