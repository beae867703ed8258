package state

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/gigip2p-bot/internal/errors"
)

// storageTimeout bounds a single session read or write once the turn context is detached.
const storageTimeout = 2 * time.Second

// ErrInvalidTransition indicates that a turn tried to move between unrelated states.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe state transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Store owns every session and hands one out per turn under an exclusive per-user lock.
type Store struct {
	storage Storage
	locks   *keyedMutex
	dlock   *redisLock
	log     *slog.Logger
	now     func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithDistributedLock additionally serialises turns across instances with a Redis lock.
func WithDistributedLock(client *redis.Client, ttl time.Duration) StoreOption {
	return func(s *Store) {
		if client == nil {
			return
		}
		if ttl <= 0 {
			ttl = 10 * time.Second
		}
		s.dlock = &redisLock{client: client, ttl: ttl}
	}
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(storage Storage, log *slog.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		storage: storage,
		locks:   newKeyedMutex(),
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithSession loads the user's session, runs fn on it and saves the result, all while holding
// the user's lock. A fresh idle session is used for new users and for corrupt records.
//
// If fn returns an error nothing is saved, except for session corruption which resets the
// session to idle. Transitions outside the table are rejected with ErrInvalidTransition.
func (s *Store) WithSession(ctx context.Context, userID int64, fn func(*UserSession) error) error {
	if err := s.locks.Lock(ctx, userID); err != nil {
		return err
	}
	defer s.locks.Unlock(userID)

	if s.dlock != nil {
		owner, err := s.dlock.acquire(ctx, userID)
		if err != nil {
			return err
		}
		defer func() {
			releaseCtx, cancel := detached(ctx, time.Second)
			defer cancel()
			if err := s.dlock.release(releaseCtx, userID, owner); err != nil {
				s.log.Error("failed to release session lock", "user_id", userID, "error", err)
			}
		}()
	}

	session, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	from := session.State
	working := session.Clone()

	if err := fn(working); err != nil {
		if apperrors.KindOf(err) == apperrors.KindSessionCorruption {
			s.log.Warn("session corrupted during turn, resetting", "user_id", userID, "error", err)
			sessionResetsTotal.Inc()
			session.Reset()
			transitionRecorder(string(from), string(StateIdle))
			return errors.Join(err, s.save(ctx, session))
		}
		return err
	}

	if !IsTransitionAllowed(from, working.State) {
		s.log.Warn("invalid state transition", "user_id", userID, "from", from, "to", working.State)
		return ErrInvalidTransition
	}

	if from != working.State {
		transitionRecorder(string(from), string(working.State))
	}

	return s.save(ctx, working)
}

// Get returns a copy of the session without taking the lock. Used for reporting only.
func (s *Store) Get(ctx context.Context, userID int64) (*UserSession, error) {
	return s.storage.GetSession(ctx, userID)
}

// All returns every stored session.
func (s *Store) All(ctx context.Context) ([]*UserSession, error) {
	return s.storage.GetAllSessions(ctx)
}

func (s *Store) load(ctx context.Context, userID int64) (*UserSession, error) {
	ctx, cancel := detached(ctx, storageTimeout)
	defer cancel()

	session, err := s.storage.GetSession(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionNotFound):
		return NewSession(userID), nil
	case errors.Is(err, ErrSessionCorrupt):
		s.log.Warn("stored session is corrupt, starting fresh", "user_id", userID, "error", err)
		sessionResetsTotal.Inc()
		return NewSession(userID), nil
	default:
		return nil, apperrors.NewDatabaseError(err)
	}

	if session.UserID != userID {
		session.UserID = userID
	}

	if err := session.Validate(); err != nil {
		s.log.Warn("stored session is inconsistent, resetting", "user_id", userID, "error", err)
		sessionResetsTotal.Inc()
		session.Reset()
	}

	return session, nil
}

// save is detached from the turn deadline: a turn that ran out of time still keeps its slots.
func (s *Store) save(ctx context.Context, session *UserSession) error {
	ctx, cancel := detached(ctx, storageTimeout)
	defer cancel()

	session.UpdatedAt = s.now().UTC()
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// detached keeps ctx values but not its deadline or cancellation.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
