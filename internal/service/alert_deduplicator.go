package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartspend/smartspend-backend/internal/domain"
)

// AlertDeduplicator remembers the last level dispatched per (user, category, period)
// so an unchanged level is not re-sent on every sweep.
type AlertDeduplicator struct {
	stateRepo domain.AlertStateRepository
	logger    zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewAlertDeduplicator creates a new AlertDeduplicator
func NewAlertDeduplicator(stateRepo domain.AlertStateRepository, logger zerolog.Logger) *AlertDeduplicator {
	return &AlertDeduplicator{
		stateRepo: stateRepo,
		logger:    logger.With().Str("component", "alert_deduplicator").Logger(),
		now:       time.Now,
		locks:     make(map[string]*keyLock),
	}
}

// Lock serializes work on one key within this process. The returned func releases it.
func (d *AlertDeduplicator) Lock(key domain.AlertKey) func() {
	k := key.String()

	d.mu.Lock()
	l, ok := d.locks[k]
	if !ok {
		l = &keyLock{}
		d.locks[k] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, k)
		}
		d.mu.Unlock()
	}
}

// ShouldDispatch reports whether level differs from the last recorded level for key.
// A NONE level clears an existing state so the next crossing fires again. Lookup
// errors are returned alongside true so the alert is still sent.
func (d *AlertDeduplicator) ShouldDispatch(ctx context.Context, key domain.AlertKey, level domain.AlertLevel) (bool, error) {
	state, err := d.stateRepo.Get(ctx, key)
	if errors.Is(err, domain.ErrAlertStateNotFound) {
		return level != domain.AlertLevelNone, nil
	}
	if err != nil {
		return level != domain.AlertLevelNone, fmt.Errorf("load alert state: %w", err)
	}

	if level == domain.AlertLevelNone {
		if err := d.stateRepo.Delete(ctx, key); err != nil {
			return false, fmt.Errorf("clear alert state: %w", err)
		}
		d.logger.Debug().Str("key", key.String()).Msg("Cleared alert state")
		return false, nil
	}
	return state.Level != level, nil
}

// Record stores level as the last dispatched level for key
func (d *AlertDeduplicator) Record(ctx context.Context, key domain.AlertKey, level domain.AlertLevel) error {
	err := d.stateRepo.Upsert(ctx, &domain.AlertState{
		Key:       key,
		Level:     level,
		UpdatedAt: d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record alert state: %w", err)
	}
	d.logger.Debug().
		Str("key", key.String()).
		Str("level", string(level)).
		Msg("Recorded alert state")
	return nil
}
