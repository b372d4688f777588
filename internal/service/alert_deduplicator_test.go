package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertDeduplicator_LevelTransitions(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())
	ctx := context.Background()
	key := domain.NewAlertKey(uuid.New(), "Food", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	steps := []struct {
		level domain.AlertLevel
		want  bool
	}{
		{domain.AlertLevelNear, true},
		{domain.AlertLevelNear, false},
		{domain.AlertLevelExceeded, true},
		{domain.AlertLevelExceeded, false},
		{domain.AlertLevelNear, true},
		{domain.AlertLevelNone, false},
		{domain.AlertLevelNear, true},
	}

	for i, step := range steps {
		ok, err := dedup.ShouldDispatch(ctx, key, step.level)
		require.NoError(t, err)
		assert.Equal(t, step.want, ok, "step %d (%s)", i, step.level)
		if ok {
			require.NoError(t, dedup.Record(ctx, key, step.level))
		}
	}
}

func TestAlertDeduplicator_CategoryIsCaseInsensitive(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())
	ctx := context.Background()
	userID := uuid.New()
	period := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, dedup.Record(ctx, domain.NewAlertKey(userID, "Food", period), domain.AlertLevelNear))

	ok, err := dedup.ShouldDispatch(ctx, domain.NewAlertKey(userID, " FOOD ", period), domain.AlertLevelNear)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlertDeduplicator_NewPeriodStartsClean(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())
	ctx := context.Background()
	userID := uuid.New()

	march := domain.NewAlertKey(userID, "Food", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	april := domain.NewAlertKey(userID, "Food", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, dedup.Record(ctx, march, domain.AlertLevelExceeded))

	ok, err := dedup.ShouldDispatch(ctx, april, domain.AlertLevelExceeded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAlertDeduplicator_NoneDeletesOnlyExistingState(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())
	ctx := context.Background()
	key := domain.NewAlertKey(uuid.New(), "Food", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		ok, err := dedup.ShouldDispatch(ctx, key, domain.AlertLevelNone)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 0, repo.Deletes, "nothing to clear for a budget that never alerted")

	require.NoError(t, dedup.Record(ctx, key, domain.AlertLevelNear))
	ok, err := dedup.ShouldDispatch(ctx, key, domain.AlertLevelNone)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, repo.Deletes)
	assert.Empty(t, repo.States)
}

func TestAlertDeduplicator_NoneLookupError(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	repo.GetFn = func(key domain.AlertKey) (*domain.AlertState, error) {
		return nil, errors.New("connection refused")
	}
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())

	ok, err := dedup.ShouldDispatch(context.Background(), domain.NewAlertKey(uuid.New(), "Food", time.Now()), domain.AlertLevelNone)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, repo.Deletes)
}

func TestAlertDeduplicator_FailsOpen(t *testing.T) {
	repo := testutil.NewMockAlertStateRepository()
	repo.GetFn = func(key domain.AlertKey) (*domain.AlertState, error) {
		return nil, errors.New("connection refused")
	}
	dedup := NewAlertDeduplicator(repo, zerolog.Nop())

	ok, err := dedup.ShouldDispatch(context.Background(), domain.NewAlertKey(uuid.New(), "Food", time.Now()), domain.AlertLevelNear)
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestAlertDeduplicator_Lock(t *testing.T) {
	dedup := NewAlertDeduplicator(testutil.NewMockAlertStateRepository(), zerolog.Nop())
	key := domain.NewAlertKey(uuid.New(), "Food", time.Now())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := dedup.Lock(key)
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, dedup.locks, "released keys are dropped")
}
