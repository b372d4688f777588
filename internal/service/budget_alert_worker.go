package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/smartspend/smartspend-backend/internal/domain"
	"github.com/smartspend/smartspend-backend/internal/util"
	"golang.org/x/sync/errgroup"
)

// ErrSweepInProgress is returned by RunOnce when another sweep has not finished yet
var ErrSweepInProgress = errors.New("budget alert sweep already in progress")

const archiveTimeout = 30 * time.Second

// SweepReportArchiver stores the result of a finished sweep
type SweepReportArchiver interface {
	Archive(ctx context.Context, result *SweepResult) error
}

// SweepResult summarizes one budget alert sweep
type SweepResult struct {
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	Period           string    `json:"period"`
	Budgets          int       `json:"budgets"`
	Evaluated        int       `json:"evaluated"`
	Skipped          int       `json:"skipped"`
	Near             int       `json:"near"`
	Exceeded         int       `json:"exceeded"`
	Suppressed       int       `json:"suppressed"`
	Errors           int       `json:"errors"`
	DispatchFailures int       `json:"dispatchFailures"`
}

// BudgetAlertWorker periodically evaluates every budget of the current period and
// dispatches alerts for budgets near or over their limit
type BudgetAlertWorker struct {
	snapshots  *BudgetSnapshotService
	userRepo   domain.UserRepository
	dispatcher *AlertDispatcher
	dedup      *AlertDeduplicator
	archiver   SweepReportArchiver
	logger     zerolog.Logger

	schedule   cron.Schedule
	cronSpec   string
	thresholds AlertThresholds
	workers    int
	runOnStart bool
	location   *time.Location
	now        func() time.Time

	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
	sweeping atomic.Bool
}

// BudgetAlertWorkerConfig holds configuration for the budget alert worker
type BudgetAlertWorkerConfig struct {
	Schedule   string // Standard 5-field cron expression or descriptor
	Thresholds AlertThresholds
	Workers    int  // Budgets evaluated concurrently
	RunOnStart bool // Sweep once as soon as the worker starts
	Location   *time.Location
}

// DefaultBudgetAlertWorkerConfig returns an hourly sweep with 90%/100% thresholds
func DefaultBudgetAlertWorkerConfig() BudgetAlertWorkerConfig {
	return BudgetAlertWorkerConfig{
		Schedule:   "0 * * * *", // Top of every hour
		Thresholds: DefaultAlertThresholds(),
		Workers:    1,
		Location:   time.UTC,
	}
}

// NewBudgetAlertWorker creates a new budget alert worker
func NewBudgetAlertWorker(
	snapshots *BudgetSnapshotService,
	userRepo domain.UserRepository,
	dispatcher *AlertDispatcher,
	logger zerolog.Logger,
	config BudgetAlertWorkerConfig,
) (*BudgetAlertWorker, error) {
	defaults := DefaultBudgetAlertWorkerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.Thresholds.Near.IsZero() && config.Thresholds.Over.IsZero() {
		config.Thresholds = defaults.Thresholds
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}

	schedule, err := cron.ParseStandard(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse alert schedule %q: %w", config.Schedule, err)
	}
	if err := config.Thresholds.Validate(); err != nil {
		return nil, err
	}

	return &BudgetAlertWorker{
		snapshots:  snapshots,
		userRepo:   userRepo,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "budget_alert_worker").Logger(),
		schedule:   schedule,
		cronSpec:   config.Schedule,
		thresholds: config.Thresholds,
		workers:    config.Workers,
		runOnStart: config.RunOnStart,
		location:   config.Location,
		now:        time.Now,
	}, nil
}

// SetDeduplicator enables suppression of repeated alerts at an unchanged level
func (w *BudgetAlertWorker) SetDeduplicator(dedup *AlertDeduplicator) {
	w.dedup = dedup
}

// SetReportArchiver sets where finished sweep results are stored
func (w *BudgetAlertWorker) SetReportArchiver(archiver SweepReportArchiver) {
	w.archiver = archiver
}

// Start begins the scheduled sweeps
func (w *BudgetAlertWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	w.logger.Info().
		Str("schedule", w.cronSpec).
		Str("near_threshold", w.thresholds.Near.String()).
		Str("over_threshold", w.thresholds.Over.String()).
		Int("workers", w.workers).
		Bool("dedup", w.dedup != nil).
		Msg("Starting budget alert worker")

	go w.run(ctx, stopCh, doneCh)
}

// Stop gracefully stops the worker, interrupting a sweep in progress
func (w *BudgetAlertWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping budget alert worker")
	<-doneCh
	w.logger.Info().Msg("Budget alert worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *BudgetAlertWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// run is the main loop for the budget alert worker
func (w *BudgetAlertWorker) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(doneCh)
	}()

	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if w.runOnStart {
		w.tick(ctx)
	}

	for {
		now := w.now().In(w.location)
		next := w.schedule.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.tick(ctx)
		}
	}
}

// tick runs one scheduled sweep. A tick that overlaps a running sweep does nothing.
func (w *BudgetAlertWorker) tick(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			w.logger.Warn().Msg("Previous budget alert sweep still running, skipping tick")
			return
		}
		w.logger.Error().Err(err).Msg("Budget alert sweep failed")
	}
}

// RunOnce performs a single sweep over all budgets of the current period.
// It returns ErrSweepInProgress without doing anything if a sweep is already running.
func (w *BudgetAlertWorker) RunOnce(ctx context.Context) (*SweepResult, error) {
	if !w.sweeping.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer w.sweeping.Store(false)

	result, err := w.sweep(ctx)
	if err != nil {
		return nil, err
	}

	if w.archiver != nil && ctx.Err() == nil {
		archiveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		if err := w.archiver.Archive(archiveCtx, result); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to archive sweep report")
		}
	}
	return result, nil
}

type budgetOutcomeKind int

const (
	outcomeNone budgetOutcomeKind = iota
	outcomeSkipped
	outcomeNear
	outcomeExceeded
	outcomeSuppressed
	outcomeError
)

type budgetOutcome struct {
	kind             budgetOutcomeKind
	dispatchFailures int
}

// budgetEvaluation carries one budget through a sweep. A skipped budget may still
// carry a NONE event so its alert state can be cleared.
type budgetEvaluation struct {
	budget  *domain.Budget
	event   *domain.AlertEvent
	outcome budgetOutcome
}

func (w *BudgetAlertWorker) sweep(ctx context.Context) (*SweepResult, error) {
	started := w.now()
	period := util.CurrentPeriod(started, w.location)
	result := &SweepResult{
		StartedAt: started.UTC(),
		Period:    period.Format("2006-01"),
	}

	w.logger.Info().Str("period", result.Period).Msg("Starting budget alert sweep")

	budgets, err := w.snapshots.ListAllWithSpend(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	result.Budgets = len(budgets)

	current := make([]*domain.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b != nil && util.SamePeriod(b.Period, period) {
			current = append(current, b)
		}
	}
	result.Evaluated = len(current)

	evals := make([]budgetEvaluation, len(current))
	for i, b := range current {
		evals[i].budget = b
	}

	var g errgroup.Group
	g.SetLimit(w.workers)
	for i := range evals {
		if ctx.Err() != nil {
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			break
		}
		g.Go(func() error {
			w.evaluateBudget(ctx, &evals[i], period)
			return nil
		})
	}
	_ = g.Wait()

	pending := w.selectForDispatch(evals)

	var dg errgroup.Group
	dg.SetLimit(w.workers)
	for _, i := range pending {
		if ctx.Err() != nil {
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			break
		}
		dg.Go(func() error {
			evals[i].outcome = w.dispatchBudget(ctx, &evals[i])
			return nil
		})
	}
	_ = dg.Wait()

	for _, e := range evals {
		switch e.outcome.kind {
		case outcomeSkipped:
			result.Skipped++
		case outcomeNear:
			result.Near++
		case outcomeExceeded:
			result.Exceeded++
		case outcomeSuppressed:
			result.Suppressed++
		case outcomeError:
			result.Errors++
		}
		result.DispatchFailures += e.outcome.dispatchFailures
	}
	result.FinishedAt = w.now().UTC()

	w.logger.Info().
		Str("period", result.Period).
		Int("budgets", result.Budgets).
		Int("evaluated", result.Evaluated).
		Int("skipped", result.Skipped).
		Int("near", result.Near).
		Int("exceeded", result.Exceeded).
		Int("suppressed", result.Suppressed).
		Int("errors", result.Errors).
		Int("dispatch_failures", result.DispatchFailures).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Completed budget alert sweep")

	return result, nil
}

// evaluateBudget classifies one budget into e. It never panics and logs at most
// one error for the budget.
func (w *BudgetAlertWorker) evaluateBudget(ctx context.Context, e *budgetEvaluation, period time.Time) {
	b := e.budget
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Int64("budget_id", b.ID).
				Interface("panic", r).
				Msg("Recovered from panic while evaluating budget")
			e.event = nil
			e.outcome = budgetOutcome{kind: outcomeError}
		}
	}()

	event, err := w.evaluate(ctx, b, period)
	e.event = event
	if err != nil {
		var skip *domain.BudgetSkipError
		if errors.As(err, &skip) {
			entry := w.logger.Error()
			if errors.Is(err, domain.ErrNonPositiveLimit) {
				entry = w.logger.Debug()
			}
			entry.Err(err).Int64("budget_id", b.ID).Str("category", b.Category).Msg("Skipping budget")
			e.outcome = budgetOutcome{kind: outcomeSkipped}
			return
		}
		w.logger.Error().Err(err).Int64("budget_id", b.ID).Msg("Failed to evaluate budget")
		e.event = nil
		e.outcome = budgetOutcome{kind: outcomeError}
		return
	}
	e.outcome = budgetOutcome{kind: outcomeNone}
}

// selectForDispatch returns the indexes of evaluations that go on to dispatch.
// With deduplication, budgets sharing an alert key collapse to the most severe one
// and the rest are counted as suppressed.
func (w *BudgetAlertWorker) selectForDispatch(evals []budgetEvaluation) []int {
	pending := make([]int, 0, len(evals))
	if w.dedup == nil {
		for i, e := range evals {
			if e.event != nil && e.outcome.kind != outcomeSkipped {
				pending = append(pending, i)
			}
		}
		return pending
	}

	winners := make(map[string]int)
	order := make([]string, 0, len(evals))
	for i, e := range evals {
		if e.event == nil {
			continue
		}
		k := domain.NewAlertKey(e.event.User.ID, e.event.Category, e.event.Period).String()
		best, ok := winners[k]
		if !ok {
			winners[k] = i
			order = append(order, k)
			continue
		}
		loser := i
		if e.event.Level.Severity() > evals[best].event.Level.Severity() {
			winners[k] = i
			loser = best
		}
		w.collapse(&evals[loser], k)
	}

	for _, k := range order {
		pending = append(pending, winners[k])
	}
	return pending
}

func (w *BudgetAlertWorker) collapse(e *budgetEvaluation, key string) {
	if e.outcome.kind == outcomeSkipped || e.event.Level == domain.AlertLevelNone {
		return
	}
	w.logger.Debug().
		Int64("budget_id", e.budget.ID).
		Str("key", key).
		Str("level", string(e.event.Level)).
		Msg("Another budget shares this alert key, not dispatching")
	e.outcome = budgetOutcome{kind: outcomeSuppressed}
}

// dispatchBudget sends the alert for an evaluated budget, consulting and updating
// the alert state when deduplication is enabled. It never panics.
func (w *BudgetAlertWorker) dispatchBudget(ctx context.Context, e *budgetEvaluation) (out budgetOutcome) {
	b, event := e.budget, e.event
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Int64("budget_id", b.ID).
				Interface("panic", r).
				Msg("Recovered from panic while dispatching budget alert")
			out = budgetOutcome{kind: outcomeError}
		}
	}()

	var key domain.AlertKey
	if w.dedup != nil {
		key = domain.NewAlertKey(event.User.ID, event.Category, event.Period)
		unlock := w.dedup.Lock(key)
		defer unlock()

		dispatch, err := w.dedup.ShouldDispatch(ctx, key, event.Level)
		if err != nil {
			w.logger.Warn().Err(err).Int64("budget_id", b.ID).Msg("Alert state unavailable")
		}
		if !dispatch {
			if event.Level == domain.AlertLevelNone {
				return e.outcome
			}
			w.logger.Debug().
				Int64("budget_id", b.ID).
				Str("level", string(event.Level)).
				Msg("Alert level unchanged, not dispatching")
			return budgetOutcome{kind: outcomeSuppressed}
		}
	}
	if event.Level == domain.AlertLevelNone {
		return e.outcome
	}

	w.logger.Info().
		Int64("budget_id", b.ID).
		Str("user_id", event.User.ID.String()).
		Str("category", event.Category).
		Str("level", string(event.Level)).
		Str("ratio", event.Ratio.String()).
		Str("spent", domain.FormatAmount(event.Spent)).
		Str("limit", domain.FormatAmount(event.Limit)).
		Msg("Budget alert triggered")

	outcome := w.dispatcher.Dispatch(ctx, event.User, event.Category, event.Spent, event.Limit, event.Exceeded())

	if w.dedup != nil && outcome.Delivered() {
		if err := w.dedup.Record(ctx, key, event.Level); err != nil {
			w.logger.Warn().Err(err).Int64("budget_id", b.ID).Msg("Failed to record alert state")
		}
	}

	kind := outcomeNear
	if event.Exceeded() {
		kind = outcomeExceeded
	}
	return budgetOutcome{kind: kind, dispatchFailures: len(outcome.Errors)}
}

// evaluate resolves the budget's user and classifies its utilization. A budget
// with a non-positive limit is skipped but still yields a NONE event for its user.
func (w *BudgetAlertWorker) evaluate(ctx context.Context, b *domain.Budget, period time.Time) (*domain.AlertEvent, error) {
	user, err := w.resolveUser(ctx, b)
	if err != nil {
		return nil, err
	}

	limit := b.Limit()
	spent := b.Spent()
	event := &domain.AlertEvent{
		BudgetID: b.ID,
		User:     user,
		Category: b.Category,
		Period:   period,
		Level:    domain.AlertLevelNone,
		Spent:    spent,
		Limit:    limit,
	}
	if !limit.IsPositive() {
		return event, &domain.BudgetSkipError{BudgetID: b.ID, Err: domain.ErrNonPositiveLimit}
	}
	if spent.IsNegative() {
		return nil, &domain.BudgetSkipError{BudgetID: b.ID, Err: fmt.Errorf("%w: negative spent %s", domain.ErrMalformedAmount, spent)}
	}

	event.Level, event.Ratio = ClassifyBudget(spent, limit, w.thresholds)
	return event, nil
}

func (w *BudgetAlertWorker) resolveUser(ctx context.Context, b *domain.Budget) (*domain.User, error) {
	if b.User != nil {
		return b.User, nil
	}
	if b.UserID == uuid.Nil || w.userRepo == nil {
		return nil, &domain.BudgetSkipError{BudgetID: b.ID, Err: domain.ErrMissingUser}
	}

	user, err := w.userRepo.GetByID(ctx, b.UserID)
	if errors.Is(err, domain.ErrUserNotFound) || (err == nil && user == nil) {
		return nil, &domain.BudgetSkipError{BudgetID: b.ID, Err: domain.ErrMissingUser}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", b.UserID, err)
	}
	return user, nil
}
