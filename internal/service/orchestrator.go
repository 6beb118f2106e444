package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medreminder/internal/claim"
	"medreminder/internal/clock"
	"medreminder/internal/metrics"
	"medreminder/internal/model"
)

// OrchestratorDeps are the components one dispatch cycle is built from.
type OrchestratorDeps struct {
	Clock      *clock.Resolver
	Locator    *DueScheduleLocator
	Adherence  *AdherenceFilter
	Claimer    claim.Claimer // nil means every claim wins
	Recipients *RecipientResolver
	Dispatcher *Dispatcher
	// ScheduleConcurrency is how many schedules are processed at once; 1 is sequential.
	ScheduleConcurrency int
	Logger              *zap.Logger
}

// Orchestrator runs dispatch cycles. It keeps no state between cycles, so
// concurrent RunCycle calls are safe.
type Orchestrator struct {
	clock       *clock.Resolver
	locator     *DueScheduleLocator
	adherence   *AdherenceFilter
	claimer     claim.Claimer
	recipients  *RecipientResolver
	dispatcher  *Dispatcher
	concurrency int
	log         *zap.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Claimer == nil {
		deps.Claimer = claim.Nop{}
	}
	if deps.ScheduleConcurrency <= 0 {
		deps.ScheduleConcurrency = 1
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Orchestrator{
		clock:       deps.Clock,
		locator:     deps.Locator,
		adherence:   deps.Adherence,
		claimer:     deps.Claimer,
		recipients:  deps.Recipients,
		dispatcher:  deps.Dispatcher,
		concurrency: deps.ScheduleConcurrency,
		log:         deps.Logger.Named("orchestrator"),
	}
}

// RunCycle performs one tick at instant now. It only returns an error when the
// due-schedule query itself fails; per-schedule failures are counted in the
// report and the remaining schedules are still processed.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) (*model.CycleReport, error) {
	w := o.clock.Resolve(now)
	report := &model.CycleReport{
		RunID:     uuid.NewString(),
		Bucket:    w.Bucket,
		DayKey:    w.Day.Key,
		StartedAt: now,
	}
	log := o.log.With(
		zap.String("run_id", report.RunID),
		zap.String("bucket", w.Bucket),
		zap.String("day_key", w.Day.Key),
	)

	start := time.Now()
	err := o.run(ctx, w, report, log)
	report.Duration = time.Since(start)
	metrics.RecordCycle(err, report.Duration)

	if err != nil {
		log.Error("cycle failed", zap.Error(err), zap.Duration("took", report.Duration))
		return report, err
	}

	log.Info("cycle finished",
		zap.Int("due", report.Due),
		zap.Int("suppressed", report.Suppressed),
		zap.Int("claimed_elsewhere", report.Claimed),
		zap.Int("no_recipients", report.NoRecipients),
		zap.Int("store_errors", report.StoreErrors),
		zap.Int("dispatched", report.Dispatched),
		zap.Int("delivered", report.Delivered()),
		zap.Int("failed", report.Failed()),
		zap.Duration("took", report.Duration),
	)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, w model.TimeWindow, report *model.CycleReport, log *zap.Logger) error {
	due, err := o.locator.Locate(ctx, w.Bucket)
	if err != nil {
		return err
	}

	report.Due = len(due)
	metrics.RecordSchedules(metrics.StageDue, len(due))
	if len(due) == 0 {
		log.Debug("no schedules due")
		return nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for _, s := range due {
		s := s
		g.Go(func() error {
			stage, outcomes := o.processSchedule(ctx, s, w.Day, report.RunID, log)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes = append(report.Outcomes, outcomes...)
			switch stage {
			case metrics.StageSuppressed:
				report.Suppressed++
			case metrics.StageClaimed:
				report.Claimed++
			case metrics.StageNoRecipients:
				report.NoRecipients++
			case metrics.StageStoreError:
				report.StoreErrors++
			case metrics.StageDispatched:
				report.Dispatched++
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordSchedules(metrics.StageSuppressed, report.Suppressed)
	metrics.RecordSchedules(metrics.StageClaimed, report.Claimed)
	metrics.RecordSchedules(metrics.StageNoRecipients, report.NoRecipients)
	metrics.RecordSchedules(metrics.StageStoreError, report.StoreErrors)
	metrics.RecordSchedules(metrics.StageDispatched, report.Dispatched)
	return nil
}

// processSchedule walks one schedule through filter, resolve, claim and
// dispatch, returning the stage it stopped at.
func (o *Orchestrator) processSchedule(ctx context.Context, s model.Schedule, day model.Day, runID string, log *zap.Logger) (string, []model.DispatchOutcome) {
	log = log.With(zap.String("schedule_id", s.ID), zap.String("user_id", s.OwnerUserID))

	taken, err := o.adherence.Suppress(ctx, s, day)
	if err != nil {
		log.Error("adherence check failed", zap.Error(err))
		return metrics.StageStoreError, nil
	}
	if taken {
		log.Debug("already taken today, skipping", zap.String("name", s.DisplayName))
		return metrics.StageSuppressed, nil
	}

	set, err := o.recipients.Resolve(ctx, s.OwnerUserID)
	if err != nil {
		log.Error("resolve recipients failed", zap.Error(err))
		return metrics.StageStoreError, nil
	}
	if set.Empty() {
		log.Warn("user has no registered endpoints")
		return metrics.StageNoRecipients, nil
	}

	if !o.claimer.Claim(ctx, s.ID, day.Key, runID) {
		log.Info("claimed by another run, skipping")
		return metrics.StageClaimed, nil
	}

	log.Info("sending reminder", zap.String("name", s.DisplayName), zap.Int("endpoints", len(set.Endpoints)))
	return metrics.StageDispatched, o.dispatcher.Dispatch(ctx, s, set)
}
