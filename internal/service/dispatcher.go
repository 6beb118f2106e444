package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medreminder/internal/logger"
	"medreminder/internal/metrics"
	"medreminder/internal/model"
	"medreminder/internal/push"
	"medreminder/internal/repository"
)

// DefaultEndpointConcurrency bounds in-flight deliveries per schedule.
const DefaultEndpointConcurrency = 16

// Templates shape the reminder payload. Body takes the display name and dosage.
type Templates struct {
	Title string
	Body  string
	Icon  string
}

// DefaultTemplates returns the stock reminder texts.
func DefaultTemplates() Templates {
	return Templates{
		Title: "Hora do Remédio! 💊",
		Body:  "É hora de tomar o seu %s (%s).",
		Icon:  "/favicon.ico",
	}
}

// DispatcherConfig holds the optional dispatcher settings.
type DispatcherConfig struct {
	Templates           Templates
	EndpointConcurrency int
	// Pruner, when set, removes endpoints the transport reports as unregistered.
	Pruner repository.EndpointPruner
}

// Dispatcher delivers one schedule's reminder to every endpoint of its owner.
type Dispatcher struct {
	transport push.Transport
	tmpl      Templates
	limit     int
	pruner    repository.EndpointPruner
	log       *zap.Logger
}

func NewDispatcher(transport push.Transport, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.Templates == (Templates{}) {
		cfg.Templates = DefaultTemplates()
	}
	if cfg.EndpointConcurrency <= 0 {
		cfg.EndpointConcurrency = DefaultEndpointConcurrency
	}

	return &Dispatcher{
		transport: transport,
		tmpl:      cfg.Templates,
		limit:     cfg.EndpointConcurrency,
		pruner:    cfg.Pruner,
		log:       log.Named("dispatcher"),
	}
}

// BuildNotification renders the reminder for s.
func (d *Dispatcher) BuildNotification(s model.Schedule) model.Notification {
	return model.Notification{
		Title: d.tmpl.Title,
		Body:  fmt.Sprintf(d.tmpl.Body, s.DisplayName, s.DosageLabel),
		Icon:  d.tmpl.Icon,
		Data: map[string]string{
			"type":        model.NotificationTypeMedicationReminder,
			"schedule_id": s.ID,
		},
	}
}

// Dispatch sends to every endpoint concurrently and returns once all attempts
// have settled. A failing endpoint never stops its siblings; failures are
// reported in the outcomes, not as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, s model.Schedule, set model.UserEndpointSet) []model.DispatchOutcome {
	if set.Empty() {
		return nil
	}

	n := d.BuildNotification(s)
	outcomes := make([]model.DispatchOutcome, len(set.Endpoints))

	var g errgroup.Group
	g.SetLimit(d.limit)
	for i, token := range set.Endpoints {
		i, token := i, token
		g.Go(func() error {
			outcomes[i] = d.deliver(ctx, s, token, n)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	if d.pruner != nil {
		d.prune(ctx, s, outcomes)
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, s model.Schedule, token string, n model.Notification) model.DispatchOutcome {
	start := time.Now()
	err := d.transport.Send(ctx, token, n)
	took := time.Since(start)

	out := model.DispatchOutcome{
		ScheduleID: s.ID,
		Endpoint:   token,
		Status:     model.DeliveryDelivered,
		Duration:   took,
	}

	if err != nil {
		out.Status = model.DeliveryFailed
		out.Reason = err.Error()
		out.Err = err
		d.log.Warn("delivery failed",
			zap.String("schedule_id", s.ID),
			zap.String("endpoint", logger.TokenSuffix(token)),
			zap.Duration("took", took),
			zap.Error(err),
		)
	} else {
		d.log.Info("delivered",
			zap.String("schedule_id", s.ID),
			zap.String("endpoint", logger.TokenSuffix(token)),
			zap.Duration("took", took),
		)
	}

	metrics.RecordDelivery(out.Status, took)
	return out
}

func (d *Dispatcher) prune(ctx context.Context, s model.Schedule, outcomes []model.DispatchOutcome) {
	for _, o := range outcomes {
		if o.Delivered() || !errors.Is(o.Err, push.ErrUnregistered) {
			continue
		}
		if err := d.pruner.RemoveEndpoint(ctx, s.OwnerUserID, o.Endpoint); err != nil {
			d.log.Warn("prune endpoint failed",
				zap.String("user_id", s.OwnerUserID),
				zap.String("endpoint", logger.TokenSuffix(o.Endpoint)),
				zap.Error(err),
			)
			continue
		}
		d.log.Info("pruned unregistered endpoint",
			zap.String("user_id", s.OwnerUserID),
			zap.String("endpoint", logger.TokenSuffix(o.Endpoint)),
		)
	}
}
