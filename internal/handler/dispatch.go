package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"medreminder/internal/httputil"
	"medreminder/internal/model"
)

// CycleRunner runs one dispatch cycle at the given instant.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (*model.CycleReport, error)
}

type DispatchHandler struct {
	runner CycleRunner
	log    *zap.Logger
	now    func() time.Time
}

func NewDispatchHandler(runner CycleRunner, log *zap.Logger) *DispatchHandler {
	return &DispatchHandler{
		runner: runner,
		log:    log.Named("http"),
		now:    time.Now,
	}
}

// CycleSummary is the JSON view of a finished cycle.
type CycleSummary struct {
	RunID        string `json:"run_id"`
	Bucket       string `json:"bucket"`
	DayKey       string `json:"day_key"`
	Due          int    `json:"due"`
	Suppressed   int    `json:"suppressed"`
	Claimed      int    `json:"claimed_elsewhere"`
	NoRecipients int    `json:"no_recipients"`
	StoreErrors  int    `json:"store_errors"`
	Dispatched   int    `json:"dispatched"`
	Delivered    int    `json:"delivered"`
	Failed       int    `json:"failed"`
	DurationMS   int64  `json:"duration_ms"`
}

func summarize(r *model.CycleReport) CycleSummary {
	return CycleSummary{
		RunID:        r.RunID,
		Bucket:       r.Bucket,
		DayKey:       r.DayKey,
		Due:          r.Due,
		Suppressed:   r.Suppressed,
		Claimed:      r.Claimed,
		NoRecipients: r.NoRecipients,
		StoreErrors:  r.StoreErrors,
		Dispatched:   r.Dispatched,
		Delivered:    r.Delivered(),
		Failed:       r.Failed(),
		DurationMS:   r.Duration.Milliseconds(),
	}
}

// Run handles POST /dispatch/run
// Runs one cycle for the current minute and returns its summary. The cycle
// outlives a client that disconnects mid-request.
func (h *DispatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.RunCycle(context.WithoutCancel(r.Context()), h.now())
	if err != nil {
		h.log.Error("manual cycle failed", zap.Error(err))
		httputil.WriteInternalError(w, "Dispatch cycle failed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summarize(report))
}
