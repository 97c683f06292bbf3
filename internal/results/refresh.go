package results

import (
	"context"
	"log/slog"
	"time"

	"github.com/lthibault/jitterbug/v2"
)

// Refresher re-fetches the applied state while the committed page still has
// records being analysed.
type Refresher struct {
	ctrl     *Controller
	interval time.Duration
	stdev    time.Duration
}

func NewRefresher(ctrl *Controller, interval time.Duration) *Refresher {
	return &Refresher{ctrl: ctrl, interval: interval, stdev: interval / 10}
}

// Run ticks until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.stdev, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if r.ctrl.refreshIf(needsRefresh) {
			slog.Debug("auto-refreshing results with processing records")
		}
	}
}

func needsRefresh(s Status) bool {
	return s.Phase == PhaseSuccess && s.Page != nil && s.Page.HasProcessing()
}
