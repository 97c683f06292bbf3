package results

import (
	"fmt"

	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/pkg/models"
)

// Phase is the coarse state of the current fetch.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailed  Phase = "failed"
)

// Status is the single value a view reads. Page is set only in PhaseSuccess
// and Err only in PhaseFailed.
type Status struct {
	Phase Phase
	State query.State
	Page  *models.ResultPage
	Err   *ClassifiedError
}

func idle(s query.State) Status { return Status{Phase: PhaseIdle, State: s} }

func loading(s query.State) Status { return Status{Phase: PhaseLoading, State: s} }

func succeeded(s query.State, p models.ResultPage) Status {
	return Status{Phase: PhaseSuccess, State: s, Page: &p}
}

func failed(s query.State, ce ClassifiedError) Status {
	return Status{Phase: PhaseFailed, State: s, Err: &ce}
}

// Settled reports whether no request is pending for the status.
func (s Status) Settled() bool {
	return s.Phase != PhaseLoading
}

// String renders a one-line summary, mostly for logs.
func (s Status) String() string {
	switch s.Phase {
	case PhaseSuccess:
		return fmt.Sprintf("%s page=%d items=%d total=%d", s.Phase, s.State.Page, len(s.Page.Items), s.Page.TotalCount)
	case PhaseFailed:
		return fmt.Sprintf("%s %s", s.Phase, s.Err.Error())
	default:
		return string(s.Phase)
	}
}
