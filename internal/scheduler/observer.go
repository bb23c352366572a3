package scheduler

import "envrun/internal/domain"

// Observer is notified as a run progresses. Calls happen on the
// scheduler's goroutine, in execution order.
type Observer interface {
	GroupStarted(group domain.Group)
	FileStarted(env, file string)
	FileFinished(result domain.TestResult)
	GroupFinished(group domain.Group, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) GroupStarted(domain.Group)         {}
func (NopObserver) FileStarted(string, string)        {}
func (NopObserver) FileFinished(domain.TestResult)    {}
func (NopObserver) GroupFinished(domain.Group, error) {}
