package engine

import "time"

// Observer receives runner lifecycle events. Implementations are called
// synchronously from the runner goroutine, so they must return quickly and
// must be safe for concurrent use when shared between runners.
type Observer interface {
	RunStarted(name string)
	RunFinished(name string, err error)
	TaskStarted(name string, task Task)
	TaskCompleted(name string, task Task, outcome Outcome, elapsed time.Duration)
	TaskFailed(name string, task Task, err error, elapsed time.Duration)
	CooldownStarted(name string, wait time.Duration)
}

// NopObserver ignores every event. Embed it to implement only the events
// you care about.
type NopObserver struct{}

func (NopObserver) RunStarted(string) {}
func (NopObserver) RunFinished(string, error) {}
func (NopObserver) TaskStarted(string, Task) {}
func (NopObserver) TaskCompleted(string, Task, Outcome, time.Duration) {}
func (NopObserver) TaskFailed(string, Task, error, time.Duration) {}
func (NopObserver) CooldownStarted(string, time.Duration) {}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (o Observers) RunStarted(name string) {
	for _, obs := range o {
		obs.RunStarted(name)
	}
}

func (o Observers) RunFinished(name string, err error) {
	for _, obs := range o {
		obs.RunFinished(name, err)
	}
}

func (o Observers) TaskStarted(name string, task Task) {
	for _, obs := range o {
		obs.TaskStarted(name, task)
	}
}

func (o Observers) TaskCompleted(name string, task Task, outcome Outcome, elapsed time.Duration) {
	for _, obs := range o {
		obs.TaskCompleted(name, task, outcome, elapsed)
	}
}

func (o Observers) TaskFailed(name string, task Task, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.TaskFailed(name, task, err, elapsed)
	}
}

func (o Observers) CooldownStarted(name string, wait time.Duration) {
	for _, obs := range o {
		obs.CooldownStarted(name, wait)
	}
}
