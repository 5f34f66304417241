package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQueue is returned by Queue.Dequeue when there is nothing to dequeue.
	ErrEmptyQueue = errors.New("queue is empty")

	// ErrEntityNotFound is returned by Runner.Initialize when the account has no
	// character with the runner's name.
	ErrEntityNotFound = errors.New("character not found")

	// ErrUnknownRunner is returned by Scheduler.Stop for names that were never
	// registered.
	ErrUnknownRunner = errors.New("runner not registered")

	// ErrSchedulerRunning is returned by Scheduler.Register and RunAll while
	// RunAll is in progress.
	ErrSchedulerRunning = errors.New("scheduler is running")
)

// ActionError reports a failed remote call: either the request never produced
// a response (Err is set) or the API answered with a non-2xx status.
type ActionError struct {
	Action     string
	Method     string
	StatusCode int
	Message    string
	Err        error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Action, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Action, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Action, e.StatusCode)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a response that lacks one of the reserved
// keys every action response must carry.
type MalformedResponseError struct {
	Action string
	Key    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed response from %s: %q %s", e.Action, e.Key, e.Reason)
	}
	return fmt.Sprintf("malformed response from %s: missing %q", e.Action, e.Key)
}

// RunnerError ties a runner failure to the character it happened on.
type RunnerError struct {
	Name string
	Err  error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner %s: %v", e.Name, e.Err)
}

func (e *RunnerError) Unwrap() error {
	return e.Err
}
