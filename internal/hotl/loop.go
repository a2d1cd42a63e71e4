package hotl

import (
	"fmt"
	"log/slog"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// ContinueAction is returned by CheckAndContinue when the loop should
// run another iteration.
type ContinueAction struct {
	InjectMessage string
	Iteration     int
	StatusMessage string
}

// Loop manages a single HOTL session rooted at a working directory. Its
// state is durable: a process restart between iterations picks up right
// where it left off by re-reading the state file.
type Loop struct {
	workingDir string
	logger     *slog.Logger
}

// New returns a Loop rooted at workingDir. logger may be nil.
func New(workingDir string, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{workingDir: workingDir, logger: logger}
}

// Start begins a new loop, persisting its initial state. maxIterations
// of 0 means unlimited; completionPromise of nil means the loop only
// ends via max iterations or explicit Cancel.
func (l *Loop) Start(prompt string, maxIterations int, completionPromise *string) (*agentapi.HOTLState, error) {
	s := &agentapi.HOTLState{
		Prompt:            prompt,
		Iteration:         1,
		MaxIterations:     maxIterations,
		CompletionPromise: completionPromise,
		Status:            agentapi.HOTLRunning,
	}
	if err := saveState(l.workingDir, s); err != nil {
		return nil, err
	}
	l.logger.Info("hotl loop started", "max_iterations", maxIterations, "has_promise", completionPromise != nil)
	return s, nil
}

// Cancel stops the active loop, if any, returning whether one was active
// and the iteration it was cancelled at.
func (l *Loop) Cancel() (wasActive bool, iteration int, err error) {
	s, err := loadState(l.workingDir)
	if err != nil {
		return false, 0, err
	}
	if s == nil {
		return false, 0, nil
	}
	if err := clearState(l.workingDir); err != nil {
		return false, 0, err
	}
	l.logger.Info("hotl loop cancelled", "iteration", s.Iteration)
	return true, s.Iteration, nil
}

// GetState returns the active state, or nil if no loop is running.
func (l *Loop) GetState() (*agentapi.HOTLState, error) {
	return loadState(l.workingDir)
}

// IsActive reports whether a loop is currently running.
func (l *Loop) IsActive() (bool, error) {
	s, err := loadState(l.workingDir)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

// CheckAndContinue is called with the agent's latest output at the end
// of a run. It returns nil when the loop should end (completion promise
// matched, or max iterations reached) — in both cases the state file is
// cleared as a side effect. Otherwise it increments and persists the
// iteration counter and returns the next action to inject.
func (l *Loop) CheckAndContinue(agentOutput string) (*ContinueAction, error) {
	s, err := loadState(l.workingDir)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	if checkCompletion(s, agentOutput) {
		l.logger.Info("hotl loop completed", "promise", *s.CompletionPromise)
		return nil, clearState(l.workingDir)
	}

	if s.MaxIterations > 0 && s.Iteration >= s.MaxIterations {
		l.logger.Info("hotl loop ended: max iterations reached", "max_iterations", s.MaxIterations)
		return nil, clearState(l.workingDir)
	}

	s.Iteration++
	if err := saveState(l.workingDir, s); err != nil {
		return nil, err
	}

	status := fmt.Sprintf("HOTL iteration %d", s.Iteration)
	if s.MaxIterations > 0 {
		status += fmt.Sprintf("/%d", s.MaxIterations)
	}
	if s.CompletionPromise != nil {
		status += fmt.Sprintf(" | Complete: <promise>%s</promise>", *s.CompletionPromise)
	}

	l.logger.Info("hotl loop continuing", "iteration", s.Iteration)
	return &ContinueAction{
		InjectMessage: s.Prompt,
		Iteration:     s.Iteration,
		StatusMessage: status,
	}, nil
}

// WrapInjectMessage wraps a continuation's prompt with its status as a
// system reminder, the exact shape the on_loop_end hook callback injects
// back into the next request.
func (a *ContinueAction) WrapInjectMessage() string {
	return fmt.Sprintf("<system-reminder>\n%s\n</system-reminder>\n\n%s", a.StatusMessage, a.InjectMessage)
}
