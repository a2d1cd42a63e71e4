// Package run implements the Run Manager: creation, status transitions,
// and terminal stop-reason bookkeeping for one user-initiated turn (spec
// §4.6). The only valid status transitions are
// created -> running -> {completed, cancelled, failed}; any other write
// is rejected so that external callers (the cancellation-aware stream
// wrapper) can safely race a status update against the step loop's own
// terminal write.
package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// ErrNotFound is returned by Get/Update when no run exists with the
// given id.
var ErrNotFound = errors.New("run: not found")

// ErrInvalidTransition is returned by Update when the requested status
// is not reachable from the run's current status.
var ErrInvalidTransition = errors.New("run: invalid status transition")

// Store persists Run records. Implementations must make UpdateStatus a
// compare-and-set on the current status so that a racing external
// cancellation and an in-flight step loop's own terminal write can never
// both succeed.
type Store interface {
	Create(ctx context.Context, r *agentapi.Run) error
	Get(ctx context.Context, id string) (*agentapi.Run, error)
	// UpdateStatus performs the CAS status transition described on Store,
	// applying fields to the stored record. Returns ErrInvalidTransition
	// if the stored run is not in a state from which `to` is reachable.
	UpdateStatus(ctx context.Context, id string, to agentapi.RunStatus, apply func(*agentapi.Run)) (*agentapi.Run, error)
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*agentapi.Run, error)
}

// validTransitions maps a current status to the set of statuses
// reachable from it in one Update call, matching spec §3/§6:
// created -> running -> {completed, cancelled, failed}. Terminal states
// have no outgoing transitions.
var validTransitions = map[agentapi.RunStatus]map[agentapi.RunStatus]bool{
	agentapi.RunStatusCreated: {
		agentapi.RunStatusRunning:   true,
		agentapi.RunStatusCancelled: true, // a run may be cancelled before its first step
		agentapi.RunStatusFailed:    true, // e.g. a hook-blocked on_loop_start
	},
	agentapi.RunStatusRunning: {
		agentapi.RunStatusCompleted: true,
		agentapi.RunStatusCancelled: true,
		agentapi.RunStatusFailed:    true,
	},
}

// CanTransition reports whether `to` is reachable from `from`.
func CanTransition(from, to agentapi.RunStatus) bool {
	return validTransitions[from][to]
}

// Manager is the high-level API the step loop and streaming dispatcher
// use; it wraps a Store with the named lifecycle operations from spec
// §4.6 rather than requiring callers to construct *agentapi.Run by hand.
type Manager struct {
	store Store
}

// NewManager wraps store. store must not be nil.
func NewManager(store Store) *Manager {
	if store == nil {
		panic("run: NewManager requires a non-nil Store")
	}
	return &Manager{store: store}
}

// Create persists a new run in the `created` status.
func (m *Manager) Create(ctx context.Context, r *agentapi.Run) error {
	if r.Status == "" {
		r.Status = agentapi.RunStatusCreated
	}
	if r.Status != agentapi.RunStatusCreated {
		return fmt.Errorf("run: new runs must start in %q, got %q", agentapi.RunStatusCreated, r.Status)
	}
	return m.store.Create(ctx, r)
}

// Get returns the run by id.
func (m *Manager) Get(ctx context.Context, id string) (*agentapi.Run, error) {
	return m.store.Get(ctx, id)
}

// ListByAgent returns the most recent runs owned by agentID.
func (m *Manager) ListByAgent(ctx context.Context, agentID string, limit int) ([]*agentapi.Run, error) {
	return m.store.ListByAgent(ctx, agentID, limit)
}

// MarkRunning transitions a run from created to running, as the step
// loop does immediately before issuing its first LLM request.
func (m *Manager) MarkRunning(ctx context.Context, id string) (*agentapi.Run, error) {
	return m.store.UpdateStatus(ctx, id, agentapi.RunStatusRunning, func(r *agentapi.Run) {})
}

// Complete transitions a run to completed, recording the stop reason and
// final usage. Called by the streaming dispatcher's finalizer on
// graceful exit (spec §4.5 "Finalization").
func (m *Manager) Complete(ctx context.Context, id, stopReason string, usage agentapi.UsageStats) (*agentapi.Run, error) {
	return m.store.UpdateStatus(ctx, id, agentapi.RunStatusCompleted, func(r *agentapi.Run) {
		r.StopReason = stopReason
		r.Usage = usage
	})
}

// Fail transitions a run to failed, recording the stop reason and error
// detail. Called on any error-classified exit (spec §7).
func (m *Manager) Fail(ctx context.Context, id, stopReason, errMsg string, usage agentapi.UsageStats) (*agentapi.Run, error) {
	return m.store.UpdateStatus(ctx, id, agentapi.RunStatusFailed, func(r *agentapi.Run) {
		r.StopReason = stopReason
		r.Error = errMsg
		r.Usage = usage
	})
}

// Cancel transitions a run to cancelled. This is the operation external
// callers invoke out-of-band (spec §4.6: "External callers may update
// status to cancelled at any time from created or running"); the
// cancellation-aware stream wrapper polls for exactly this transition.
func (m *Manager) Cancel(ctx context.Context, id string) (*agentapi.Run, error) {
	return m.store.UpdateStatus(ctx, id, agentapi.RunStatusCancelled, func(r *agentapi.Run) {
		r.StopReason = "cancelled"
	})
}

// IsCancelled reports whether the run's current stored status is
// cancelled, the signal the cancellation-aware wrapper polls for.
func (m *Manager) IsCancelled(ctx context.Context, id string) (bool, error) {
	r, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return r.Status == agentapi.RunStatusCancelled, nil
}
