package run

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/relaymind/agentcore/pkg/agentapi"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map,
// mirroring the teacher's session-store and job-store conventions
// (internal/sessions, internal/jobs). Suitable for tests and for
// exercising the runtime without a database.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string]*agentapi.Run
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*agentapi.Run)}
}

func (s *MemoryStore) Create(ctx context.Context, r *agentapi.Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = cloneRun(r)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*agentapi.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRun(r), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, to agentapi.RunStatus, apply func(*agentapi.Run)) (*agentapi.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(r.Status, to) {
		return nil, ErrInvalidTransition
	}
	r.Status = to
	if to == agentapi.RunStatusRunning {
		r.StartedAt = time.Now()
	}
	if to.Terminal() {
		r.CompletedAt = time.Now()
	}
	if apply != nil {
		apply(r)
	}
	return cloneRun(r), nil
}

func (s *MemoryStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*agentapi.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*agentapi.Run
	for _, r := range s.runs {
		if r.AgentID == agentID {
			out = append(out, cloneRun(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRun(r *agentapi.Run) *agentapi.Run {
	cp := *r
	return &cp
}
