// Package store provides the persistence implementations for the interview
// Store interface: a Postgres store for deployments and an in-memory store
// for tests and single-node runs.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// Memory is an in-memory Store. All mutations run under one mutex, which
// trivially gives the atomic-append and compare-and-set semantics the
// interface demands.
type Memory struct {
	mu         sync.Mutex
	sessions   map[string]*interview.Session
	evals      map[string]*interview.EvaluationResult
	violations map[string][]*interview.Violation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:   make(map[string]*interview.Session),
		evals:      make(map[string]*interview.EvaluationResult),
		violations: make(map[string][]*interview.Violation),
	}
}

func (m *Memory) Create(_ context.Context, s *interview.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return interview.NewInvalidRequestError("session id already exists")
	}
	m.sessions[s.ID] = copySession(s)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*interview.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, interview.NewNotFoundError("session not found")
	}
	return copySession(s), nil
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]*interview.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*interview.Session, 0, 8)
	for _, s := range m.sessions {
		if s.Context.OwnerID == ownerID {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Start(_ context.Context, id, brief string, cred *interview.Credential) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, interview.NewNotFoundError("session not found")
	}
	if s.Status != interview.StatusPending {
		return false, nil
	}
	s.Status = interview.StatusInProgress
	s.AgentBrief = brief
	if cred != nil {
		c := *cred
		s.Credential = &c
	}
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) AppendTurn(_ context.Context, id string, t interview.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interview.NewNotFoundError("session not found")
	}
	if err := appendable(s); err != nil {
		return err
	}
	s.Transcript = append(s.Transcript, t)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SetTermination(_ context.Context, id string, reason interview.TerminationReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interview.NewNotFoundError("session not found")
	}
	if s.TerminationReason != nil {
		return interview.NewAlreadyTerminatedError("termination reason already set")
	}
	switch s.Status {
	case interview.StatusCompleted:
		return interview.NewSessionClosedError("session is completed")
	case interview.StatusPending:
		return interview.NewInvalidRequestError("session has not started")
	}
	s.TerminationReason = &reason
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SaveReconciled(_ context.Context, id string, turns []interview.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interview.NewNotFoundError("session not found")
	}
	s.Reconciled = copyTurns(turns)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) PatchReconciledTurn(_ context.Context, id string, index int, userText string, editedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interview.NewNotFoundError("session not found")
	}
	if index < 0 || index >= len(s.Reconciled) {
		return interview.NewIndexOutOfRangeError("turn index outside reconciled transcript")
	}
	s.Reconciled[index].UserText = userText
	s.Reconciled[index].EditedAt = &editedAt
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SaveEvaluation(_ context.Context, result *interview.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[result.SessionID]; !ok {
		return interview.NewNotFoundError("session not found")
	}
	if _, ok := m.evals[result.SessionID]; ok {
		return interview.NewAlreadyEvaluatedError("evaluation already exists for session")
	}
	r := *result
	m.evals[result.SessionID] = &r
	return nil
}

func (m *Memory) GetEvaluation(_ context.Context, sessionID string) (*interview.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.evals[sessionID]
	if !ok {
		return nil, interview.NewNotFoundError("evaluation not found")
	}
	out := *r
	return &out, nil
}

func (m *Memory) MarkCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return interview.NewNotFoundError("session not found")
	}
	switch s.Status {
	case interview.StatusCompleted:
		return nil
	case interview.StatusPending:
		return interview.NewInvalidRequestError("session has not started")
	}
	s.Status = interview.StatusCompleted
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) AppendViolation(_ context.Context, v *interview.Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[v.SessionID]; !ok {
		return interview.NewNotFoundError("session not found")
	}
	cp := *v
	m.violations[v.SessionID] = append(m.violations[v.SessionID], &cp)
	return nil
}

// Violations returns the recorded violations for a session. Audit-only.
func (m *Memory) Violations(sessionID string) []*interview.Violation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*interview.Violation, len(m.violations[sessionID]))
	for i, v := range m.violations[sessionID] {
		cp := *v
		out[i] = &cp
	}
	return out
}

func appendable(s *interview.Session) error {
	if s.TerminationReason != nil {
		return interview.NewSessionClosedError("session is terminated")
	}
	switch s.Status {
	case interview.StatusCompleted:
		return interview.NewSessionClosedError("session is completed")
	case interview.StatusPending:
		return interview.NewInvalidRequestError("session has not started")
	}
	return nil
}

func copySession(s *interview.Session) *interview.Session {
	cp := *s
	cp.Transcript = copyTurns(s.Transcript)
	cp.Reconciled = copyTurns(s.Reconciled)
	if s.TerminationReason != nil {
		r := *s.TerminationReason
		cp.TerminationReason = &r
	}
	if s.Credential != nil {
		c := *s.Credential
		cp.Credential = &c
	}
	return &cp
}

func copyTurns(in []interview.Turn) []interview.Turn {
	if in == nil {
		return nil
	}
	out := make([]interview.Turn, len(in))
	copy(out, in)
	return out
}
