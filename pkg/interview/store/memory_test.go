package store

import (
	"context"
	"testing"
	"time"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

func seedSession(t *testing.T, m *Memory, status interview.Status) *interview.Session {
	t.Helper()
	now := time.Now().UTC()
	s := &interview.Session{
		ID:         "sess_1",
		Mode:       interview.ModePrescreen,
		Status:     interview.StatusPending,
		Transcript: []interview.Turn{},
		Context:    interview.Context{OwnerID: "user_01"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if status != interview.StatusPending {
		started, err := m.Start(context.Background(), s.ID, "brief", nil)
		if err != nil || !started {
			t.Fatalf("Start: started=%v err=%v", started, err)
		}
	}
	if status == interview.StatusCompleted {
		if err := m.MarkCompleted(context.Background(), s.ID); err != nil {
			t.Fatalf("MarkCompleted: %v", err)
		}
	}
	return s
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusInProgress)
	if err := m.AppendTurn(context.Background(), "sess_1", interview.Turn{AIText: "q", UserText: "a"}); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}

	got, err := m.Get(context.Background(), "sess_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.Transcript[0].UserText = "mutated"

	again, err := m.Get(context.Background(), "sess_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Transcript[0].UserText != "a" {
		t.Fatalf("stored turn mutated through a returned copy")
	}
}

func TestMemory_StartIsCompareAndSet(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusPending)

	started, err := m.Start(context.Background(), "sess_1", "brief", &interview.Credential{Secret: "s"})
	if err != nil || !started {
		t.Fatalf("first Start: started=%v err=%v", started, err)
	}
	started, err = m.Start(context.Background(), "sess_1", "other", nil)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if started {
		t.Fatalf("second Start must lose the compare-and-set")
	}

	if _, err := m.Start(context.Background(), "missing", "brief", nil); !interview.IsKind(err, interview.ErrNotFound) {
		t.Fatalf("err=%v, want not_found", err)
	}
}

func TestMemory_AppendClassification(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusPending)

	err := m.AppendTurn(context.Background(), "sess_1", interview.Turn{})
	if !interview.IsKind(err, interview.ErrInvalidRequest) {
		t.Fatalf("pending append err=%v, want invalid_request", err)
	}

	if started, err := m.Start(context.Background(), "sess_1", "b", nil); err != nil || !started {
		t.Fatalf("Start: %v", err)
	}
	if err := m.AppendTurn(context.Background(), "sess_1", interview.Turn{AIText: "q"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := m.SetTermination(context.Background(), "sess_1", interview.TerminationGraceful); err != nil {
		t.Fatalf("SetTermination: %v", err)
	}
	err = m.AppendTurn(context.Background(), "sess_1", interview.Turn{})
	if !interview.IsKind(err, interview.ErrSessionClosed) {
		t.Fatalf("terminated append err=%v, want session_closed", err)
	}
}

func TestMemory_SetTerminationOnce(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusInProgress)

	if err := m.SetTermination(context.Background(), "sess_1", interview.TerminationAbrupt); err != nil {
		t.Fatalf("SetTermination: %v", err)
	}
	err := m.SetTermination(context.Background(), "sess_1", interview.TerminationGraceful)
	if !interview.IsKind(err, interview.ErrAlreadyTerminated) {
		t.Fatalf("err=%v, want already_terminated", err)
	}
}

func TestMemory_PatchReconciledTurnBounds(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusInProgress)
	turns := []interview.Turn{{AIText: "q", UserText: "a", Timestamp: time.Now().UTC()}}
	if err := m.SaveReconciled(context.Background(), "sess_1", turns); err != nil {
		t.Fatalf("SaveReconciled: %v", err)
	}

	when := time.Now().UTC()
	if err := m.PatchReconciledTurn(context.Background(), "sess_1", 0, "fixed", when); err != nil {
		t.Fatalf("PatchReconciledTurn: %v", err)
	}
	got, _ := m.Get(context.Background(), "sess_1")
	if got.Reconciled[0].UserText != "fixed" || got.Reconciled[0].EditedAt == nil {
		t.Fatalf("patched=%+v", got.Reconciled[0])
	}

	for _, idx := range []int{-1, 1} {
		err := m.PatchReconciledTurn(context.Background(), "sess_1", idx, "x", when)
		if !interview.IsKind(err, interview.ErrIndexOutOfRange) {
			t.Fatalf("index %d err=%v, want index_out_of_range", idx, err)
		}
	}
}

func TestMemory_SaveEvaluationOnce(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusInProgress)

	result := &interview.EvaluationResult{SessionID: "sess_1", Mode: interview.ModePrescreen, Score: 80}
	if err := m.SaveEvaluation(context.Background(), result); err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	err := m.SaveEvaluation(context.Background(), result)
	if !interview.IsKind(err, interview.ErrAlreadyEvaluated) {
		t.Fatalf("err=%v, want already_evaluated", err)
	}

	err = m.SaveEvaluation(context.Background(), &interview.EvaluationResult{SessionID: "missing"})
	if !interview.IsKind(err, interview.ErrNotFound) {
		t.Fatalf("err=%v, want not_found", err)
	}

	got, err := m.GetEvaluation(context.Background(), "sess_1")
	if err != nil || got.Score != 80 {
		t.Fatalf("GetEvaluation: got=%+v err=%v", got, err)
	}
}

func TestMemory_Violations(t *testing.T) {
	m := NewMemory()
	seedSession(t, m, interview.StatusInProgress)

	err := m.AppendViolation(context.Background(), &interview.Violation{ID: "v1", SessionID: "missing"})
	if !interview.IsKind(err, interview.ErrNotFound) {
		t.Fatalf("err=%v, want not_found", err)
	}

	for i := 0; i < 2; i++ {
		if err := m.AppendViolation(context.Background(), &interview.Violation{
			ID: "v" + string(rune('1'+i)), SessionID: "sess_1", ViolationType: "TAB_SWITCH",
		}); err != nil {
			t.Fatalf("AppendViolation: %v", err)
		}
	}
	if got := m.Violations("sess_1"); len(got) != 2 {
		t.Fatalf("violations=%d, want 2", len(got))
	}
}
