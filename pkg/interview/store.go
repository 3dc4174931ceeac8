package interview

import (
	"context"
	"time"
)

// Store is the persistence boundary for sessions, evaluations, and
// violations. Implementations must make AppendTurn an atomic array append
// (no read-modify-write of the whole transcript) and must implement the
// conditional updates as compare-and-set so that racing terminate/complete
// calls cannot double-execute.
//
// All operations keyed by session id return a not_found error when the id is
// absent.
type Store interface {
	// Create inserts a new session row. The session must be in StatusPending.
	Create(ctx context.Context, s *Session) error

	// Get returns the full session aggregate.
	Get(ctx context.Context, id string) (*Session, error)

	// ListByOwner returns the sessions owned by the given user, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Session, error)

	// Start transitions PENDING -> IN_PROGRESS, persisting the rendered agent
	// brief and the brokered credential. Returns started=false (and no error)
	// when the session is not pending, so callers can report the
	// already-started sentinel.
	Start(ctx context.Context, id, brief string, cred *Credential) (started bool, err error)

	// AppendTurn atomically appends one turn to the raw transcript. Fails
	// with session_closed once a termination reason is set or the session is
	// completed, and with invalid_request while the session is still pending.
	AppendTurn(ctx context.Context, id string, t Turn) error

	// SetTermination sets the termination reason exactly once. Fails with
	// already_terminated when a reason is present.
	SetTermination(ctx context.Context, id string, reason TerminationReason) error

	// SaveReconciled writes the reconciled transcript.
	SaveReconciled(ctx context.Context, id string, turns []Turn) error

	// PatchReconciledTurn replaces user_text of one reconciled turn and
	// stamps edited_at, preserving ai_text and the original timestamp. Fails
	// with index_out_of_range when index is outside the reconciled log.
	PatchReconciledTurn(ctx context.Context, id string, index int, userText string, editedAt time.Time) error

	// SaveEvaluation persists the evaluation result. Fails with
	// already_evaluated when a result already exists for the session.
	SaveEvaluation(ctx context.Context, result *EvaluationResult) error

	// GetEvaluation returns the stored evaluation, or a not_found error.
	GetEvaluation(ctx context.Context, sessionID string) (*EvaluationResult, error)

	// MarkCompleted transitions IN_PROGRESS -> COMPLETED.
	MarkCompleted(ctx context.Context, id string) error

	// AppendViolation appends one violation record.
	AppendViolation(ctx context.Context, v *Violation) error
}
