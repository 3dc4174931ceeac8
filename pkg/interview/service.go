package interview

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenBroker exchanges a rendered agent brief for a short-lived realtime
// session credential.
type TokenBroker interface {
	Issue(ctx context.Context, instructions string) (*Credential, error)
}

// Reconciler repairs speech-to-text noise in candidate utterances. The
// returned slice has the same length as the input and every ai_text is
// copied verbatim.
type Reconciler interface {
	Reconcile(ctx context.Context, turns []Turn, sctx Context) ([]Turn, error)
}

// Evaluator converts a finalized transcript into a validated score record.
type Evaluator interface {
	Evaluate(ctx context.Context, mode Mode, turns []Turn, sctx Context) (*EvaluationResult, error)
}

// BriefRenderer renders the voice-agent instruction text for a session.
// generatedQuestions is the pre-planned question section; empty means none.
type BriefRenderer interface {
	AgentBrief(mode Mode, sctx Context, generatedQuestions string) (string, error)
}

// QuestionPlanner produces the question section embedded into the agent
// brief. Implementations degrade to a generic fallback set internally, so a
// planning failure never blocks a begin.
type QuestionPlanner interface {
	PlanQuestions(ctx context.Context, mode Mode, sctx Context) (string, error)
}

// Service drives the session lifecycle. Handlers are stateless; every
// invariant that involves shared state is enforced by the Store's conditional
// updates, so concurrent requests against the same session cannot lose
// writes or double-execute a transition.
type Service struct {
	Store      Store
	Broker     TokenBroker
	Reconciler Reconciler
	Evaluator  Evaluator
	Briefs     BriefRenderer
	// Optional; nil skips question planning and the brief renders without a
	// generated section.
	Questions QuestionPlanner
	Logger    *slog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Create provisions a new session in PENDING.
func (s *Service) Create(ctx context.Context, mode Mode, sctx Context) (*Session, error) {
	if strings.TrimSpace(sctx.OwnerID) == "" {
		return nil, NewInvalidRequestErrorWithParam("owner_id is required", "context.owner_id")
	}
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		Mode:       mode,
		Status:     StatusPending,
		Transcript: []Turn{},
		Context:    sctx,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the session aggregate.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.Store.Get(ctx, id)
}

// ListByOwner returns the caller's sessions.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Session, error) {
	return s.Store.ListByOwner(ctx, ownerID)
}

// Begin brokers a realtime credential and flips the session to IN_PROGRESS.
// Safe under retry: a begin against a non-pending session returns the
// already-started sentinel without re-issuing a credential.
func (s *Service) Begin(ctx context.Context, id string) (*BeginResult, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusPending {
		return &BeginResult{AlreadyStarted: true}, nil
	}

	questions := ""
	if s.Questions != nil {
		questions, err = s.Questions.PlanQuestions(ctx, sess.Mode, sess.Context)
		if err != nil {
			return nil, err
		}
	}
	brief, err := s.Briefs.AgentBrief(sess.Mode, sess.Context, questions)
	if err != nil {
		return nil, err
	}
	cred, err := s.Broker.Issue(ctx, brief)
	if err != nil {
		return nil, err
	}

	started, err := s.Store.Start(ctx, id, brief, cred)
	if err != nil {
		return nil, err
	}
	if !started {
		// Lost the race against a concurrent begin; the issued credential is
		// discarded and the winner's credential stands.
		return &BeginResult{AlreadyStarted: true}, nil
	}
	return &BeginResult{Credential: cred}, nil
}

// AppendTurn appends one exchange to the raw transcript.
func (s *Service) AppendTurn(ctx context.Context, id, aiText, userText string, ts time.Time) error {
	if ts.IsZero() {
		ts = s.now()
	}
	return s.Store.AppendTurn(ctx, id, Turn{AIText: aiText, UserText: userText, Timestamp: ts})
}

// Terminate records the termination reason exactly once, then runs the
// reconciliation pass and persists the canonical transcript. The reason is
// committed before reconciliation so that no concurrent append can land in a
// transcript that is already being reconciled.
//
// A terminate against an already-terminated session is a conflict, with one
// exception: when the reason was recorded but reconciliation failed, a retry
// re-runs reconciliation instead of stranding the session without a
// reconciled transcript.
func (s *Service) Terminate(ctx context.Context, id string, reason TerminationReason) error {
	if err := s.Store.SetTermination(ctx, id, reason); err != nil {
		if !IsKind(err, ErrAlreadyTerminated) {
			return err
		}
		sess, getErr := s.Store.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if sess.Reconciled != nil || len(sess.Transcript) == 0 {
			return err
		}
		return s.reconcileAndSave(ctx, id, sess)
	}

	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(sess.Transcript) == 0 {
		return s.Store.SaveReconciled(ctx, id, []Turn{})
	}
	return s.reconcileAndSave(ctx, id, sess)
}

func (s *Service) reconcileAndSave(ctx context.Context, id string, sess *Session) error {
	reconciled, err := s.Reconciler.Reconcile(ctx, sess.Transcript, sess.Context)
	if err != nil {
		// Termination stands; evaluation falls back to the raw transcript
		// when no reconciled log was persisted.
		s.logger().Error("transcript reconciliation failed", "session_id", id, "error", err)
		return err
	}
	if len(reconciled) != len(sess.Transcript) {
		return NewMalformedOutputError("reconciled transcript length mismatch", nil)
	}
	return s.Store.SaveReconciled(ctx, id, reconciled)
}

// PatchTurn replaces the user_text of one reconciled turn.
func (s *Service) PatchTurn(ctx context.Context, id string, index int, userText string) error {
	return s.Store.PatchReconciledTurn(ctx, id, index, userText, s.now())
}

// Complete runs the evaluation exactly once and flips the session to
// COMPLETED. Requires a prior termination marker.
func (s *Service) Complete(ctx context.Context, id string) (*EvaluationResult, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Terminated() {
		return nil, NewNotTerminatedError("session has no termination reason; terminate before completing")
	}
	if sess.Status == StatusCompleted {
		return nil, NewAlreadyEvaluatedError("session is already completed")
	}

	result, err := s.Evaluator.Evaluate(ctx, sess.Mode, sess.CanonicalTranscript(), sess.Context)
	if err != nil {
		return nil, err
	}
	result.SessionID = id
	result.Mode = sess.Mode
	if result.EvaluatedAt.IsZero() {
		result.EvaluatedAt = s.now()
	}

	// SaveEvaluation is the exactly-once gate: a concurrent complete loses
	// here, before any status change.
	if err := s.Store.SaveEvaluation(ctx, result); err != nil {
		return nil, err
	}
	if err := s.Store.MarkCompleted(ctx, id); err != nil {
		return nil, err
	}
	return result, nil
}

// Evaluation returns the stored evaluation result.
func (s *Service) Evaluation(ctx context.Context, id string) (*EvaluationResult, error) {
	return s.Store.GetEvaluation(ctx, id)
}

// RecordViolation appends one rule-violation record for the session.
func (s *Service) RecordViolation(ctx context.Context, sessionID, violationType, description string) (*Violation, error) {
	if strings.TrimSpace(violationType) == "" {
		return nil, NewInvalidRequestErrorWithParam("violation_type is required", "violation_type")
	}
	if _, err := s.Store.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	v := &Violation{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		ViolationType: violationType,
		Description:   description,
		RecordedAt:    s.now(),
	}
	if err := s.Store.AppendViolation(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}
