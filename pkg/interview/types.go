// Package interview holds the session lifecycle engine: the aggregate types,
// the canonical error taxonomy, and the service that enforces the state
// machine over a Store.
package interview

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the interview templates and the evaluation schema. Fixed at
// session creation.
type Mode string

const (
	ModePrescreen Mode = "PRESCREEN"
	ModeTechnical Mode = "TECHNICAL"
)

// ParseMode parses a mode string case-insensitively.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(raw))) {
	case ModePrescreen:
		return ModePrescreen, nil
	case ModeTechnical:
		return ModeTechnical, nil
	default:
		return "", NewInvalidRequestErrorWithParam(fmt.Sprintf("unknown interview mode %q", raw), "mode")
	}
}

// Status is the session lifecycle state. Monotonic: PENDING -> IN_PROGRESS ->
// COMPLETED.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// TerminationReason marks how the conversation ended. Set at most once; its
// presence freezes the raw transcript.
type TerminationReason string

const (
	TerminationAbrupt   TerminationReason = "ABRUPT"
	TerminationGraceful TerminationReason = "GRACEFUL"
)

// ParseTerminationReason parses a termination reason case-insensitively.
func ParseTerminationReason(raw string) (TerminationReason, error) {
	switch TerminationReason(strings.ToUpper(strings.TrimSpace(raw))) {
	case TerminationAbrupt:
		return TerminationAbrupt, nil
	case TerminationGraceful:
		return TerminationGraceful, nil
	default:
		return "", NewInvalidRequestErrorWithParam(fmt.Sprintf("unknown termination reason %q", raw), "reason")
	}
}

// Turn is one AI/candidate exchange. Order within a transcript is significant:
// the slice index is the key used by turn edits.
type Turn struct {
	AIText    string     `json:"ai_text"`
	UserText  string     `json:"user_text"`
	Timestamp time.Time  `json:"timestamp"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Context carries the job/candidate facts supplied at creation. Read-only
// after creation.
type Context struct {
	OwnerID        string         `json:"owner_id"`
	JobTitle       string         `json:"job_title"`
	JobDescription string         `json:"job_description"`
	Resume         string         `json:"resume"`
	Metadata       map[string]any `json:"metadata,omitempty"`

	// Recruiter-provided questions, asked verbatim alongside the generated
	// set.
	CustomQuestions []string `json:"custom_questions,omitempty"`
}

// Credential is a short-lived secret authorizing the client against the
// realtime voice provider.
type Credential struct {
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is the aggregate root. It exclusively owns both transcripts.
type Session struct {
	ID                string             `json:"id"`
	Mode              Mode               `json:"mode"`
	Status            Status             `json:"status"`
	TerminationReason *TerminationReason `json:"termination_reason,omitempty"`
	Transcript        []Turn             `json:"transcript"`
	Reconciled        []Turn             `json:"reconciled_transcript,omitempty"`
	Context           Context            `json:"context"`
	AgentBrief        string             `json:"-"`
	Credential        *Credential        `json:"-"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Terminated reports whether a termination reason has been recorded.
func (s *Session) Terminated() bool {
	return s != nil && s.TerminationReason != nil
}

// CanonicalTranscript is the transcript evaluation operates on: the
// reconciled log when reconciliation has run, the raw log otherwise.
func (s *Session) CanonicalTranscript() []Turn {
	if len(s.Reconciled) > 0 {
		return s.Reconciled
	}
	return s.Transcript
}

// QuestionScore is one per-question entry of a technical evaluation.
type QuestionScore struct {
	QuestionNumber int    `json:"question_number"`
	Skill          string `json:"skill,omitempty"`
	Score          int    `json:"score"`
	Notes          string `json:"notes,omitempty"`
}

// EvaluationResult is the structured verdict for a completed session.
// At most one exists per session.
type EvaluationResult struct {
	SessionID string `json:"session_id"`
	Mode      Mode   `json:"mode"`
	Score     int    `json:"score"`
	Summary   string `json:"summary"`

	// PRESCREEN breakdown.
	Highlights []string `json:"highlights,omitempty"`

	// TECHNICAL breakdown.
	PassRecommendation *bool           `json:"pass_recommendation,omitempty"`
	PerQuestionScores  []QuestionScore `json:"per_question_scores,omitempty"`
	Strengths          []string        `json:"strengths,omitempty"`
	Weaknesses         []string        `json:"weaknesses,omitempty"`

	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Violation is one append-only rule-violation record. Never mutated or
// deleted.
type Violation struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	ViolationType string    `json:"violation_type"`
	Description   string    `json:"description"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// BeginResult is the outcome of a token brokerage attempt. AlreadyStarted is
// a success sentinel: a begin against a non-pending session is a no-op, not
// an error, and carries no credential.
type BeginResult struct {
	AlreadyStarted bool        `json:"already_started"`
	Credential     *Credential `json:"credential,omitempty"`
}
