package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// pgForeignKeyViolation is the Postgres error code for a missing referenced row.
const pgForeignKeyViolation = "23503"

// Postgres is the pgx-backed Store. Every state transition is a single
// guarded UPDATE, so concurrent callers race through the database rather
// than through application locks: the row condition decides the winner and
// a zero-row result is classified with a follow-up read.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a store to an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pool for databaseURL and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

const sessionColumns = `id, owner_id, mode, status, termination_reason, transcript,
	reconciled_transcript, job_title, job_description, resume, metadata,
	custom_questions, agent_brief, credential, created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, s *interview.Session) error {
	transcript, err := marshalTurns(s.Transcript)
	if err != nil {
		return err
	}
	metadata, err := marshalOrNil(s.Context.Metadata)
	if err != nil {
		return err
	}
	customQuestions, err := marshalOrNil(s.Context.CustomQuestions)
	if err != nil {
		return err
	}
	credential, err := marshalOrNil(s.Credential)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO interview_sessions (id, owner_id, mode, status, transcript,
			job_title, job_description, resume, metadata, custom_questions,
			agent_brief, credential, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.Context.OwnerID, string(s.Mode), string(s.Status), transcript,
		s.Context.JobTitle, s.Context.JobDescription, s.Context.Resume, metadata,
		customQuestions, s.AgentBrief, credential, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("insert session: %v", err))
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*interview.Session, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (p *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]*interview.Session, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM interview_sessions
		WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("list sessions: %v", err))
	}
	defer rows.Close()

	out := make([]*interview.Session, 0, 8)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("list sessions: %v", err))
	}
	return out, nil
}

func (p *Postgres) Start(ctx context.Context, id, brief string, cred *interview.Credential) (bool, error) {
	credential, err := marshalOrNil(cred)
	if err != nil {
		return false, err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET status = $2, agent_brief = $3, credential = $4, updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, string(interview.StatusInProgress), brief, credential, string(interview.StatusPending))
	if err != nil {
		return false, interview.NewAPIError(fmt.Sprintf("start session: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Zero rows: either the session is missing or another caller won the
	// transition first.
	if _, _, err := p.sessionState(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (p *Postgres) AppendTurn(ctx context.Context, id string, t interview.Turn) error {
	payload, err := json.Marshal([]interview.Turn{t})
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("marshal turn: %v", err))
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET transcript = transcript || $2::jsonb, updated_at = now()
		WHERE id = $1 AND status = $3 AND termination_reason IS NULL`,
		id, payload, string(interview.StatusInProgress))
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("append turn: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	status, terminated, err := p.sessionState(ctx, id)
	if err != nil {
		return err
	}
	if terminated || status == interview.StatusCompleted {
		return interview.NewSessionClosedError("session is closed to new turns")
	}
	return interview.NewInvalidRequestError("session has not started")
}

func (p *Postgres) SetTermination(ctx context.Context, id string, reason interview.TerminationReason) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET termination_reason = $2, updated_at = now()
		WHERE id = $1 AND status = $3 AND termination_reason IS NULL`,
		id, string(reason), string(interview.StatusInProgress))
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("terminate session: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	status, terminated, err := p.sessionState(ctx, id)
	if err != nil {
		return err
	}
	if terminated {
		return interview.NewAlreadyTerminatedError("termination reason already set")
	}
	if status == interview.StatusCompleted {
		return interview.NewSessionClosedError("session is completed")
	}
	return interview.NewInvalidRequestError("session has not started")
}

func (p *Postgres) SaveReconciled(ctx context.Context, id string, turns []interview.Turn) error {
	payload, err := marshalTurns(turns)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET reconciled_transcript = $2::jsonb, updated_at = now()
		WHERE id = $1`, id, payload)
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("save reconciled transcript: %v", err))
	}
	if tag.RowsAffected() == 0 {
		return interview.NewNotFoundError("session not found")
	}
	return nil
}

func (p *Postgres) PatchReconciledTurn(ctx context.Context, id string, index int, userText string, editedAt time.Time) error {
	if index < 0 {
		return interview.NewIndexOutOfRangeError("turn index outside reconciled transcript")
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET reconciled_transcript = jsonb_set(
				jsonb_set(reconciled_transcript, ARRAY[$2::text, 'user_text'], to_jsonb($3::text)),
				ARRAY[$2::text, 'edited_at'], to_jsonb($4::text)),
			updated_at = now()
		WHERE id = $1
		  AND reconciled_transcript IS NOT NULL
		  AND jsonb_array_length(reconciled_transcript) > $2::int`,
		id, index, userText, editedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("patch reconciled turn: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, _, err := p.sessionState(ctx, id); err != nil {
		return err
	}
	return interview.NewIndexOutOfRangeError("turn index outside reconciled transcript")
}

func (p *Postgres) SaveEvaluation(ctx context.Context, result *interview.EvaluationResult) error {
	highlights, err := marshalJSON(result.Highlights)
	if err != nil {
		return err
	}
	perQuestion, err := marshalJSON(result.PerQuestionScores)
	if err != nil {
		return err
	}
	strengths, err := marshalJSON(result.Strengths)
	if err != nil {
		return err
	}
	weaknesses, err := marshalJSON(result.Weaknesses)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO interview_evaluations (session_id, mode, score, summary,
			highlights, pass_recommendation, per_question_scores, strengths,
			weaknesses, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, string(result.Mode), result.Score, result.Summary,
		highlights, result.PassRecommendation, perQuestion, strengths,
		weaknesses, result.EvaluatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return interview.NewNotFoundError("session not found")
		}
		return interview.NewAPIError(fmt.Sprintf("save evaluation: %v", err))
	}
	if tag.RowsAffected() == 0 {
		return interview.NewAlreadyEvaluatedError("evaluation already exists for session")
	}
	return nil
}

func (p *Postgres) GetEvaluation(ctx context.Context, sessionID string) (*interview.EvaluationResult, error) {
	var (
		result      interview.EvaluationResult
		mode        string
		highlights  []byte
		perQuestion []byte
		strengths   []byte
		weaknesses  []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT session_id, mode, score, summary, highlights, pass_recommendation,
			per_question_scores, strengths, weaknesses, evaluated_at
		FROM interview_evaluations WHERE session_id = $1`, sessionID).Scan(
		&result.SessionID, &mode, &result.Score, &result.Summary, &highlights,
		&result.PassRecommendation, &perQuestion, &strengths, &weaknesses,
		&result.EvaluatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.NewNotFoundError("evaluation not found")
	}
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("get evaluation: %v", err))
	}
	result.Mode = interview.Mode(mode)
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{highlights, &result.Highlights},
		{perQuestion, &result.PerQuestionScores},
		{strengths, &result.Strengths},
		{weaknesses, &result.Weaknesses},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode evaluation: %v", err))
		}
	}
	return &result, nil
}

func (p *Postgres) MarkCompleted(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, string(interview.StatusCompleted), string(interview.StatusInProgress))
	if err != nil {
		return interview.NewAPIError(fmt.Sprintf("complete session: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	status, _, err := p.sessionState(ctx, id)
	if err != nil {
		return err
	}
	if status == interview.StatusCompleted {
		return nil
	}
	return interview.NewInvalidRequestError("session has not started")
}

func (p *Postgres) AppendViolation(ctx context.Context, v *interview.Violation) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO interview_violations (id, session_id, violation_type, description, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.SessionID, v.ViolationType, v.Description, v.RecordedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return interview.NewNotFoundError("session not found")
		}
		return interview.NewAPIError(fmt.Sprintf("insert violation: %v", err))
	}
	return nil
}

// sessionState reads the status and termination flag for zero-row
// classification. A missing session surfaces as not_found.
func (p *Postgres) sessionState(ctx context.Context, id string) (interview.Status, bool, error) {
	var (
		status string
		reason *string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT status, termination_reason FROM interview_sessions WHERE id = $1`, id).
		Scan(&status, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, interview.NewNotFoundError("session not found")
	}
	if err != nil {
		return "", false, interview.NewAPIError(fmt.Sprintf("read session state: %v", err))
	}
	return interview.Status(status), reason != nil, nil
}

func scanSession(row pgx.Row) (*interview.Session, error) {
	var (
		s               interview.Session
		mode            string
		status          string
		reason          *string
		transcript      []byte
		reconciled      []byte
		metadata        []byte
		customQuestions []byte
		credential      []byte
	)
	err := row.Scan(&s.ID, &s.Context.OwnerID, &mode, &status, &reason,
		&transcript, &reconciled, &s.Context.JobTitle, &s.Context.JobDescription,
		&s.Context.Resume, &metadata, &customQuestions, &s.AgentBrief, &credential,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.NewNotFoundError("session not found")
	}
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("scan session: %v", err))
	}

	s.Mode = interview.Mode(mode)
	s.Status = interview.Status(status)
	if reason != nil {
		r := interview.TerminationReason(*reason)
		s.TerminationReason = &r
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode transcript: %v", err))
		}
	}
	if len(reconciled) > 0 {
		if err := json.Unmarshal(reconciled, &s.Reconciled); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode reconciled transcript: %v", err))
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Context.Metadata); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode metadata: %v", err))
		}
	}
	if len(customQuestions) > 0 {
		if err := json.Unmarshal(customQuestions, &s.Context.CustomQuestions); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode custom questions: %v", err))
		}
	}
	if len(credential) > 0 {
		var c interview.Credential
		if err := json.Unmarshal(credential, &c); err != nil {
			return nil, interview.NewAPIError(fmt.Sprintf("decode credential: %v", err))
		}
		s.Credential = &c
	}
	return &s, nil
}

func marshalTurns(turns []interview.Turn) ([]byte, error) {
	if turns == nil {
		turns = []interview.Turn{}
	}
	return marshalJSON(turns)
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("marshal json: %v", err))
	}
	return b, nil
}

// marshalOrNil maps a nil pointer or empty collection to SQL NULL.
func marshalOrNil(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *interview.Credential:
		if t == nil {
			return nil, nil
		}
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return marshalJSON(v)
}
