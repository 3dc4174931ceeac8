package eval

import (
	"context"
	"testing"
	"time"

	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
	"github.com/vango-go/vai-interviews/pkg/interview/prompt"
)

type scriptedClient struct {
	response string
	lastMsgs []completion.Message
}

func (c *scriptedClient) Complete(_ context.Context, msgs []completion.Message) (string, error) {
	c.lastMsgs = msgs
	return c.response, nil
}

func newEngine(response string) (*Engine, *scriptedClient) {
	client := &scriptedClient{response: response}
	return &Engine{Client: client, Resolver: prompt.NewResolver()}, client
}

func sampleTurns() []interview.Turn {
	return []interview.Turn{
		{AIText: "What is your notice period?", UserText: "30 days", Timestamp: time.Now().UTC()},
	}
}

func TestEvaluate_PrescreenAcceptsFieldAliases(t *testing.T) {
	e, client := newEngine(`Here you go:
{"prescreening_summary": "Strong candidate with relevant platform experience.",
 "highlights": ["Expected CTC: 20 LPA"],
 "fit_score": 72}`)

	result, err := e.Evaluate(context.Background(), interview.ModePrescreen, sampleTurns(), interview.Context{JobTitle: "SRE"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 72 {
		t.Fatalf("score=%d, want 72", result.Score)
	}
	if result.Summary == "" {
		t.Fatalf("summary not mapped from alias")
	}
	want := []string{"Notice Period: Not specified", "Expected CTC: 20 LPA", "Relocation: Not specified"}
	if len(result.Highlights) != len(want) {
		t.Fatalf("highlights=%v", result.Highlights)
	}
	for i := range want {
		if result.Highlights[i] != want[i] {
			t.Fatalf("highlight %d = %q, want %q", i, result.Highlights[i], want[i])
		}
	}

	// Transcript and role framing reach the model.
	if len(client.lastMsgs) != 2 || client.lastMsgs[0].Role != completion.RoleSystem {
		t.Fatalf("messages=%+v", client.lastMsgs)
	}
}

func TestEvaluate_PrescreenOptionalBulletPassesThrough(t *testing.T) {
	e, _ := newEngine(`{"summary": "ok", "score": 50,
 "highlights": ["Notice Period: 15 days", "Relocation: Yes", "Authorization: H1B", "Work Preference: Remote"]}`)

	result, err := e.Evaluate(context.Background(), interview.ModePrescreen, sampleTurns(), interview.Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// Three required bullets plus at most one optional.
	if len(result.Highlights) != 4 {
		t.Fatalf("highlights=%v", result.Highlights)
	}
	if result.Highlights[3] != "Authorization: H1B" {
		t.Fatalf("optional bullet=%q", result.Highlights[3])
	}
}

func TestEvaluate_PrescreenSchemaErrors(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"missing summary", `{"highlights": [], "fit_score": 40}`},
		{"missing score", `{"summary": "x", "highlights": []}`},
		{"score out of range", `{"summary": "x", "score": 140}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newEngine(tc.response)
			_, err := e.Evaluate(context.Background(), interview.ModePrescreen, sampleTurns(), interview.Context{})
			if !interview.IsKind(err, interview.ErrSchema) {
				t.Fatalf("err=%v, want evaluation_schema_error", err)
			}
		})
	}
}

func TestEvaluate_NonJSONOutputIsMalformed(t *testing.T) {
	e, _ := newEngine("I cannot answer that.")
	_, err := e.Evaluate(context.Background(), interview.ModePrescreen, sampleTurns(), interview.Context{})
	if !interview.IsKind(err, interview.ErrMalformedOutput) {
		t.Fatalf("err=%v, want malformed_model_output", err)
	}
}

func TestEvaluate_TechnicalDerivesPassRecommendation(t *testing.T) {
	e, _ := newEngine(`{"overall_score": 65, "summary": "decent",
 "question_scores": [{"question_number": 1, "skill": "go", "score": 70}],
 "strengths": ["concurrency"], "weaknesses": []}`)

	result, err := e.Evaluate(context.Background(), interview.ModeTechnical, sampleTurns(), interview.Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 65 {
		t.Fatalf("score=%d", result.Score)
	}
	if result.PassRecommendation == nil || !*result.PassRecommendation {
		t.Fatalf("pass=%v, want derived true at score 65", result.PassRecommendation)
	}
	if len(result.PerQuestionScores) != 1 || result.PerQuestionScores[0].Skill != "go" {
		t.Fatalf("per-question scores=%+v", result.PerQuestionScores)
	}
}

func TestEvaluate_TechnicalExplicitPassOverrides(t *testing.T) {
	e, _ := newEngine(`{"overall_score": 80, "pass_recommendation": false, "summary": "red flags"}`)

	result, err := e.Evaluate(context.Background(), interview.ModeTechnical, sampleTurns(), interview.Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.PassRecommendation == nil || *result.PassRecommendation {
		t.Fatalf("explicit false recommendation must not be overridden by the score")
	}
}

func TestEvaluate_TechnicalBelowThresholdFails(t *testing.T) {
	e, _ := newEngine(`{"overall_score": 59, "summary": "weak"}`)

	result, err := e.Evaluate(context.Background(), interview.ModeTechnical, sampleTurns(), interview.Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.PassRecommendation == nil || *result.PassRecommendation {
		t.Fatalf("pass=%v, want derived false at score 59", result.PassRecommendation)
	}
	if result.Strengths == nil || result.Weaknesses == nil || result.PerQuestionScores == nil {
		t.Fatalf("absent arrays must normalize to empty slices")
	}
}

func TestEvaluate_TechnicalMissingScoreIsSchemaError(t *testing.T) {
	e, _ := newEngine(`{"summary": "no score"}`)
	_, err := e.Evaluate(context.Background(), interview.ModeTechnical, sampleTurns(), interview.Context{})
	if !interview.IsKind(err, interview.ErrSchema) {
		t.Fatalf("err=%v, want evaluation_schema_error", err)
	}
}

func TestRenderTranscript(t *testing.T) {
	got := renderTranscript([]interview.Turn{
		{AIText: "q1", UserText: "a1"},
		{AIText: "q2", UserText: "a2"},
	})
	want := "AI: q1\nCandidate: a1\n\nAI: q2\nCandidate: a2"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
