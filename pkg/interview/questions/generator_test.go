package questions

import (
	"context"
	"strings"
	"testing"

	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
	"github.com/vango-go/vai-interviews/pkg/interview/prompt"
)

type scriptedClient struct {
	response string
	err      error
	calls    int
	lastMsgs []completion.Message
}

func (c *scriptedClient) Complete(_ context.Context, msgs []completion.Message) (string, error) {
	c.calls++
	c.lastMsgs = msgs
	return c.response, c.err
}

func newGenerator(client completion.Client) *Generator {
	return &Generator{Client: client, Resolver: prompt.NewResolver()}
}

func TestGenerate_ParsesQuestionSet(t *testing.T) {
	client := &scriptedClient{response: `{
		"job_title": "Backend Engineer",
		"prescreening_questions": [
			{"focus": "prescreening", "question": "What is your notice period?", "follow_up": "Is it negotiable?"},
			{"focus": "compensation", "question": "What is your expected total annual compensation range?", "follow_up": ""}
		]
	}`}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{
		JobTitle: "Backend Engineer",
		Resume:   "Seven years of Go services.",
	})
	if set.JobTitle != "Backend Engineer" {
		t.Fatalf("job title=%q", set.JobTitle)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("questions=%d, want 2", len(set.Questions))
	}
	if set.Questions[0].Focus != "prescreening" || set.Questions[0].FollowUp != "Is it negotiable?" {
		t.Fatalf("first question: %+v", set.Questions[0])
	}

	if len(client.lastMsgs) != 2 {
		t.Fatalf("messages=%d, want system+user", len(client.lastMsgs))
	}
	if client.lastMsgs[0].Role != completion.RoleSystem || !strings.Contains(client.lastMsgs[0].Content, "job_title") {
		t.Fatalf("system message: %+v", client.lastMsgs[0])
	}
	if client.lastMsgs[1].Role != completion.RoleUser || !strings.Contains(client.lastMsgs[1].Content, "Seven years of Go services.") {
		t.Fatalf("user message lacks resume context")
	}
}

func TestGenerate_AcceptsFencedJSON(t *testing.T) {
	client := &scriptedClient{response: "Here you go:\n```json\n" +
		`{"job_title":"QA Lead","prescreening_questions":[{"focus":"availability","question":"When can you start?"}]}` +
		"\n```"}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{})
	if set.JobTitle != "QA Lead" || len(set.Questions) != 1 {
		t.Fatalf("set=%+v", set)
	}
}

func TestGenerate_NormalizesLegacyBuckets(t *testing.T) {
	client := &scriptedClient{response: `{
		"job_title": "Data Engineer",
		"technical_questions": [{"question": "Walk me through your pipeline design.", "follow_up": "What broke?"}],
		"project_questions": [{"follow_up": "", "context": "ETL migration"}],
		"behavioral_questions": [{"question": "", "follow_up": "How did you handle the conflict?"}]
	}`}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{})
	if len(set.Questions) != 3 {
		t.Fatalf("questions=%d, want 3", len(set.Questions))
	}
	for i, q := range set.Questions {
		if q.Focus != "resume" {
			t.Fatalf("question %d focus=%q, want resume", i, q.Focus)
		}
	}
	if set.Questions[0].Question != "Walk me through your pipeline design." {
		t.Fatalf("first question: %+v", set.Questions[0])
	}
	// No question and no follow_up text: the generic stand-in fills the slot
	// and context becomes the follow-up.
	if set.Questions[1].Question != "Describe a relevant experience." || set.Questions[1].FollowUp != "ETL migration" {
		t.Fatalf("project question: %+v", set.Questions[1])
	}
	// follow_up text is promoted to the question when question is blank.
	if set.Questions[2].Question != "How did you handle the conflict?" {
		t.Fatalf("behavioral question: %+v", set.Questions[2])
	}
}

func TestGenerate_FallsBackOnClientError(t *testing.T) {
	client := &scriptedClient{err: interview.NewUpstreamError("model down", nil)}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{})
	want := Fallback()
	if set.JobTitle != want.JobTitle || len(set.Questions) != 1 {
		t.Fatalf("set=%+v, want fallback", set)
	}
	if set.Questions[0].Question != "What is your current role and key responsibilities?" {
		t.Fatalf("fallback question: %+v", set.Questions[0])
	}
}

func TestGenerate_FallsBackOnNonJSON(t *testing.T) {
	client := &scriptedClient{response: "I cannot produce questions right now."}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{})
	if set.JobTitle != "the role" || len(set.Questions) != 1 {
		t.Fatalf("set=%+v, want fallback", set)
	}
}

func TestGenerate_FallsBackOnEmptyQuestionList(t *testing.T) {
	client := &scriptedClient{response: `{"job_title":"SRE","prescreening_questions":[]}`}
	g := newGenerator(client)

	set := g.Generate(context.Background(), interview.Context{})
	if set.JobTitle != "the role" || len(set.Questions) != 1 {
		t.Fatalf("set=%+v, want fallback", set)
	}
}

func TestSection_NumbersAndFollowUps(t *testing.T) {
	set := Set{Questions: []Question{
		{Focus: "compensation", Question: "What is your expected range?", FollowUp: "Is that negotiable?"},
		{Focus: "availability", Question: "When can you start?"},
	}}
	got := set.Section()
	want := "1. [compensation] What is your expected range? (follow-up: Is that negotiable?)\n" +
		"2. [availability] When can you start?"
	if got != want {
		t.Fatalf("section:\n%s\nwant:\n%s", got, want)
	}
}

func TestPlanQuestions_TechnicalModeIsEmpty(t *testing.T) {
	client := &scriptedClient{}
	g := newGenerator(client)

	got, err := g.PlanQuestions(context.Background(), interview.ModeTechnical, interview.Context{})
	if err != nil {
		t.Fatalf("PlanQuestions: %v", err)
	}
	if got != "" {
		t.Fatalf("section=%q, want empty", got)
	}
	if client.calls != 0 {
		t.Fatalf("model called %d times for a technical session", client.calls)
	}
}

func TestPlanQuestions_PrescreenRendersSection(t *testing.T) {
	client := &scriptedClient{response: `{"job_title":"PM","prescreening_questions":[{"focus":"availability","question":"When can you start?"}]}`}
	g := newGenerator(client)

	got, err := g.PlanQuestions(context.Background(), interview.ModePrescreen, interview.Context{})
	if err != nil {
		t.Fatalf("PlanQuestions: %v", err)
	}
	if got != "1. [availability] When can you start?" {
		t.Fatalf("section=%q", got)
	}
}
