// Package questions plans the prescreening question set embedded into the
// voice-agent brief. Planning is best-effort: any generation or validation
// failure degrades to a generic fallback set, so a begin is never blocked on
// question planning.
package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
	"github.com/vango-go/vai-interviews/pkg/interview/prompt"
)

const systemInstruction = "You are an expert technical interviewer. Always respond with valid JSON that includes a job_title field."

// Question is one planned prescreening question.
type Question struct {
	Focus    string `json:"focus"`
	Question string `json:"question"`
	FollowUp string `json:"follow_up,omitempty"`
}

// Set is the planned question set for one session.
type Set struct {
	JobTitle  string     `json:"job_title"`
	Questions []Question `json:"prescreening_questions"`
}

// Fallback is the generic set used when generation fails: a safe opener the
// agent can always work from.
func Fallback() Set {
	return Set{
		JobTitle: "the role",
		Questions: []Question{{
			Focus:    "prescreening",
			Question: "What is your current role and key responsibilities?",
		}},
	}
}

// Section renders the set as the numbered block the agent brief embeds.
func (s Set) Section() string {
	var sb strings.Builder
	for i, q := range s.Questions {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. [%s] %s", i+1, q.Focus, q.Question)
		if strings.TrimSpace(q.FollowUp) != "" {
			fmt.Fprintf(&sb, " (follow-up: %s)", q.FollowUp)
		}
	}
	return sb.String()
}

// Generator implements interview.QuestionPlanner on a completion model.
type Generator struct {
	Client   completion.Client
	Resolver *prompt.Resolver
	Logger   *slog.Logger
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// PlanQuestions returns the rendered question section for the brief.
// TECHNICAL sessions carry no pre-planned set and get an empty section.
func (g *Generator) PlanQuestions(ctx context.Context, mode interview.Mode, sctx interview.Context) (string, error) {
	if mode != interview.ModePrescreen {
		return "", nil
	}
	return g.Generate(ctx, sctx).Section(), nil
}

// Generate produces the question set for a prescreening session. It never
// fails: errors are logged and the fallback set is returned instead.
func (g *Generator) Generate(ctx context.Context, sctx interview.Context) Set {
	instruction, err := g.Resolver.Questions(sctx)
	if err != nil {
		g.logger().Warn("question prompt render failed, using fallback set", "error", err)
		return Fallback()
	}

	raw, err := g.Client.Complete(ctx, []completion.Message{
		{Role: completion.RoleSystem, Content: systemInstruction},
		{Role: completion.RoleUser, Content: instruction},
	})
	if err != nil {
		g.logger().Warn("question generation failed, using fallback set", "error", err)
		return Fallback()
	}

	set, err := parseSet(raw)
	if err != nil {
		g.logger().Warn("question output failed validation, using fallback set", "error", err, "raw", raw)
		return Fallback()
	}
	return set
}

// wireSet also carries the legacy multi-bucket shape some models still emit
// instead of prescreening_questions.
type wireSet struct {
	JobTitle              string           `json:"job_title"`
	PrescreeningQuestions []Question       `json:"prescreening_questions"`
	TechnicalQuestions    []legacyQuestion `json:"technical_questions"`
	ProjectQuestions      []legacyQuestion `json:"project_questions"`
	BehavioralQuestions   []legacyQuestion `json:"behavioral_questions"`
}

type legacyQuestion struct {
	Question string `json:"question"`
	FollowUp string `json:"follow_up"`
	Context  string `json:"context"`
}

// legacyCap bounds how many legacy-bucket questions survive normalization.
const legacyCap = 10

func parseSet(raw string) (Set, error) {
	payload, err := completion.ExtractJSON(raw)
	if err != nil {
		return Set{}, err
	}
	var wire wireSet
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Set{}, interview.NewMalformedOutputError("question payload is not valid JSON", err)
	}

	set := Set{
		JobTitle:  strings.TrimSpace(wire.JobTitle),
		Questions: wire.PrescreeningQuestions,
	}
	if len(set.Questions) == 0 {
		set.Questions = normalizeLegacy(wire)
	}
	if set.JobTitle == "" {
		set.JobTitle = "the role"
	}
	if len(set.Questions) == 0 {
		return Set{}, interview.NewMalformedOutputError("question payload has no questions", nil)
	}
	return set, nil
}

// normalizeLegacy merges the technical/project/behavioral buckets into
// resume-focused entries.
func normalizeLegacy(wire wireSet) []Question {
	var merged []legacyQuestion
	merged = append(merged, wire.TechnicalQuestions...)
	merged = append(merged, wire.ProjectQuestions...)
	merged = append(merged, wire.BehavioralQuestions...)
	if len(merged) > legacyCap {
		merged = merged[:legacyCap]
	}

	out := make([]Question, 0, len(merged))
	for _, q := range merged {
		question := q.Question
		if question == "" {
			question = q.FollowUp
		}
		if question == "" {
			question = "Describe a relevant experience."
		}
		followUp := q.FollowUp
		if followUp == "" {
			followUp = q.Context
		}
		out = append(out, Question{Focus: "resume", Question: question, FollowUp: followUp})
	}
	return out
}
