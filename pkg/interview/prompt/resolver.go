// Package prompt renders the instruction text for the voice agent and the
// evaluator. Templates are plain configuration selected by (mode, purpose);
// the resolver is a pure function over its inputs.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// Purpose selects which instruction a template produces.
type Purpose string

const (
	PurposeAgentBrief Purpose = "AGENT_BRIEF"
	PurposeEvaluation Purpose = "EVALUATION"
	PurposeQuestions  Purpose = "QUESTIONS"
)

// Character budgets applied before substitution. Truncation is a silent,
// deterministic prefix cut, never an error.
const (
	ResumeBudget         = 2000
	JobDescriptionBudget = 2000
	MetadataBudget       = 1000
	TranscriptBudget     = 8000
)

// NotSpecified is rendered in place of any missing optional fact so
// downstream consumers never special-case absence.
const NotSpecified = "Not specified"

// Facts is the purpose-specific bag of named fields substituted into a
// template. Transcript is only consumed by evaluation templates; the
// question sections only by agent briefs.
type Facts struct {
	JobTitle       string
	JobDescription string
	Resume         string
	Metadata       string
	Transcript     string

	GeneratedQuestions string
	CustomQuestions    string
}

type templateKey struct {
	mode    interview.Mode
	purpose Purpose
}

// Resolver renders bounded-length instruction text for a (mode, purpose)
// pair.
type Resolver struct {
	templates map[templateKey]*template.Template
}

// NewResolver builds a resolver with the built-in template set.
func NewResolver() *Resolver {
	r := &Resolver{templates: make(map[templateKey]*template.Template)}
	r.register(interview.ModePrescreen, PurposeAgentBrief, prescreenBriefTemplate)
	r.register(interview.ModeTechnical, PurposeAgentBrief, technicalBriefTemplate)
	r.register(interview.ModePrescreen, PurposeEvaluation, prescreenEvalTemplate)
	r.register(interview.ModeTechnical, PurposeEvaluation, technicalEvalTemplate)
	r.register(interview.ModePrescreen, PurposeQuestions, prescreenQuestionTemplate)
	return r
}

func (r *Resolver) register(mode interview.Mode, purpose Purpose, text string) {
	name := fmt.Sprintf("%s/%s", mode, purpose)
	r.templates[templateKey{mode, purpose}] = template.Must(template.New(name).Parse(text))
}

// Render returns the instruction text for (mode, purpose). Long fields are
// truncated to their budgets and missing optional fields render as
// "Not specified".
func (r *Resolver) Render(mode interview.Mode, purpose Purpose, f Facts) (string, error) {
	tmpl, ok := r.templates[templateKey{mode, purpose}]
	if !ok {
		return "", interview.NewTemplateNotFoundError(fmt.Sprintf("no template registered for mode %s purpose %s", mode, purpose))
	}

	view := struct {
		JobTitle       string
		JobDescription string
		Resume         string
		Metadata       string
		Transcript     string

		GeneratedQuestions string
		CustomQuestions    string
	}{
		JobTitle:       orNotSpecified(f.JobTitle),
		JobDescription: orNotSpecified(truncate(f.JobDescription, JobDescriptionBudget)),
		Resume:         orNotSpecified(truncate(f.Resume, ResumeBudget)),
		Metadata:       orNotSpecified(truncate(f.Metadata, MetadataBudget)),
		Transcript:     orNotSpecified(truncate(f.Transcript, TranscriptBudget)),

		GeneratedQuestions: orNotSpecified(f.GeneratedQuestions),
		CustomQuestions:    orNotSpecified(f.CustomQuestions),
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, view); err != nil {
		return "", interview.NewAPIError(fmt.Sprintf("render template %s/%s: %v", mode, purpose, err))
	}
	return sb.String(), nil
}

// AgentBrief renders the voice-agent instruction for a session, embedding
// the generated question section and any recruiter-provided custom
// questions. Satisfies interview.BriefRenderer.
func (r *Resolver) AgentBrief(mode interview.Mode, sctx interview.Context, generatedQuestions string) (string, error) {
	return r.Render(mode, PurposeAgentBrief, Facts{
		JobTitle:       sctx.JobTitle,
		JobDescription: sctx.JobDescription,
		Resume:         sctx.Resume,
		Metadata:       marshalMetadata(sctx.Metadata),

		GeneratedQuestions: generatedQuestions,
		CustomQuestions:    numberedList(sctx.CustomQuestions),
	})
}

// Questions renders the instruction that asks the completion model to
// produce the prescreening question set.
func (r *Resolver) Questions(sctx interview.Context) (string, error) {
	return r.Render(interview.ModePrescreen, PurposeQuestions, Facts{
		JobTitle:       sctx.JobTitle,
		JobDescription: sctx.JobDescription,
		Resume:         sctx.Resume,
		Metadata:       marshalMetadata(sctx.Metadata),
	})
}

// Evaluation renders the evaluator instruction for a finalized transcript.
func (r *Resolver) Evaluation(mode interview.Mode, transcript string, sctx interview.Context) (string, error) {
	return r.Render(mode, PurposeEvaluation, Facts{
		JobTitle:       sctx.JobTitle,
		JobDescription: sctx.JobDescription,
		Resume:         sctx.Resume,
		Metadata:       marshalMetadata(sctx.Metadata),
		Transcript:     transcript,
	})
}

func marshalMetadata(md map[string]any) string {
	if len(md) == 0 {
		return ""
	}
	// json.Marshal sorts map keys, so the rendered prompt is deterministic.
	raw, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(raw)
}

func numberedList(items []string) string {
	var sb strings.Builder
	n := 0
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if n > 0 {
			sb.WriteByte('\n')
		}
		n++
		fmt.Fprintf(&sb, "%d. %s", n, item)
	}
	return sb.String()
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

// truncate cuts to a rune budget, never mid-rune: resumes and job
// descriptions are frequently non-ASCII.
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	return string([]rune(s)[:budget])
}
