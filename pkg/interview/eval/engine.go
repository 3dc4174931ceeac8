// Package eval converts a finalized transcript into a validated, structured
// evaluation record.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
	"github.com/vango-go/vai-interviews/pkg/interview/prompt"
)

const systemInstruction = "You are an expert interviewer and evaluator. Always respond with valid JSON matching the requested schema exactly."

// Engine implements interview.Evaluator. All model output is untrusted: it
// is extracted, parsed, and normalized against the mode-specific schema
// before anything is returned, and raw payloads that fail validation are
// logged for offline triage rather than surfaced to the end user.
type Engine struct {
	Client   completion.Client
	Resolver *prompt.Resolver
	Logger   *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Evaluate builds the evaluation prompt, invokes the completion model, and
// validates the response against the schema selected by mode.
func (e *Engine) Evaluate(ctx context.Context, mode interview.Mode, turns []interview.Turn, sctx interview.Context) (*interview.EvaluationResult, error) {
	instruction, err := e.Resolver.Evaluation(mode, renderTranscript(turns), sctx)
	if err != nil {
		return nil, err
	}

	raw, err := e.Client.Complete(ctx, []completion.Message{
		{Role: completion.RoleSystem, Content: systemInstruction},
		{Role: completion.RoleUser, Content: instruction},
	})
	if err != nil {
		return nil, err
	}

	payload, err := completion.ExtractJSON(raw)
	if err != nil {
		e.logger().Error("evaluation output has no JSON payload", "mode", mode, "raw", raw)
		return nil, err
	}

	var result *interview.EvaluationResult
	switch mode {
	case interview.ModePrescreen:
		result, err = parsePrescreen([]byte(payload))
	case interview.ModeTechnical:
		result, err = parseTechnical([]byte(payload))
	default:
		return nil, interview.NewAPIError(fmt.Sprintf("no evaluation schema for mode %s", mode))
	}
	if err != nil {
		e.logger().Error("evaluation output failed schema validation", "mode", mode, "error", err, "raw", raw)
		return nil, err
	}
	return result, nil
}

// renderTranscript flattens turns into the plain-text form the evaluation
// templates embed.
func renderTranscript(turns []interview.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString("AI: ")
		sb.WriteString(t.AIText)
		sb.WriteString("\nCandidate: ")
		sb.WriteString(t.UserText)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
