// Package reconcile repairs speech-to-text noise in candidate utterances
// using the surrounding AI context, via an external completion model.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
)

// wireTurn is the exchange shape sent to and expected back from the model.
type wireTurn struct {
	AI        string `json:"ai"`
	User      string `json:"user"`
	TimeStamp string `json:"time_stamp"`
}

// ModelReconciler implements interview.Reconciler over a completion client.
// The output transcript always has the same length as the input and every
// ai_text is copied verbatim from the input, regardless of what the model
// returns.
type ModelReconciler struct {
	Client completion.Client
	Logger *slog.Logger
}

func (r *ModelReconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Reconcile asks the model to reconstruct candidate intent turn by turn. A
// malformed or length-mismatched payload gets one corrective re-prompt;
// a second failure surfaces as malformed_model_output. A transcript of a
// different length is never returned: that would desynchronize the indices
// used by turn edits.
func (r *ModelReconciler) Reconcile(ctx context.Context, turns []interview.Turn, _ interview.Context) ([]interview.Turn, error) {
	if len(turns) == 0 {
		return []interview.Turn{}, nil
	}

	wire := make([]wireTurn, len(turns))
	for i, t := range turns {
		wire[i] = wireTurn{AI: t.AIText, User: t.UserText, TimeStamp: t.Timestamp.Format(time.RFC3339)}
	}
	conversation, err := json.Marshal(wire)
	if err != nil {
		return nil, interview.NewAPIError(fmt.Sprintf("marshal conversation: %v", err))
	}

	msgs := []completion.Message{{Role: completion.RoleUser, Content: buildPrompt(string(conversation))}}

	raw, err := r.Client.Complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	out, parseErr := r.parse(raw, len(turns))
	if parseErr == nil {
		return rebuild(turns, out), nil
	}

	// One corrective re-prompt carrying the validation failure.
	r.logger().Warn("reconciliation output rejected, re-prompting",
		"turns", len(turns), "error", parseErr)
	msgs = append(msgs,
		completion.Message{Role: completion.RoleAssistant, Content: raw},
		completion.Message{Role: completion.RoleUser, Content: correctivePrompt(parseErr, len(turns))},
	)
	raw, err = r.Client.Complete(ctx, msgs)
	if err != nil {
		return nil, err
	}
	out, parseErr = r.parse(raw, len(turns))
	if parseErr != nil {
		// Raw payload goes to the log for offline triage, never to the caller.
		r.logger().Error("reconciliation output unusable after re-prompt",
			"turns", len(turns), "error", parseErr, "raw", raw)
		return nil, parseErr
	}
	return rebuild(turns, out), nil
}

func (r *ModelReconciler) parse(raw string, want int) ([]wireTurn, error) {
	payload, err := completion.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var out []wireTurn
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, interview.NewMalformedOutputError("reconciliation output is not a JSON array of turns", err)
	}
	if len(out) != want {
		return nil, interview.NewMalformedOutputError(
			fmt.Sprintf("reconciliation output has %d turns, want %d", len(out), want), nil)
	}
	return out, nil
}

// rebuild merges the model's user reconstructions onto the original turns.
// AI text and timestamps always come from the input.
func rebuild(in []interview.Turn, out []wireTurn) []interview.Turn {
	result := make([]interview.Turn, len(in))
	for i, t := range in {
		result[i] = interview.Turn{
			AIText:    t.AIText,
			UserText:  out[i].User,
			Timestamp: t.Timestamp,
		}
		if result[i].UserText == "" {
			result[i].UserText = t.UserText
		}
	}
	return result
}

func buildPrompt(conversation string) string {
	return fmt.Sprintf(`You are given an interview conversation transcript.
The AI messages are accurate and should be used as context.
The user's messages may contain speech-to-text errors.

Conversation Transcript:
%s

TASK:
For each conversational turn:
- Keep the AI message EXACTLY as provided
- Reconstruct what the USER most likely intended to say

RECONSTRUCTION GUIDELINES:
1. Use the AI's message as contextual grounding
2. Fix phonetic transcription errors (e.g., "dock er" -> "Docker")
3. Remove filler words and stutters
4. Ensure answers are coherent, concise, and interview-appropriate
5. Do NOT exaggerate or improve the user's qualifications
6. If a sentence is incomplete, complete it conservatively
7. If meaning is ambiguous, choose the safest neutral interpretation

OUTPUT FORMAT (JSON ARRAY ONLY):
[
{"ai": "<original AI text>", "user": "<corrected and reconstructed user text>", "time_stamp": "<original timestamp>"}
]

VALIDATION REQUIREMENTS:
- JSON must be parseable
- Array length must match number of AI-User turns
- No null fields`, conversation)
}

func correctivePrompt(parseErr error, want int) string {
	return fmt.Sprintf(`Your previous output was rejected: %v.
Return ONLY a JSON array of exactly %d objects with keys "ai", "user", "time_stamp". No prose, no code fences.`, parseErr, want)
}
