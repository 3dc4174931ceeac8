package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// Mandatory highlight labels, in the order the normalized breakdown carries
// them. A missing bullet is synthesized as "<Label> Not specified".
var requiredHighlightLabels = []string{"Notice Period:", "Expected CTC:", "Relocation:"}

// Optional labels passed through when present; at most one is kept.
var optionalHighlightLabels = []string{"Authorization:", "Work Preference:"}

// prescreenPayload accepts both the canonical field names and the aliases
// the upstream model historically used.
type prescreenPayload struct {
	Summary             string   `json:"summary"`
	PrescreeningSummary string   `json:"prescreening_summary"`
	Highlights          []string `json:"highlights"`
	Score               *float64 `json:"score"`
	FitScore            *float64 `json:"fit_score"`
}

func parsePrescreen(payload []byte) (*interview.EvaluationResult, error) {
	var p prescreenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, interview.NewMalformedOutputError("prescreen evaluation is not a JSON object", err)
	}

	summary := strings.TrimSpace(p.Summary)
	if summary == "" {
		summary = strings.TrimSpace(p.PrescreeningSummary)
	}
	if summary == "" {
		return nil, interview.NewSchemaError("prescreen evaluation is missing summary")
	}

	scoreField := p.Score
	if scoreField == nil {
		scoreField = p.FitScore
	}
	if scoreField == nil {
		return nil, interview.NewSchemaError("prescreen evaluation is missing score")
	}
	score := int(math.Round(*scoreField))
	if score < 0 || score > 100 {
		return nil, interview.NewSchemaError(fmt.Sprintf("prescreen score %d outside [0,100]", score))
	}

	return &interview.EvaluationResult{
		Mode:       interview.ModePrescreen,
		Score:      score,
		Summary:    summary,
		Highlights: normalizeHighlights(p.Highlights),
	}, nil
}

// normalizeHighlights enforces the mandatory bullet set: the three required
// labels in order, each synthesized as "Not specified" when the model omitted
// it, plus at most one optional authorization/work-preference bullet. The
// property holds even when the model returns no highlights at all.
func normalizeHighlights(raw []string) []string {
	out := make([]string, 0, len(requiredHighlightLabels)+1)
	for _, label := range requiredHighlightLabels {
		if bullet, ok := findBullet(raw, label); ok {
			out = append(out, bullet)
			continue
		}
		out = append(out, label+" "+"Not specified")
	}
	for _, label := range optionalHighlightLabels {
		if bullet, ok := findBullet(raw, label); ok {
			out = append(out, bullet)
			break
		}
	}
	return out
}

func findBullet(raw []string, label string) (string, bool) {
	for _, b := range raw {
		if strings.HasPrefix(strings.TrimSpace(b), label) {
			return strings.TrimSpace(b), true
		}
	}
	return "", false
}
