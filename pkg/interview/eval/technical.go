package eval

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/vango-go/vai-interviews/pkg/interview"
)

// passThreshold is the score at which a pass recommendation is derived when
// the model does not state one explicitly.
const passThreshold = 60

type technicalPayload struct {
	OverallScore       *float64                  `json:"overall_score"`
	PassRecommendation *bool                     `json:"pass_recommendation"`
	Summary            string                    `json:"summary"`
	PerQuestionScores  []interview.QuestionScore `json:"per_question_scores"`
	QuestionScores     []interview.QuestionScore `json:"question_scores"`
	Strengths          []string                  `json:"strengths"`
	Weaknesses         []string                  `json:"weaknesses"`
}

func parseTechnical(payload []byte) (*interview.EvaluationResult, error) {
	var p technicalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, interview.NewMalformedOutputError("technical evaluation is not a JSON object", err)
	}

	if p.OverallScore == nil {
		return nil, interview.NewSchemaError("technical evaluation is missing overall_score")
	}
	score := int(math.Round(*p.OverallScore))
	if score < 0 || score > 100 {
		return nil, interview.NewSchemaError(fmt.Sprintf("technical overall_score %d outside [0,100]", score))
	}

	// An explicit recommendation from the model is an override; otherwise it
	// is derived from the score.
	pass := p.PassRecommendation
	if pass == nil {
		derived := score >= passThreshold
		pass = &derived
	}

	perQuestion := p.PerQuestionScores
	if len(perQuestion) == 0 {
		perQuestion = p.QuestionScores
	}
	if perQuestion == nil {
		perQuestion = []interview.QuestionScore{}
	}
	strengths := p.Strengths
	if strengths == nil {
		strengths = []string{}
	}
	weaknesses := p.Weaknesses
	if weaknesses == nil {
		weaknesses = []string{}
	}

	return &interview.EvaluationResult{
		Mode:               interview.ModeTechnical,
		Score:              score,
		Summary:            p.Summary,
		PassRecommendation: pass,
		PerQuestionScores:  perQuestion,
		Strengths:          strengths,
		Weaknesses:         weaknesses,
	}, nil
}
