// Package trustscore computes a politician's trust score from voting
// consistency, campaign-finance exposure and fact-check history.
//
// Compute is pure; gathering the inputs lives in the service package.
package trustscore

import "math"

const (
	baseScore           = 60.0
	neutralConsistency  = 50.0
	consistencyWeight   = 0.6
	financeDivisor      = 10_000.0
	maxSpendPenalty     = 20.0
	truthStep           = 20.0
	missingTruthPenalty = 10.0
	truthPenaltyWeight  = 0.2
	maxTruthScore       = 5.0
	scale               = 100.0
)

// VoteSummary counts a politician's roll-call decisions.
type VoteSummary struct {
	Total           int `json:"total"`
	AbstainOrPaired int `json:"abstainOrPaired"`
}

// Inputs are the evidence the score is computed from. A nil pointer means
// the source has no record for the politician.
type Inputs struct {
	Votes           VoteSummary `json:"votes"`
	CampaignFinance *float64    `json:"campaignFinance"`
	TruthScore      *float64    `json:"truthScore"`
}

// Compute returns the score in [0, 100], rounded half away from zero. With
// no evidence at all the score is 58.
func Compute(in Inputs) int {
	consistency := neutralConsistency
	if in.Votes.Total > 0 {
		consistency = (1 - float64(in.Votes.AbstainOrPaired)/float64(in.Votes.Total)) * scale
	}

	spend := 0.0
	if in.CampaignFinance != nil {
		spend = math.Min(maxSpendPenalty, *in.CampaignFinance/financeDivisor)
	}

	truth := missingTruthPenalty
	if in.TruthScore != nil {
		truth = math.Max(0, scale-*in.TruthScore*truthStep)
	}

	raw := baseScore + (consistency-neutralConsistency)*consistencyWeight - spend - truth*truthPenaltyWeight
	raw = math.Max(0, math.Min(scale, raw))
	return int(math.Round(raw))
}

// ValidTruthScore reports whether s is inside the fact-check scale.
func ValidTruthScore(s float64) bool {
	return s >= 0 && s <= maxTruthScore
}
