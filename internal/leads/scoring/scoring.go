// Package scoring computes the 0-100 lead quality score.
package scoring

import (
	"strings"
	"unicode/utf8"

	"lead_pipeline_backend/internal/leads/domain"
)

// scoreVersion tracks the scoring model for debugging and analysis.
// Bump this when changing weights.
const scoreVersion = "2024-v1"

const (
	weightWantsTour   = 25
	weightPhone       = 15
	weightEmail       = 10
	weightEngaged     = 10
	weightLongMessage = 10
	weightCityState   = 10
	weightCounty      = 5
	weightBudget      = 10
	weightPropertyTag = 5

	engagedTimeOnPageMS = 20000
	longMessageRunes    = 80
)

// Priority buckets a score for triage.
type Priority string

const (
	PriorityHot  Priority = "hot"
	PriorityWarm Priority = "warm"
	PriorityCold Priority = "cold"
)

// Result holds the score and the factors that contributed to it.
type Result struct {
	Score    int            `json:"score"`
	Priority Priority       `json:"priority"`
	Factors  map[string]int `json:"factors"`
	Version  string         `json:"version"`
}

// Score returns the additive lead score clamped to [0,100].
func Score(lead domain.Lead) int {
	return Breakdown(lead).Score
}

// Breakdown returns the score together with each contributing factor.
func Breakdown(lead domain.Lead) Result {
	factors := make(map[string]int)
	sum := 0
	add := func(key string, ok bool, weight int) {
		if !ok {
			return
		}
		factors[key] = weight
		sum += weight
	}

	add("wantsTour", lead.WantsTour, weightWantsTour)
	add("phone", lead.Phone != "", weightPhone)
	add("email", lead.Email != "", weightEmail)
	add("timeOnPage", lead.TimeOnPage() >= engagedTimeOnPageMS, weightEngaged)
	add("message", utf8.RuneCountInString(lead.Message) >= longMessageRunes, weightLongMessage)
	add("cityState", lead.City != "" && lead.State != "", weightCityState)
	add("county", lead.County != "", weightCounty)
	add("budgetMax", lead.BudgetMax != nil, weightBudget)
	add("propertyTag", hasPropertyPageTags(lead.Tags), weightPropertyTag)

	score := clampScore(sum)
	return Result{
		Score:    score,
		Priority: PriorityFromScore(score),
		Factors:  factors,
		Version:  scoreVersion,
	}
}

// PriorityFromScore maps a score to hot (>=70), warm (>=40) or cold.
func PriorityFromScore(score int) Priority {
	switch {
	case score >= 70:
		return PriorityHot
	case score >= 40:
		return PriorityWarm
	default:
		return PriorityCold
	}
}

func hasPropertyPageTags(tags []string) bool {
	var pdp, prop bool
	for _, tag := range tags {
		if tag == "pdp" {
			pdp = true
		}
		if strings.HasPrefix(tag, "prop:") {
			prop = true
		}
	}
	return pdp && prop
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
