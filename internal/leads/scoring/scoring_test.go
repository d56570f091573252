package scoring

import (
	"strings"
	"testing"

	"lead_pipeline_backend/internal/leads/domain"
)

func ptr(v float64) *float64 { return &v }

func TestScoreReferenceLead(t *testing.T) {
	lead := domain.Lead{
		WantsTour:    true,
		Phone:        "555-1234",
		Email:        "a@b.com",
		TimeOnPageMS: ptr(25000),
		Message:      strings.Repeat("x", 80),
		City:         "SD",
		State:        "CA",
	}

	if got := Score(lead); got != 80 {
		t.Fatalf("expected 80, got %d", got)
	}
	if got := Score(lead); got != Score(lead) {
		t.Fatal("score must be deterministic")
	}
}

func TestScoreWeights(t *testing.T) {
	tests := []struct {
		name string
		lead domain.Lead
		want int
	}{
		{name: "empty", lead: domain.Lead{}, want: 0},
		{name: "city without state", lead: domain.Lead{City: "San Diego"}, want: 0},
		{name: "county", lead: domain.Lead{County: "San Diego"}, want: 5},
		{name: "budget zero still counts", lead: domain.Lead{BudgetMax: ptr(0)}, want: 10},
		{name: "short message", lead: domain.Lead{Message: strings.Repeat("x", 79)}, want: 0},
		{name: "time on page below threshold", lead: domain.Lead{TimeOnPageMS: ptr(19999)}, want: 0},
		{name: "pdp without prop tag", lead: domain.Lead{Tags: []string{"pdp"}}, want: 0},
		{name: "pdp with prop tag", lead: domain.Lead{Tags: []string{"prop:42", "pdp"}}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.lead); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestScoreClampsToHundred(t *testing.T) {
	lead := domain.Lead{
		WantsTour:    true,
		Phone:        "555-1234",
		Email:        "a@b.com",
		TimeOnPageMS: ptr(25000),
		Message:      strings.Repeat("x", 120),
		City:         "SD",
		State:        "CA",
		County:       "San Diego",
		BudgetMax:    ptr(500000),
		Tags:         []string{"pdp", "prop:1"},
	}

	res := Breakdown(lead)
	if res.Score != 100 {
		t.Fatalf("expected clamp to 100, got %d", res.Score)
	}
	if res.Factors["wantsTour"] != 25 || len(res.Factors) != 9 {
		t.Fatalf("unexpected factors %#v", res.Factors)
	}
}

func TestPriorityFromScore(t *testing.T) {
	cases := map[int]Priority{100: PriorityHot, 70: PriorityHot, 69: PriorityWarm, 40: PriorityWarm, 39: PriorityCold, 0: PriorityCold}
	for score, want := range cases {
		if got := PriorityFromScore(score); got != want {
			t.Errorf("PriorityFromScore(%d) = %s, want %s", score, got, want)
		}
	}
}
