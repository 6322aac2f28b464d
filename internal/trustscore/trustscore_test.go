package trustscore

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestComputeDefaultIs58(t *testing.T) {
	assert.Equal(t, 58, Compute(Inputs{}))
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want int
	}{
		{
			name: "perfect record",
			in:   Inputs{Votes: VoteSummary{Total: 10}, TruthScore: ptr(5)},
			want: 90,
		},
		{
			name: "all abstentions, heavy spending, worst truth",
			in:   Inputs{Votes: VoteSummary{Total: 4, AbstainOrPaired: 4}, CampaignFinance: ptr(1_000_000), TruthScore: ptr(0)},
			want: 0,
		},
		{
			// 60 + (75-50)*0.6 - 5 - 40*0.2 = 62
			name: "mixed",
			in:   Inputs{Votes: VoteSummary{Total: 4, AbstainOrPaired: 1}, CampaignFinance: ptr(50_000), TruthScore: ptr(3)},
			want: 62,
		},
		{
			name: "spend penalty caps at 20",
			in:   Inputs{CampaignFinance: ptr(10_000_000)},
			want: 38,
		},
		{
			// 60 - 0.5 - 2 = 57.5 rounds away from zero
			name: "half rounds up",
			in:   Inputs{CampaignFinance: ptr(5_000)},
			want: 58,
		},
		{
			name: "zero finance is no penalty",
			in:   Inputs{CampaignFinance: ptr(0)},
			want: 58,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.in))
		})
	}
}

func TestComputeIsPureAndBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		total := r.IntN(500)
		abstain := 0
		if total > 0 {
			abstain = r.IntN(total + 1)
		}
		in := Inputs{Votes: VoteSummary{Total: total, AbstainOrPaired: abstain}}
		if r.IntN(2) == 0 {
			in.CampaignFinance = ptr(r.Float64() * 1e7)
		}
		if r.IntN(2) == 0 {
			in.TruthScore = ptr(r.Float64() * 5)
		}

		got := Compute(in)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
		assert.Equal(t, got, Compute(in))
	}
}

func TestValidTruthScore(t *testing.T) {
	assert.True(t, ValidTruthScore(0))
	assert.True(t, ValidTruthScore(5))
	assert.False(t, ValidTruthScore(5.01))
	assert.False(t, ValidTruthScore(-1))
}
