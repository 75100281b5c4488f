package tonal

import (
	"sort"

	"github.com/RyanBlaney/sonido-scale/algorithms/chroma"
)

// DefaultPenaltyWeight is the cost of one out-of-scale count relative to one
// in-scale count
const DefaultPenaltyWeight = 1

// ScaleCandidate pairs a scale with its score against a histogram.
type ScaleCandidate struct {
	Scale Scale `json:"scale"`
	Score int   `json:"score"`
}

// ScaleEstimate is the scorer's verdict over one window of note counts.
type ScaleEstimate struct {
	Best       Scale            `json:"best"`
	Found      bool             `json:"found"`
	Score      int              `json:"score"`
	Clarity    float64          `json:"clarity"`    // (best-second)/best, 0 when ambiguous
	Candidates []ScaleCandidate `json:"candidates"` // highest first
	Profile    chroma.Profile   `json:"profile"`
}

// ScaleScorer rates note histograms against candidate scales. In-scale counts
// add to the score; out-of-scale counts subtract PenaltyWeight times.
type ScaleScorer struct {
	PenaltyWeight int
}

func NewScaleScorer(penaltyWeight int) *ScaleScorer {
	return &ScaleScorer{PenaltyWeight: penaltyWeight}
}

func (ss *ScaleScorer) penalty() int {
	if ss.PenaltyWeight <= 0 {
		return DefaultPenaltyWeight
	}
	return ss.PenaltyWeight
}

// Score rates counts against scale.
func (ss *ScaleScorer) Score(counts [chroma.NumPitchClasses]int, scale Scale) int {
	penalty := ss.penalty()
	score := 0
	for i, c := range counts {
		if scale.Legal[i] {
			score += c
		} else {
			score -= penalty * c
		}
	}
	return score
}

// GuessScale returns the highest scoring scale. Ties go to the earliest
// candidate. The second result is false only when scales is empty.
func (ss *ScaleScorer) GuessScale(counts [chroma.NumPitchClasses]int, scales []Scale) (Scale, bool) {
	if len(scales) == 0 {
		return Scale{}, false
	}
	best := 0
	bestScore := ss.Score(counts, scales[0])
	for i := 1; i < len(scales); i++ {
		if score := ss.Score(counts, scales[i]); score > bestScore {
			best, bestScore = i, score
		}
	}
	return scales[best], true
}

// Rank scores every scale and orders them highest first, preserving the
// candidate order among equal scores.
func (ss *ScaleScorer) Rank(counts [chroma.NumPitchClasses]int, scales []Scale) []ScaleCandidate {
	ranked := make([]ScaleCandidate, len(scales))
	for i, s := range scales {
		ranked[i] = ScaleCandidate{Scale: s, Score: ss.Score(counts, s)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Clarity measures how far the winner stands above the runner-up, in [0, 1].
func Clarity(ranked []ScaleCandidate) float64 {
	if len(ranked) == 0 || ranked[0].Score <= 0 {
		return 0
	}
	if len(ranked) == 1 {
		return 1
	}
	best, second := float64(ranked[0].Score), float64(ranked[1].Score)
	if second < 0 {
		second = 0
	}
	return (best - second) / best
}

// Estimate combines GuessScale, Rank and Clarity. maxCandidates limits the
// returned candidate list; zero or less keeps all of them.
func (ss *ScaleScorer) Estimate(counts [chroma.NumPitchClasses]int, scales []Scale, maxCandidates int) ScaleEstimate {
	est := ScaleEstimate{Profile: chroma.NewProfile(counts)}
	ranked := ss.Rank(counts, scales)
	if len(ranked) == 0 {
		return est
	}

	est.Best, est.Found = ranked[0].Scale, true
	est.Score = ranked[0].Score
	est.Clarity = Clarity(ranked)
	if maxCandidates > 0 && len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	est.Candidates = ranked
	return est
}
