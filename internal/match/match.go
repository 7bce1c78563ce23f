package match

import (
	"github.com/jo-hoe/kinface/internal/verify"
)

// Parent labels used in outcomes and chart bars.
const (
	ParentFather = "father"
	ParentMother = "mother"
)

// Outcome is the derived result of one family comparison. It is
// computed per request and never stored.
type Outcome struct {
	Metric           string  `json:"metric"`
	FatherDistance   float64 `json:"father_distance"`
	MotherDistance   float64 `json:"mother_distance"`
	FatherSimilarity float64 `json:"father_similarity"`
	MotherSimilarity float64 `json:"mother_similarity"`
	MoreSimilar      string  `json:"more_similar"`
}

// Similarity converts an embedding distance into a similarity score.
// Cosine distances map to 1-d; all other metrics map to 1/(1+d), which
// stays in (0, 1] and strictly decreases with distance.
func Similarity(metric string, distance float64) float64 {
	if metric == verify.MetricCosine {
		return 1 - distance
	}
	return 1.0 / (1.0 + distance)
}

// Compare derives the comparison outcome from the two verification
// distances. The parent with the smaller raw distance is declared more
// similar; equal distances resolve to the father.
func Compare(metric string, fatherDistance, motherDistance float64) Outcome {
	outcome := Outcome{
		Metric:           metric,
		FatherDistance:   fatherDistance,
		MotherDistance:   motherDistance,
		FatherSimilarity: Similarity(metric, fatherDistance),
		MotherSimilarity: Similarity(metric, motherDistance),
		MoreSimilar:      ParentFather,
	}
	if motherDistance < fatherDistance {
		outcome.MoreSimilar = ParentMother
	}
	return outcome
}
