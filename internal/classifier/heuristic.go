// Package classifier implements the deterministic fallback sentiment
// classifier and the keyword intent tagger. Both are pure functions with no
// I/O; they back the pipeline whenever the AI classifier is unavailable.
package classifier

import (
	"math"
	"regexp"
	"strings"

	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// Fixed sentiment vocabularies. Matching is case-insensitive and whole-word.
var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "amazing": true,
	"awesome": true, "love": true, "wonderful": true, "fantastic": true,
	"happy": true, "best": true, "nice": true, "perfect": true,
	"helpful": true, "thanks": true, "thank": true, "easy": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "hate": true,
	"horrible": true, "worst": true, "poor": true, "disappointing": true,
	"useless": true, "broken": true, "slow": true, "angry": true,
	"frustrating": true, "annoying": true, "confusing": true, "crash": true,
}

var reWord = regexp.MustCompile(`[a-z0-9']+`)

// Classification is a heuristic sentiment verdict with its normalized
// three-way score distribution.
type Classification struct {
	Sentiment  string
	Confidence float64
	Scores     map[string]float64
}

// Classify scores text against the fixed word lists. Scores always cover
// exactly the three canonical labels, are rounded to 3 decimals, and sum to
// 1.0 within rounding error. Identical input always yields identical output.
func Classify(text string) Classification {
	words := reWord.FindAllString(strings.ToLower(strings.TrimSpace(text)), -1)

	var posCount, negCount int
	for _, w := range words {
		if positiveWords[w] {
			posCount++
		}
		if negativeWords[w] {
			negCount++
		}
	}

	var posScore, negScore, neuScore float64
	if posCount == 0 && negCount == 0 {
		// Slightly unbalanced on purpose: neutral wins when nothing matches.
		posScore, negScore, neuScore = 0.33, 0.33, 0.34
	} else {
		m := math.Max(math.Max(float64(posCount), float64(negCount)), 1)
		posScore = float64(posCount) / m * 0.8
		negScore = float64(negCount) / m * 0.8
		neuScore = math.Max(0.1, 1-posScore-negScore)
		sum := posScore + negScore + neuScore
		posScore /= sum
		negScore /= sum
		neuScore /= sum
	}

	scores := map[string]float64{
		models.SentimentPositive: round3(posScore),
		models.SentimentNegative: round3(negScore),
		models.SentimentNeutral:  round3(neuScore),
	}

	sentiment := models.SentimentPositive
	if negScore > posScore {
		sentiment = models.SentimentNegative
	}
	if neuScore > posScore && neuScore > negScore {
		sentiment = models.SentimentNeutral
	}

	return Classification{
		Sentiment:  sentiment,
		Confidence: scores[sentiment],
		Scores:     scores,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
