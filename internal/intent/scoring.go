package intent

import (
	"math"
	"strings"

	"github.com/avvvet/diplomat-intent/internal/models"
)

// Per-type base score vectors. Counter-offers and ultimatums are the most
// reliable matches (long distinctive phrases), concessions the least.
var typeScores = map[string]models.ScoreVector{
	models.KindProposal:     {Trust: 0.7, Leverage: 0.6, FaceSaving: 0.4, Confidence: 0.8},
	models.KindCounterOffer: {Trust: 0.8, Leverage: 0.7, FaceSaving: 0.5, Confidence: 0.9},
	models.KindUltimatum:    {Trust: 0.3, Leverage: 0.9, FaceSaving: 0.2, Confidence: 0.7},
	models.KindConcession:   {Trust: 0.9, Leverage: 0.4, FaceSaving: 0.8, Confidence: 0.6},
	models.KindSmallTalk:    {Trust: 0.6, Leverage: 0.3, FaceSaving: 0.7, Confidence: 0.9},
}

// Per-type base confidence for the context-aware confidence score.
var baseConfidence = map[string]float64{
	models.KindCounterOffer: 0.90,
	models.KindUltimatum:    0.85,
	models.KindProposal:     0.80,
	models.KindSmallTalk:    0.75,
	models.KindConcession:   0.70,
}

var faceSavingPhrases = []string{
	"willing to", "open to", "consider", "explore", "discuss",
}

// conservativeVector is substituted whenever scoring cannot complete.
var conservativeVector = models.ScoreVector{Trust: 0.3, Leverage: 0.3, FaceSaving: 0.3, Confidence: 0.3}

// ScoreIntent scores an intent on the four negotiation axes using
// deterministic heuristics. It never panics; a nil intent yields the
// conservative default vector.
func ScoreIntent(in *models.Intent, world models.WorldContext) models.ScoreVector {
	if in == nil {
		return conservativeVector
	}

	scores := models.ScoreVector{Trust: 0.5, Leverage: 0.5, FaceSaving: 0.5, Confidence: 0.5}
	if base, ok := typeScores[in.Type]; ok {
		scores = base
	}

	content := strings.ToLower(in.Content)

	// Demands vs offers shift trust and leverage.
	demands := strings.Count(content, "demand") + strings.Count(content, "require") + strings.Count(content, "must")
	offers := strings.Count(content, "offer") + strings.Count(content, "propose") + strings.Count(content, "suggest")
	switch {
	case demands > offers:
		scores.Trust *= 0.7
		scores.Leverage += 0.1
	case offers > demands:
		scores.Trust += 0.1
		scores.FaceSaving += 0.1
	}

	// Face-saving clauses raise the face-saving axis.
	for _, phrase := range faceSavingPhrases {
		if strings.Contains(content, phrase) {
			scores.FaceSaving += 0.1
		}
	}

	// Content length band: mid-length content reads as deliberate,
	// degenerate or run-on content reads as noise.
	switch n := len(in.Content); {
	case n >= 10 && n <= 200:
		scores.Confidence += 0.1
	case n < 10:
		scores.Confidence -= 0.2
	case n > 500:
		scores.Confidence -= 0.1
	}

	// Scenario tag alignment raises trust and confidence.
	if len(world.ScenarioTags) > 0 {
		relevant := 0
		for _, tag := range world.ScenarioTags {
			if tag != "" && strings.Contains(content, strings.ToLower(tag)) {
				relevant++
			}
		}
		alignment := float64(relevant) / float64(len(world.ScenarioTags))
		scores.Trust += alignment * 0.2
		scores.Confidence += alignment * 0.1
	}

	scores.Trust = clamp01(scores.Trust)
	scores.Leverage = clamp01(scores.Leverage)
	scores.FaceSaving = clamp01(scores.FaceSaving)
	scores.Confidence = clamp01(scores.Confidence)
	return scores
}

// OverallScore reduces a score map to a single [0,1] value with fixed
// weights favoring trust and confidence. It fails closed: a missing or
// non-finite key yields exactly 0.3 rather than an error.
func OverallScore(scores map[string]float64) float64 {
	weights := map[string]float64{
		"trust":       0.3,
		"leverage":    0.2,
		"face_saving": 0.2,
		"confidence":  0.3,
	}

	overall := 0.0
	for key, weight := range weights {
		v, ok := scores[key]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0.3
		}
		overall += v * weight
	}
	return clamp01(overall)
}

// ConfidenceScore computes the context-aware confidence for an intent.
// Scenario-tag overlap only ever raises the base score; short or run-on
// content multiplies it down. The result is clamped to [0.1, 1.0] so the
// classifier never reports total certainty of failure.
func ConfidenceScore(in *models.Intent, world models.WorldContext) float64 {
	if in == nil {
		return 0.1
	}

	score, ok := baseConfidence[in.Type]
	if !ok {
		score = 0.5
	}

	if ratio := overlapRatio(in.Content, world.ScenarioTags); ratio > 0 {
		score += 0.4 * ratio * (1.0 - score)
	}

	if len(in.Content) < 10 {
		score *= 0.8
	} else if len(in.Content) > 500 {
		score *= 0.9
	}

	return math.Min(1.0, math.Max(0.1, score))
}

// RelevanceBand names the context-relevance band for a confidence value.
func RelevanceBand(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "high"
	case confidence > 0.6:
		return "moderate"
	default:
		return "low"
	}
}

// overlapRatio is the fraction of content tokens that also appear in the
// concatenated scenario tags.
func overlapRatio(content string, tags []string) float64 {
	contentTokens := tokenize(content)
	if len(contentTokens) == 0 || len(tags) == 0 {
		return 0
	}

	tagTokens := map[string]bool{}
	for _, tag := range tags {
		for _, tok := range tokenize(tag) {
			tagTokens[tok] = true
		}
	}
	if len(tagTokens) == 0 {
		return 0
	}

	seen := map[string]bool{}
	overlap := 0
	for _, tok := range contentTokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if tagTokens[tok] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(seen))
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(s)))
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
