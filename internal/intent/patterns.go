package intent

import "regexp"

// Pattern names, in classification priority order. The order is a design
// decision: a turn matching both the counter-offer phrase and the generic
// trade phrase must classify as counter_offer, never proposal.
const (
	PatternCounterOffer = "counter_offer"
	PatternUltimatum    = "ultimatum"
	PatternTrade        = "trade"
	PatternAggressive   = "aggressive"
	PatternCooperative  = "cooperative"
)

type pattern struct {
	name string
	re   *regexp.Regexp
}

// Pre-compiled key-phrase patterns. First match wins.
var intentPatterns = []pattern{
	{PatternCounterOffer, regexp.MustCompile(`(?i)grant.*access.*if.*withdraw.*troops`)},
	{PatternUltimatum, regexp.MustCompile(`(?i)ceasefire.*now.*or else|deadline.*final`)},
	{PatternTrade, regexp.MustCompile(`(?i)trade|deal|exchange`)},
	{PatternAggressive, regexp.MustCompile(`(?i)war|attack|threaten|destroy`)},
	{PatternCooperative, regexp.MustCompile(`(?i)peace|alliance|cooperate|help`)},
}

// Unsafe-content families screened in strict mode before any intent
// detection runs.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)hate|discriminat|racist|sexist`),
	regexp.MustCompile(`(?i)violent|kill|murder|assassinat|violence`),
	regexp.MustCompile(`(?i)threat|bomb|weapon|attack|war`),
}

// MatchedPatterns returns the names of every key-phrase pattern the text
// matches, in priority order.
func MatchedPatterns(text string) []string {
	matched := []string{}
	for _, p := range intentPatterns {
		if p.re.MatchString(text) {
			matched = append(matched, p.name)
		}
	}
	return matched
}

// ContainsUnsafeContent reports whether any unsafe-content family matches.
func ContainsUnsafeContent(text string) bool {
	for _, re := range unsafePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func firstMatch(text string) string {
	for _, p := range intentPatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}
