package classifier

import "strings"

// DefaultIntent is returned when no keyword rule matches.
const DefaultIntent = "general_feedback"

// intentRule maps substring keywords onto one intent tag. Rules are ordered
// and non-exclusive: a text can carry several tags at once.
type intentRule struct {
	tag      string
	keywords []string
}

var intentRules = []intentRule{
	{"support_request", []string{"help", "support", "assist", "how do i", "how to"}},
	{"bug_report", []string{"bug", "error", "broken", "crash", "doesn't work", "not working"}},
	{"feature_request", []string{"feature", "suggest", "wish", "would be nice", "please add"}},
	{"churn_risk", []string{"cancel", "refund", "unsubscribe", "switch to", "leaving"}},
	{"positive_feedback", []string{"love", "great", "excellent", "amazing", "awesome", "fantastic", "perfect"}},
	{"negative_feedback", []string{"hate", "terrible", "awful", "horrible", "worst", "disappointing"}},
	{"pricing_concern", []string{"price", "cost", "expensive", "pricing", "subscription fee"}},
}

// DetectIntents tags text with every matching intent. Never returns an empty
// slice; texts matching nothing get the single default tag.
func DetectIntents(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))

	var tags []string
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}

	if len(tags) == 0 {
		return []string{DefaultIntent}
	}
	return tags
}
