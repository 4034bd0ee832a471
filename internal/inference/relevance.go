package inference

import "strings"

// RelevanceFilter is the cheap necessary-but-not-sufficient gate applied
// before amount and date extraction. Messages failing it are dropped
// regardless of provider match.
type RelevanceFilter struct {
	keywords []string
}

func NewRelevanceFilter(keywords []string) *RelevanceFilter {
	f := &RelevanceFilter{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		f.keywords = append(f.keywords, strings.ToLower(k))
	}
	return f
}

// SubscriptionLike reports whether the text contains at least one relevance
// keyword. Matching is case-insensitive; callers pass already-lowercased
// pipeline text, but snippets arrive raw.
func (f *RelevanceFilter) SubscriptionLike(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range f.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
