package inference

import (
	"strings"
	"time"

	"github.com/subtrack/subtrack/internal/catalog"
	"github.com/subtrack/subtrack/internal/models"
)

// DefaultCycleDays is the assumed billing cadence when none is configured.
const DefaultCycleDays = 30

// Pipeline turns a batch of raw messages into a deduplicated list of
// subscription candidates, at most one per provider. It performs no I/O:
// the same batch always converges to the same candidates, which makes it
// unit-testable with literal message fixtures.
type Pipeline struct {
	providers *ProviderMatcher
	relevance *RelevanceFilter
	amounts   *AmountExtractor
	cycle     time.Duration

	now func() time.Time // overridable in tests
}

func NewPipeline(cat *catalog.Catalog, cycleDays int) *Pipeline {
	if cycleDays <= 0 {
		cycleDays = DefaultCycleDays
	}
	return &Pipeline{
		providers: NewProviderMatcher(cat.Providers),
		relevance: NewRelevanceFilter(cat.Keywords),
		amounts:   NewAmountExtractor(cat.Currencies),
		cycle:     time.Duration(cycleDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// Parse runs the full extraction over one user's message batch. Messages
// with no catalog provider, no relevance keyword or no confident amount are
// skipped silently — exclusion is the expected outcome, not an error. Output
// order follows provider first-seen order.
func (p *Pipeline) Parse(messages []models.RawMessage) []models.Candidate {
	buckets := make(map[string][]models.Candidate)
	var order []string

	now := p.now()

	for _, msg := range messages {
		text := DecodeBody(msg.Payload)
		if text == "" {
			text = strings.ToLower(msg.Snippet)
		}
		if text == "" {
			continue
		}

		provider, ok := p.providers.Match(msg.Payload, text)
		if !ok {
			continue
		}

		if !p.relevance.SubscriptionLike(text) {
			continue
		}

		// A subscription record is meaningless without a price: no
		// confident amount, no candidate.
		money, ok := p.amounts.Extract(text)
		if !ok || money.Amount <= 0 {
			continue
		}

		start, next := DeriveDates(msg.Payload, now, p.cycle)

		candidate := models.Candidate{
			Provider:    provider.Name,
			Tag:         provider.Tag,
			Product:     ExtractProduct(text),
			Amount:      money.Amount,
			Currency:    money.Currency,
			StartDate:   start,
			NextBilling: next,
			Raw: models.RawData{
				MessageID: msg.ID,
				Subject:   msg.Payload.HeaderValue("Subject"),
				Snippet:   msg.Snippet,
				SentDate:  start,
			},
		}

		if _, seen := buckets[provider.Name]; !seen {
			order = append(order, provider.Name)
		}
		buckets[provider.Name] = append(buckets[provider.Name], candidate)
	}

	winners := make([]models.Candidate, 0, len(order))
	for _, name := range order {
		candidates := buckets[name]
		if len(candidates) == 1 {
			winners = append(winners, candidates[0])
			continue
		}
		winners = append(winners, SelectWinner(candidates, now))
	}

	return winners
}
