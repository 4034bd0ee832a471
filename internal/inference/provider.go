package inference

import (
	"strings"

	"github.com/subtrack/subtrack/internal/catalog"
	"github.com/subtrack/subtrack/internal/models"
)

// ProviderMatch is a catalog hit: the display name that gets persisted and
// the provider's category tag.
type ProviderMatch struct {
	Name string
	Tag  string
}

type providerEntry struct {
	token   string // lowercased match token
	display string
	tag     string
}

// ProviderMatcher matches messages against the provider catalog. Catalog
// names are lowercased once at construction, not per call. A miss excludes
// the message from further processing; no "unknown" provider is ever
// fabricated.
type ProviderMatcher struct {
	entries []providerEntry
}

func NewProviderMatcher(entries []catalog.Entry) *ProviderMatcher {
	m := &ProviderMatcher{entries: make([]providerEntry, 0, len(entries))}
	for _, e := range entries {
		m.entries = append(m.entries, providerEntry{
			token:   strings.ToLower(e.Name),
			display: e.Display(),
			tag:     e.Tag,
		})
	}
	return m
}

// Match identifies the provider for a message. The From header takes
// priority over the body: a sender address naming a vendor is a stronger
// signal than a mention in the text.
func (m *ProviderMatcher) Match(payload *models.MessagePayload, text string) (ProviderMatch, bool) {
	from := strings.ToLower(payload.HeaderValue("From"))
	if from != "" {
		for _, e := range m.entries {
			if strings.Contains(from, e.token) {
				return ProviderMatch{Name: e.display, Tag: e.tag}, true
			}
		}
	}

	if text != "" {
		for _, e := range m.entries {
			if strings.Contains(text, e.token) {
				return ProviderMatch{Name: e.display, Tag: e.tag}, true
			}
		}
	}

	return ProviderMatch{}, false
}
