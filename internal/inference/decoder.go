// Package inference implements the email-to-subscription extraction pipeline:
// body decoding, provider identification, amount and date derivation,
// candidate scoring and batch orchestration. Everything here is pure
// computation over in-memory batches; persistence lives in the store package.
package inference

import (
	"encoding/base64"
	"strings"

	"github.com/subtrack/subtrack/internal/models"
)

// DecodeBody converts a raw payload tree into a single normalized lowercase
// text blob. Multi-part payloads are decoded recursively and joined with
// single spaces. HTML parts are flattened to plain text. Malformed base64
// contributes an empty string for that node rather than failing the message.
func DecodeBody(p *models.MessagePayload) string {
	if p == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(decodeNode(p)))
}

func decodeNode(p *models.MessagePayload) string {
	if p.Body != nil && p.Body.Data != "" {
		return decodeData(p.MimeType, p.Body.Data)
	}

	if len(p.Parts) > 0 {
		pieces := make([]string, 0, len(p.Parts))
		for i := range p.Parts {
			if text := decodeNode(&p.Parts[i]); text != "" {
				pieces = append(pieces, text)
			}
		}
		return strings.Join(pieces, " ")
	}

	return ""
}

func decodeData(mimeType, data string) string {
	raw, err := decodeBase64(data)
	if err != nil {
		return ""
	}

	text := string(raw)
	if strings.Contains(strings.ToLower(mimeType), "html") || looksLikeHTML(text) {
		return htmlToText(text)
	}
	return text
}

// decodeBase64 accepts both URL-safe (with or without padding) and standard
// base64, since provider APIs are inconsistent about which they emit.
func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype html")
}
